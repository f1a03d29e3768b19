package session

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"
)

const sessionFormatVersionCurrent = 1

// record layout: version(1) | sessionID(16) | userID(16) | createdAt(8) | expiresAt(8)
const encodedSessionSize = 1 + 16 + 16 + 8 + 8

func Encode(s Session) ([]byte, error) {
	if s.SessionID == uuid.Nil {
		return nil, ErrNilSessionID
	}
	if s.UserID == uuid.Nil {
		return nil, ErrNilUserID
	}

	buf := make([]byte, 0, encodedSessionSize)
	buf = append(buf, sessionFormatVersionCurrent)
	buf = append(buf, s.SessionID[:]...)
	buf = append(buf, s.UserID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.CreatedAt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.ExpiresAt))

	return buf, nil
}

func Decode(data []byte) (Session, error) {
	var s Session

	if len(data) != encodedSessionSize {
		return s, errors.New("invalid session record size")
	}
	if data[0] != sessionFormatVersionCurrent {
		return s, errors.New("invalid session record version")
	}

	copy(s.SessionID[:], data[1:17])
	copy(s.UserID[:], data[17:33])
	s.CreatedAt = int64(binary.BigEndian.Uint64(data[33:41]))
	s.ExpiresAt = int64(binary.BigEndian.Uint64(data[41:49]))

	if s.SessionID == uuid.Nil || s.UserID == uuid.Nil {
		return Session{}, errors.New("invalid session record ids")
	}

	return s, nil
}
