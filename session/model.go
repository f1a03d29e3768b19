package session

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNilSessionID is returned by New when the session id is the nil UUID.
var ErrNilSessionID = errors.New("nil session id")

// ErrNilUserID is returned by New when the user id is the nil UUID.
var ErrNilUserID = errors.New("nil user id")

// Session binds a session id to the authenticated user it represents.
// Instances are value types: stores hand out copies, never shared pointers.
type Session struct {
	SessionID uuid.UUID
	UserID    uuid.UUID

	CreatedAt int64
	ExpiresAt int64
}

// New constructs a Session and rejects nil identifiers. Activity is not a
// stored flag; it is derived from the user id (see [Session.Active]).
func New(sessionID, userID uuid.UUID) (Session, error) {
	if sessionID == uuid.Nil {
		return Session{}, ErrNilSessionID
	}
	if userID == uuid.Nil {
		return Session{}, ErrNilUserID
	}
	return Session{SessionID: sessionID, UserID: userID}, nil
}

// Active reports whether the session carries an authenticated user.
// The zero Session is inactive.
func (s Session) Active() bool {
	return s.UserID != uuid.Nil
}
