package drinkauth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const enrollmentRecordVersion1 = 1

// pendingEnrollment parks a generated two-factor secret until the user
// proves possession with one valid code. Nothing touches the user record
// before confirmation.
type pendingEnrollment struct {
	Secret    []byte
	ExpiresAt int64
	Attempts  uint16
}

type enrollmentStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newEnrollmentStore(redisClient redis.UniversalClient, prefix string) *enrollmentStore {
	return &enrollmentStore{redis: redisClient, prefix: prefix}
}

func (s *enrollmentStore) key(userID uuid.UUID) string {
	return s.prefix + ":" + userID.String()
}

func (s *enrollmentStore) Save(
	ctx context.Context,
	userID uuid.UUID,
	record *pendingEnrollment,
	ttl time.Duration,
) error {
	encoded, err := encodePendingEnrollment(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(userID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	return nil
}

func (s *enrollmentStore) Get(ctx context.Context, userID uuid.UUID) (*pendingEnrollment, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}

	record, err := decodePendingEnrollment(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(userID)).Result()
		return nil, ErrEnrollmentExpired
	}
	return record, nil
}

func (s *enrollmentStore) Delete(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
	}
	return n > 0, nil
}

// RecordFailure bumps the attempt counter under a WATCH so concurrent
// confirms cannot lose increments. It reports true when the cap is hit,
// in which case the pending record is gone and setup must restart.
func (s *enrollmentStore) RecordFailure(
	ctx context.Context,
	userID uuid.UUID,
	maxAttempts int,
) (bool, error) {
	const maxRetries = 4
	key := s.key(userID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodePendingEnrollment(data)
			if err != nil {
				return err
			}
			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrEnrollmentExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return nil
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrEnrollmentExpired
			}

			updated, err := encodePendingEnrollment(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrEnrollmentNotFound
			}
			if errors.Is(err, ErrEnrollmentExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrTwoFactorUnavailable, err)
		}
		return exceeded, nil
	}

	return false, ErrEnrollmentNotFound
}

func encodePendingEnrollment(record *pendingEnrollment) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(enrollmentRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Secret) > 65535 {
		return nil, errors.New("enrollment secret length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Secret))); err != nil {
		return nil, err
	}
	buf.Write(record.Secret)

	return buf.Bytes(), nil
}

func decodePendingEnrollment(data []byte) (*pendingEnrollment, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != enrollmentRecordVersion1 {
		return nil, errors.New("invalid enrollment record version")
	}

	record := &pendingEnrollment{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var secretLen uint16
	if err := binary.Read(reader, binary.BigEndian, &secretLen); err != nil {
		return nil, err
	}
	secret := make([]byte, secretLen)
	if _, err := io.ReadFull(reader, secret); err != nil {
		return nil, err
	}
	record.Secret = secret

	return record, nil
}
