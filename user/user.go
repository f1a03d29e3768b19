// Package user defines the account record and the storage contract the
// authentication engine consumes. The engine never owns user persistence;
// callers plug in their own database behind [Store].
package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Store lookups when no matching user exists.
var ErrNotFound = errors.New("user not found")

// ErrDuplicate is returned by Store.Create when the username is taken.
var ErrDuplicate = errors.New("username already exists")

// User is the minimal account record the engine operates on. PasswordHash
// is empty for accounts provisioned through an OAuth provider.
// TwoFactorSecret is nil until two-factor enrollment is confirmed.
type User struct {
	ID              uuid.UUID
	Username        string
	PasswordHash    string
	TwoFactorSecret []byte
}

// Enrolled reports whether the user has a confirmed two-factor secret.
func (u User) Enrolled() bool {
	return len(u.TwoFactorSecret) > 0
}

// Store is the user persistence contract the engine consumes. Implementations
// must return [ErrNotFound] (possibly wrapped) from lookups that miss and
// [ErrDuplicate] from Create on a username collision. Each call is assumed
// atomic; the engine never coordinates transactions across calls.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error
}
