package drinkauth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/user"
)

// AuthenticateWithPassword verifies a username/password pair and opens a
// session on success.
//
// An unknown username is not an error: the account is auto-provisioned
// with the supplied credentials and the result reports IsNewAccount.
// A password mismatch — including a mismatch against a provider-only
// account that has no password digest — yields an unsuccessful result
// with a nil error; callers cannot distinguish "no such user" from
// "wrong password" through the error.
func (e *Engine) AuthenticateWithPassword(ctx context.Context, username, plaintext string) (AuthResult, error) {
	if err := e.ready(); err != nil {
		return AuthResult{}, err
	}

	u, err := e.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return e.loginExisting(ctx, u, plaintext)
	case errors.Is(err, user.ErrNotFound):
		return e.provisionAccount(ctx, username, plaintext)
	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", "", err, nil)
		return AuthResult{}, err
	}
}

func (e *Engine) loginExisting(ctx context.Context, u user.User, plaintext string) (AuthResult, error) {
	// Provider-only accounts carry no digest and can never match.
	if u.PasswordHash == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, u.ID.String(), "", "", ErrInvalidCredentials, nil)
		return AuthResult{}, nil
	}

	ok, err := e.hasher.Verify(plaintext, u.PasswordHash)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, u.ID.String(), "", "", err, nil)
		return AuthResult{}, err
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, u.ID.String(), "", "", ErrInvalidCredentials, nil)
		return AuthResult{}, nil
	}

	if e.config.Password.UpgradeOnLogin {
		if needs, upErr := e.hasher.NeedsUpgrade(u.PasswordHash); upErr == nil && needs {
			e.upgradeDigest(ctx, u, plaintext)
		}
	}

	sess, err := e.sessions.Create(ctx, u.ID)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, u.ID.String(), "", "", wrapped, nil)
		return AuthResult{}, wrapped
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, u.ID.String(), sess.SessionID.String(), "", nil, nil)

	return AuthResult{Successful: true, SessionID: sess.SessionID}, nil
}

func (e *Engine) provisionAccount(ctx context.Context, username, plaintext string) (AuthResult, error) {
	digest, err := e.hasher.Hash(plaintext)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", "", err, nil)
		return AuthResult{}, err
	}

	u := user.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: digest,
	}
	if err := e.users.Create(ctx, u); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrUserCreationFailed, err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", "", wrapped, nil)
		return AuthResult{}, wrapped
	}

	sess, err := e.sessions.Create(ctx, u.ID)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, u.ID.String(), "", "", wrapped, nil)
		return AuthResult{}, wrapped
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricLoginAutoProvisioned)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginAutoProvisioned, true, u.ID.String(), sess.SessionID.String(), "", nil, func() map[string]string {
		return map[string]string{"username": username}
	})

	return AuthResult{Successful: true, SessionID: sess.SessionID, IsNewAccount: true}, nil
}

// upgradeDigest rehashes on login when the stored digest predates the
// configured algorithm. Best effort: the login already succeeded, so a
// failed rewrite is logged and ignored.
func (e *Engine) upgradeDigest(ctx context.Context, u user.User, plaintext string) {
	digest, err := e.hasher.Hash(plaintext)
	if err != nil {
		log.Printf("drinkauth: digest upgrade hash failed for %s: %v", u.ID, err)
		return
	}
	u.PasswordHash = digest
	if err := e.users.Update(ctx, u); err != nil {
		log.Printf("drinkauth: digest upgrade store failed for %s: %v", u.ID, err)
	}
}
