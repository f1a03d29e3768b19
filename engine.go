package drinkauth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/oauth"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/password"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/session"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/user"
)

// Engine defines a public type used by drinkauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config Config

	users    user.Store
	sessions session.Store

	hasher      *password.Hasher
	totp        *totpManager
	enrollments *enrollmentStore

	drivers   map[Provider]OAuthDriver
	listeners map[Provider]*oauth.Listener

	audit   *auditDispatcher
	metrics *Metrics

	closed atomic.Bool
}

func (e *Engine) ready() error {
	if e == nil || e.users == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e.metrics != nil {
		e.metrics.Inc(id)
	}
}

// ResolveUser loads the user behind an active session. When the store is
// configured for sliding expiration the lookup refreshes the session's
// window as a side effect.
func (e *Engine) ResolveUser(ctx context.Context, sessionID uuid.UUID) (user.User, error) {
	if err := e.ready(); err != nil {
		return user.User{}, err
	}
	start := time.Now()

	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return user.User{}, ErrSessionNotFound
		}
		return user.User{}, err
	}

	u, err := e.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}

	if e.metrics != nil {
		e.metrics.Observe(MetricResolveLatency, time.Since(start))
	}

	return u, nil
}

// Logout ends one session. Ending a session that does not exist returns
// ErrSessionNotFound, so ending it twice is observable.
func (e *Engine) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := e.ready(); err != nil {
		return err
	}

	existed, err := e.sessions.End(ctx, sessionID)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSessionInvalidationFailed, err)
		e.emitAudit(ctx, auditEventLogoutSession, false, "", sessionID.String(), "", wrapped, nil)
		return wrapped
	}
	if !existed {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", sessionID.String(), "", ErrSessionNotFound, nil)
		return ErrSessionNotFound
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, "", sessionID.String(), "", nil, nil)

	return nil
}

// MetricsSnapshot returns the current counters, or the zero snapshot when
// metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// Close stops the loopback listeners and flushes the audit pipeline.
// Idempotent; engine methods called after Close return ErrEngineClosed.
func (e *Engine) Close(ctx context.Context) error {
	if e == nil {
		return nil
	}
	if e.closed.Swap(true) {
		return nil
	}

	var firstErr error
	for _, l := range e.listeners {
		if err := l.Stop(ctx); err != nil && !errors.Is(err, oauth.ErrListenerNotStarted) && firstErr == nil {
			firstErr = err
		}
	}

	e.audit.Close()

	return firstErr
}

func (e *Engine) stopListeners() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, l := range e.listeners {
		_ = l.Stop(ctx)
	}
}
