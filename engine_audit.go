package drinkauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginAutoProvisioned = "login_auto_provisioned"
	auditEventOAuthSuccess         = "oauth_success"
	auditEventOAuthFailure         = "oauth_failure"
	auditEventOAuthProvisioned     = "oauth_auto_provisioned"
	auditEventLogoutSession        = "logout_session"
	auditEventTwoFactorRequested   = "twofactor_setup_requested"
	auditEventTwoFactorEnabled     = "twofactor_enabled"
	auditEventTwoFactorSuccess     = "twofactor_success"
	auditEventTwoFactorFailure     = "twofactor_failure"
)

// AuditErrorCode defines a public type used by drinkauth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials    AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound          AuditErrorCode = "user_not_found"
	auditErrSessionNotFound       AuditErrorCode = "session_not_found"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrSessionInvalidation   AuditErrorCode = "session_invalidation_failed"
	auditErrProviderUnavailable   AuditErrorCode = "provider_unavailable"
	auditErrProviderMisconfigured AuditErrorCode = "provider_not_configured"
	auditErrTwoFactorInvalid      AuditErrorCode = "twofactor_invalid"
	auditErrAttemptsExceeded      AuditErrorCode = "attempts_exceeded"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	provider string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		Provider:  provider,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	case errors.Is(err, ErrProviderNotConfigured):
		return auditErrProviderMisconfigured
	case errors.Is(err, ErrProviderUnavailable):
		return auditErrProviderUnavailable
	case errors.Is(err, ErrTwoFactorInvalid),
		errors.Is(err, ErrTwoFactorNotConfigured),
		errors.Is(err, ErrEnrollmentNotFound),
		errors.Is(err, ErrEnrollmentExpired):
		return auditErrTwoFactorInvalid
	case errors.Is(err, ErrEnrollmentAttemptsExceeded):
		return auditErrAttemptsExceeded
	case errors.Is(err, ErrTwoFactorUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
