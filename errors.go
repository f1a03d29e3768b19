package drinkauth

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserCreationFailed is an exported constant or variable used by the authentication engine.
	ErrUserCreationFailed = errors.New("user creation failed")
	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCreationFailed is an exported constant or variable used by the authentication engine.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed is an exported constant or variable used by the authentication engine.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrProviderNotConfigured is an exported constant or variable used by the authentication engine.
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
	// ErrProviderUnavailable is an exported constant or variable used by the authentication engine.
	ErrProviderUnavailable = errors.New("oauth provider unavailable")
	// ErrTwoFactorFeatureDisabled is an exported constant or variable used by the authentication engine.
	ErrTwoFactorFeatureDisabled = errors.New("two-factor feature disabled")
	// ErrTwoFactorInvalid is an exported constant or variable used by the authentication engine.
	ErrTwoFactorInvalid = errors.New("invalid two-factor code")
	// ErrTwoFactorNotConfigured is an exported constant or variable used by the authentication engine.
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrTwoFactorAlreadyEnabled is an exported constant or variable used by the authentication engine.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrTwoFactorUnavailable is an exported constant or variable used by the authentication engine.
	ErrTwoFactorUnavailable = errors.New("two-factor backend unavailable")
	// ErrEnrollmentNotFound is an exported constant or variable used by the authentication engine.
	ErrEnrollmentNotFound = errors.New("two-factor enrollment not found")
	// ErrEnrollmentExpired is an exported constant or variable used by the authentication engine.
	ErrEnrollmentExpired = errors.New("two-factor enrollment expired")
	// ErrEnrollmentAttemptsExceeded is an exported constant or variable used by the authentication engine.
	ErrEnrollmentAttemptsExceeded = errors.New("two-factor enrollment attempts exceeded")
	// ErrBuilderMissingUserStore is an exported constant or variable used by the authentication engine.
	ErrBuilderMissingUserStore = errors.New("builder requires a user store")
	// ErrBuilderMissingRedis is an exported constant or variable used by the authentication engine.
	ErrBuilderMissingRedis = errors.New("builder requires a redis client")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrEngineClosed is an exported constant or variable used by the authentication engine.
	ErrEngineClosed = errors.New("engine closed")
)
