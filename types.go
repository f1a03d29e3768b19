package drinkauth

import (
	"context"
	"time"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/oauth"
)

// AuthResult is the outcome of one authentication attempt, shared by the
// password and provider paths. The zero value is an unsuccessful result.
type AuthResult = oauth.Result

// Provider identifies an external identity provider.
type Provider = oauth.Provider

// ProviderConfig holds one provider's endpoints and client registration.
type ProviderConfig = oauth.ProviderConfig

// Supported providers, re-exported for callers that only import the root
// package.
const (
	ProviderGoogle   = oauth.ProviderGoogle
	ProviderGitHub   = oauth.ProviderGitHub
	ProviderFacebook = oauth.ProviderFacebook
	ProviderLinkedIn = oauth.ProviderLinkedIn
	ProviderTwitter  = oauth.ProviderTwitter
)

// DefaultProviderConfig returns the stock endpoints and flow shape for a
// provider, with client registration fields left empty.
func DefaultProviderConfig(p Provider) ProviderConfig {
	return oauth.DefaultProviderConfig(p)
}

// OAuthDriver is the provider-flow contract the engine dispatches to. The
// drivers in the oauth package satisfy it; tests substitute mocks. The
// engine passes a driver's result through unchanged.
type OAuthDriver interface {
	Provider() Provider
	AuthorizationURL() (string, error)
	Authenticate(ctx context.Context) (AuthResult, error)
	ExchangeCode(ctx context.Context, code string) (AuthResult, error)
}

// TwoFactorProvision is handed to the caller after BeginTwoFactorSetup so
// the secret can be shown once (QR code / manual entry). The secret is
// not persisted to the user record until one valid code confirms it.
type TwoFactorProvision struct {
	SecretBase32 string
	ProvisionURI string
	ExpiresAt    time.Time
}

// Report is a point-in-time description of the engine's security posture.
type Report struct {
	PasswordAlgorithm string
	UpgradeOnLogin    bool
	TwoFactorEnabled  bool
	Providers         []string
	AuditEnabled      bool
	AuditDropped      uint64
	MetricsEnabled    bool
}
