package oauth

import (
	"errors"
	"fmt"
)

// Provider identifies an external identity provider.
type Provider uint8

// Supported providers.
const (
	ProviderUnknown Provider = iota
	ProviderGoogle
	ProviderGitHub
	ProviderFacebook
	ProviderLinkedIn
	ProviderTwitter
)

// ErrUnknownProvider is returned when a provider id is not recognized.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// String returns the canonical lowercase provider name.
func (p Provider) String() string {
	switch p {
	case ProviderGoogle:
		return "google"
	case ProviderGitHub:
		return "github"
	case ProviderFacebook:
		return "facebook"
	case ProviderLinkedIn:
		return "linkedin"
	case ProviderTwitter:
		return "twitter"
	default:
		return "unknown"
	}
}

// ParseProvider maps a canonical provider name back to its enum value.
func ParseProvider(name string) (Provider, error) {
	switch name {
	case "google":
		return ProviderGoogle, nil
	case "github":
		return ProviderGitHub, nil
	case "facebook":
		return ProviderFacebook, nil
	case "linkedin":
		return ProviderLinkedIn, nil
	case "twitter", "x":
		return ProviderTwitter, nil
	default:
		return ProviderUnknown, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// ProviderConfig holds one provider's endpoints and client registration.
// Instances are intended to be configured during initialization and then
// treated as immutable.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	RedirectURL string
	Scopes      []string

	// ListenAddr, when non-empty, runs a loopback listener for this
	// provider so the interactive flow can capture the redirect locally.
	ListenAddr string

	// UsePKCE arms an S256 code challenge on every authorization URL.
	UsePKCE bool

	// ImplicitFlow providers return the access token in the redirect URL
	// fragment; the token exchange step is skipped.
	ImplicitFlow bool
}

// DefaultProviderConfig returns the stock endpoints and flow shape for a
// provider. Client registration fields are left empty for the caller.
func DefaultProviderConfig(p Provider) ProviderConfig {
	switch p {
	case ProviderGoogle:
		return ProviderConfig{
			AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:    "https://oauth2.googleapis.com/token",
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes:      []string{"openid", "profile", "email"},
			ListenAddr:  "127.0.0.1:8889",
			UsePKCE:     true,
		}
	case ProviderGitHub:
		return ProviderConfig{
			AuthURL:     "https://github.com/login/oauth/authorize",
			TokenURL:    "https://github.com/login/oauth/access_token",
			UserInfoURL: "https://api.github.com/user",
			Scopes:      []string{"read:user", "user:email"},
			ListenAddr:  "127.0.0.1:8890",
		}
	case ProviderFacebook:
		return ProviderConfig{
			AuthURL:      "https://www.facebook.com/v17.0/dialog/oauth",
			TokenURL:     "https://graph.facebook.com/v17.0/oauth/access_token",
			UserInfoURL:  "https://graph.facebook.com/me?fields=id,name,email",
			Scopes:       []string{"public_profile", "email"},
			ListenAddr:   "127.0.0.1:8888",
			ImplicitFlow: true,
		}
	case ProviderLinkedIn:
		return ProviderConfig{
			AuthURL:     "https://www.linkedin.com/oauth/v2/authorization",
			TokenURL:    "https://www.linkedin.com/oauth/v2/accessToken",
			UserInfoURL: "https://api.linkedin.com/v2/userinfo",
			Scopes:      []string{"openid", "profile", "email"},
			ListenAddr:  "127.0.0.1:8891",
		}
	case ProviderTwitter:
		return ProviderConfig{
			AuthURL:     "https://twitter.com/i/oauth2/authorize",
			TokenURL:    "https://api.twitter.com/2/oauth2/token",
			UserInfoURL: "https://api.twitter.com/2/users/me",
			Scopes:      []string{"tweet.read", "users.read"},
			ListenAddr:  "127.0.0.1:8892",
			UsePKCE:     true,
		}
	default:
		return ProviderConfig{}
	}
}
