package drinkauth

import (
	"errors"
	"time"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/oauth"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/password"
)

// Config defines a public type used by drinkauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Session   SessionConfig
	Password  PasswordConfig
	TwoFactor TwoFactorConfig
	OAuth     OAuthConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by drinkauth APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix       string
	Lifetime          time.Duration
	SlidingExpiration bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by drinkauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Algorithm      string // "sha256" or "argon2id"
	Memory         uint32 // in KB, argon2id only
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
TWO-FACTOR CONFIG
====================================
*/

// TwoFactorConfig defines a public type used by drinkauth APIs.
//
// TwoFactorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TwoFactorConfig struct {
	Enabled          bool
	Issuer           string
	Digits           int
	Period           int
	Algorithm        string // "SHA1" (default), "SHA256", "SHA512"
	Skew             int
	SecretLength     int
	EnrollmentTTL    time.Duration
	EnrollmentMaxTry int
	RedisPrefix      string
}

/*
====================================
OAUTH CONFIG
====================================
*/

// OAuthConfig defines a public type used by drinkauth APIs.
//
// OAuthConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type OAuthConfig struct {
	// Providers maps each enabled provider to its endpoints and client
	// registration. Providers absent from the map are not dispatchable.
	Providers map[Provider]ProviderConfig

	RequestTimeout time.Duration
}

// AuditConfig defines a public type used by drinkauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by drinkauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:       "ds",
			Lifetime:          7 * 24 * time.Hour,
			SlidingExpiration: true,
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmSHA256,
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: false,
		},
		TwoFactor: TwoFactorConfig{
			Enabled:          false,
			Issuer:           "",
			Digits:           6,
			Period:           30,
			Algorithm:        "SHA1",
			Skew:             1,
			SecretLength:     20,
			EnrollmentTTL:    10 * time.Minute,
			EnrollmentMaxTry: 5,
			RedisPrefix:      "d2fa",
		},
		OAuth: OAuthConfig{
			Providers:      map[Provider]ProviderConfig{},
			RequestTimeout: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.OAuth.Providers != nil {
		out.OAuth.Providers = make(map[Provider]ProviderConfig, len(cfg.OAuth.Providers))
		for p, pc := range cfg.OAuth.Providers {
			pc.Scopes = append([]string(nil), pc.Scopes...)
			out.OAuth.Providers[p] = pc
		}
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}

	// Password
	if c.Password.Algorithm != password.AlgorithmSHA256 && c.Password.Algorithm != password.AlgorithmArgon2ID {
		return errors.New("Password Algorithm must be 'sha256' or 'argon2id'")
	}
	if c.Password.Algorithm == password.AlgorithmArgon2ID {
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	}
	if c.Password.UpgradeOnLogin && c.Password.Algorithm != password.AlgorithmArgon2ID {
		return errors.New("Password UpgradeOnLogin requires the argon2id algorithm")
	}

	// TwoFactor
	if c.TwoFactor.Enabled {
		if c.TwoFactor.Issuer == "" {
			return errors.New("TwoFactor Issuer must not be empty")
		}
		if c.TwoFactor.Digits < 6 || c.TwoFactor.Digits > 10 {
			return errors.New("TwoFactor Digits must be between 6 and 10")
		}
		if c.TwoFactor.Period < 15 {
			return errors.New("TwoFactor Period must be >= 15 seconds")
		}
		if c.TwoFactor.Skew < 0 || c.TwoFactor.Skew > 4 {
			return errors.New("TwoFactor Skew must be between 0 and 4")
		}
		if c.TwoFactor.SecretLength < 16 {
			return errors.New("TwoFactor SecretLength must be >= 16 bytes")
		}
		switch c.TwoFactor.Algorithm {
		case "SHA1", "SHA256", "SHA512":
		default:
			return errors.New("TwoFactor Algorithm must be SHA1, SHA256, or SHA512")
		}
		if c.TwoFactor.EnrollmentTTL <= 0 {
			return errors.New("TwoFactor EnrollmentTTL must be > 0")
		}
		if c.TwoFactor.EnrollmentMaxTry < 1 {
			return errors.New("TwoFactor EnrollmentMaxTry must be >= 1")
		}
		if c.TwoFactor.RedisPrefix == "" {
			return errors.New("TwoFactor RedisPrefix must not be empty")
		}
	}

	// OAuth
	if c.OAuth.RequestTimeout <= 0 {
		return errors.New("OAuth RequestTimeout must be > 0")
	}
	for p, pc := range c.OAuth.Providers {
		if p == oauth.ProviderUnknown {
			return errors.New("OAuth Providers must not contain the unknown provider")
		}
		if pc.ClientID == "" {
			return errors.New("OAuth provider " + p.String() + " requires a ClientID")
		}
		if pc.AuthURL == "" || pc.UserInfoURL == "" {
			return errors.New("OAuth provider " + p.String() + " requires AuthURL and UserInfoURL")
		}
		if !pc.ImplicitFlow && pc.TokenURL == "" {
			return errors.New("OAuth provider " + p.String() + " requires a TokenURL")
		}
		if pc.RedirectURL == "" {
			return errors.New("OAuth provider " + p.String() + " requires a RedirectURL")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
