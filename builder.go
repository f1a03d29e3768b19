package drinkauth

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/oauth"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/password"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/session"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/user"
)

// Builder defines a public type used by drinkauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users    user.Store
	sessions session.Store

	auditSink  AuditSink
	httpClient *http.Client
	openURL    func(string) error
	drivers    map[Provider]OAuthDriver

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config:  defaultConfig(),
		drivers: map[Provider]OAuthDriver{},
	}
}

// WithConfig replaces the builder's configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the session reference store
// and the pending two-factor enrollment store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore supplies the host's user persistence. Required.
func (b *Builder) WithUserStore(store user.Store) *Builder {
	b.users = store
	return b
}

// WithSessionStore overrides the Redis reference session store with a
// host-supplied adapter.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessions = store
	return b
}

// WithAuditSink supplies the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient overrides the client used for provider round trips.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithBrowserOpener overrides how consent pages are launched. Tests
// substitute a recorder; the default shells out to the platform opener.
func (b *Builder) WithBrowserOpener(open func(url string) error) *Builder {
	b.openURL = open
	return b
}

// WithDriver injects a driver for one provider, bypassing construction
// from [OAuthConfig]. The main seam for mock drivers in tests.
func (b *Builder) WithDriver(p Provider, d OAuthDriver) *Builder {
	b.drivers[p] = d
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, ErrBuilderMissingUserStore
	}

	// -------- SESSION STORE --------
	sessions := b.sessions
	if sessions == nil {
		if b.redis == nil {
			return nil, ErrBuilderMissingRedis
		}
		sessions = session.NewRedisStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.Lifetime,
			cfg.Session.SlidingExpiration,
		)
	}

	// -------- TWO-FACTOR --------
	var enrollments *enrollmentStore
	if cfg.TwoFactor.Enabled {
		if b.redis == nil {
			return nil, ErrBuilderMissingRedis
		}
		enrollments = newEnrollmentStore(b.redis, cfg.TwoFactor.RedisPrefix)
	}

	engine := &Engine{
		config:      cfg,
		users:       b.users,
		sessions:    sessions,
		enrollments: enrollments,
		listeners:   map[Provider]*oauth.Listener{},
		drivers:     map[Provider]OAuthDriver{},
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.totp = newTOTPManager(cfg.TwoFactor)

	hasher, err := password.NewHasher(password.Config{
		Algorithm: cfg.Password.Algorithm,
		Argon2: password.Argon2Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	// -------- OAUTH DRIVERS --------
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.OAuth.RequestTimeout}
	}
	openURL := b.openURL
	if openURL == nil {
		openURL = openBrowser
	}

	for p, pc := range cfg.OAuth.Providers {
		if _, injected := b.drivers[p]; injected {
			continue
		}

		var listener *oauth.Listener
		if pc.ListenAddr != "" {
			listener = oauth.NewListener(pc.ListenAddr)
			if err := listener.Start(); err != nil {
				engine.stopListeners()
				return nil, err
			}
			engine.listeners[p] = listener
		}

		driver, err := oauth.NewDriver(p, pc, oauth.Options{
			Users:      b.users,
			Sessions:   sessions,
			HTTPClient: httpClient,
			Listener:   listener,
			OpenURL:    openURL,
		})
		if err != nil {
			engine.stopListeners()
			return nil, err
		}
		engine.drivers[p] = driver
	}

	for p, d := range b.drivers {
		engine.drivers[p] = d
	}

	b.built = true

	return engine, nil
}
