package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/session"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/user"
)

// ErrMissingCode is returned when ExchangeCode is called with an empty code.
var ErrMissingCode = errors.New("missing authorization code")

// ErrStateMismatch is returned when the redirect state does not match the
// state embedded in the authorization URL.
var ErrStateMismatch = errors.New("oauth state mismatch")

// ErrProviderUnavailable wraps transport failures and non-2xx provider
// responses during token exchange or profile fetch.
var ErrProviderUnavailable = errors.New("provider unavailable")

// ErrProviderResponseInvalid is returned when a provider response parses
// but lacks the fields the flow requires.
var ErrProviderResponseInvalid = errors.New("provider response invalid")

// ErrListenerRequired is returned by Authenticate when the driver has no
// listener to capture the redirect.
var ErrListenerRequired = errors.New("redirect listener required")

// ErrMissingDependency is returned by NewDriver when a required store or
// client is absent.
var ErrMissingDependency = errors.New("missing driver dependency")

// Result is the outcome of one authentication attempt. The zero value is
// an unsuccessful result. SessionID is set only on success; IsNewAccount
// reports auto-provisioning of a previously unseen identity.
type Result struct {
	Successful    bool
	SessionID     uuid.UUID
	IsNewAccount  bool
	ProviderToken string
}

// Options carries the driver's collaborators. Listener and OpenURL are
// only needed for the interactive Authenticate flow; ExchangeCode works
// without them when the host application captures the code itself.
type Options struct {
	Users    user.Store
	Sessions session.Store

	HTTPClient *http.Client
	Listener   *Listener

	// OpenURL launches the system browser at the consent page. Tests
	// substitute a recorder.
	OpenURL func(url string) error
}

// Driver runs one provider's sign-in flow. A driver is safe for
// concurrent use, but interactive attempts against the same listener are
// serialized by the listener's single pending completion.
type Driver struct {
	provider Provider
	cfg      ProviderConfig

	users    user.Store
	sessions session.Store
	http     *http.Client
	listener *Listener
	openURL  func(string) error

	// One exchange per armed verifier: AuthorizationURL arms, the next
	// ExchangeCode consumes.
	mu       sync.Mutex
	verifier string
	state    string
}

// NewDriver creates the driver for provider p.
func NewDriver(p Provider, cfg ProviderConfig, opts Options) (*Driver, error) {
	if p == ProviderUnknown {
		return nil, ErrUnknownProvider
	}
	if opts.Users == nil {
		return nil, fmt.Errorf("%w: user store", ErrMissingDependency)
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("%w: session store", ErrMissingDependency)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Driver{
		provider: p,
		cfg:      cfg,
		users:    opts.Users,
		sessions: opts.Sessions,
		http:     httpClient,
		listener: opts.Listener,
		openURL:  opts.OpenURL,
	}, nil
}

// Provider returns the provider this driver serves.
func (d *Driver) Provider() Provider {
	return d.provider
}

// AuthorizationURL builds the consent-page URL. Each call arms fresh state
// and, for PKCE providers, a fresh verifier; the paired challenge is
// embedded in the URL and the verifier is held for the next exchange.
func (d *Driver) AuthorizationURL() (string, error) {
	state, err := newState()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("client_id", d.cfg.ClientID)
	q.Set("redirect_uri", d.cfg.RedirectURL)
	q.Set("state", state)
	if len(d.cfg.Scopes) > 0 {
		q.Set("scope", strings.Join(d.cfg.Scopes, " "))
	}

	if d.cfg.ImplicitFlow {
		q.Set("response_type", "token")
	} else {
		q.Set("response_type", "code")
	}

	verifier := ""
	if d.cfg.UsePKCE {
		var challenge string
		verifier, challenge, err = GeneratePKCE()
		if err != nil {
			return "", err
		}
		q.Set("code_challenge", challenge)
		q.Set("code_challenge_method", "S256")
	}

	d.mu.Lock()
	d.state = state
	d.verifier = verifier
	d.mu.Unlock()

	return d.cfg.AuthURL + "?" + q.Encode(), nil
}

// Authenticate runs the full interactive flow: consent page in the
// browser, redirect capture on the loopback listener, code exchange,
// local user resolution, session creation. Closing the consent window
// (ctx cancellation) resolves to an unsuccessful Result, not an error.
func (d *Driver) Authenticate(ctx context.Context) (Result, error) {
	if d.listener == nil {
		return Result{}, ErrListenerRequired
	}
	if d.openURL == nil {
		return Result{}, fmt.Errorf("%w: browser opener", ErrMissingDependency)
	}

	authURL, err := d.AuthorizationURL()
	if err != nil {
		return Result{}, err
	}

	completion := d.listener.Arm()

	if err := d.openURL(authURL); err != nil {
		return Result{}, fmt.Errorf("open consent page: %w", err)
	}

	cb, ok := completion.Wait(ctx)
	if !ok {
		// Attempt abandoned before any redirect arrived.
		return Result{}, nil
	}

	if cb.Error != "" {
		// User denied consent at the provider.
		return Result{}, nil
	}

	d.mu.Lock()
	expectedState := d.state
	d.mu.Unlock()
	if cb.State != "" && cb.State != expectedState {
		return Result{}, ErrStateMismatch
	}

	code := cb.Code
	if d.cfg.ImplicitFlow {
		code = cb.Token
	}

	return d.ExchangeCode(ctx, code)
}

// ExchangeCode turns a captured authorization code into an authenticated
// session. For implicit-flow providers the argument is the access token
// itself and the token-endpoint round trip is skipped. The provider
// subject is mapped onto a deterministic local user id; unseen identities
// are auto-provisioned.
func (d *Driver) ExchangeCode(ctx context.Context, code string) (Result, error) {
	if code == "" {
		return Result{}, ErrMissingCode
	}

	var (
		accessToken string
		idToken     string
		err         error
	)

	if d.cfg.ImplicitFlow {
		accessToken = code
	} else {
		accessToken, idToken, err = d.exchangeToken(ctx, code)
		if err != nil {
			return Result{}, err
		}
	}

	prof, err := d.resolveProfile(ctx, accessToken, idToken)
	if err != nil {
		return Result{}, err
	}

	usr, isNew, err := d.ensureUser(ctx, prof)
	if err != nil {
		return Result{}, err
	}

	sess, err := d.sessions.Create(ctx, usr.ID)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Successful:    true,
		SessionID:     sess.SessionID,
		IsNewAccount:  isNew,
		ProviderToken: accessToken,
	}, nil
}

func (d *Driver) exchangeToken(ctx context.Context, code string) (accessToken, idToken string, err error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", d.cfg.RedirectURL)
	form.Set("client_id", d.cfg.ClientID)
	if d.cfg.ClientSecret != "" {
		form.Set("client_secret", d.cfg.ClientSecret)
	}

	d.mu.Lock()
	verifier := d.verifier
	d.verifier = ""
	d.mu.Unlock()
	if verifier != "" {
		form.Set("code_verifier", verifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: token exchange: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("%w: token exchange read: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("%w: token endpoint status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		IDToken     string `json:"id_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", "", fmt.Errorf("%w: token payload: %v", ErrProviderResponseInvalid, err)
	}
	if payload.AccessToken == "" {
		return "", "", fmt.Errorf("%w: empty access token", ErrProviderResponseInvalid)
	}

	return payload.AccessToken, payload.IDToken, nil
}

func (d *Driver) resolveProfile(ctx context.Context, accessToken, idToken string) (profile, error) {
	if d.provider == ProviderGoogle && idToken != "" {
		if prof, err := profileFromIDToken(idToken); err == nil {
			return prof, nil
		}
		// Fall through to the userinfo endpoint on a malformed id_token.
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.UserInfoURL, nil)
	if err != nil {
		return profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return profile{}, fmt.Errorf("%w: profile fetch: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return profile{}, fmt.Errorf("%w: profile read: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return profile{}, fmt.Errorf("%w: userinfo status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	return parseProfile(d.provider, body)
}

func (d *Driver) ensureUser(ctx context.Context, prof profile) (user.User, bool, error) {
	uid := SubjectUUID(d.provider.String() + ":" + prof.Subject)

	usr, err := d.users.GetByID(ctx, uid)
	if err == nil {
		return usr, false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, false, err
	}

	username := firstNonEmpty(prof.Name, prof.Email, d.provider.String()+":"+prof.Subject)
	usr = user.User{ID: uid, Username: username}

	if err := d.users.Create(ctx, usr); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			// Username collision with another account; qualify and retry once.
			usr.Username = username + "-" + uid.String()[:8]
			if err := d.users.Create(ctx, usr); err != nil {
				return user.User{}, false, err
			}
			return usr, true, nil
		}
		return user.User{}, false, err
	}

	return usr, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
