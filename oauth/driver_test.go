package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/session"
	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/user"
)

type fakeUserStore struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]user.User
	calls int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: make(map[uuid.UUID]user.User)}
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) Create(_ context.Context, u user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, existing := range f.byID {
		if existing.Username == u.Username {
			return user.ErrDuplicate
		}
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserStore) Update(_ context.Context, u user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return user.ErrNotFound
	}
	f.byID[u.ID] = u
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]session.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]session.Session)}
}

func (f *fakeSessionStore) Create(_ context.Context, userID uuid.UUID) (session.Session, error) {
	sess, err := session.New(uuid.New(), userID)
	if err != nil {
		return session.Session{}, err
	}
	f.mu.Lock()
	f.sessions[sess.SessionID] = sess
	f.mu.Unlock()
	return sess, nil
}

func (f *fakeSessionStore) Get(_ context.Context, sessionID uuid.UUID) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (f *fakeSessionStore) End(_ context.Context, sessionID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[sessionID]
	delete(f.sessions, sessionID)
	return ok, nil
}

// githubProviderServer fakes the token and userinfo endpoints for a
// code-flow provider with the GitHub payload shape.
func githubProviderServer(t *testing.T, wantCode string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("code") != wantCode {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_testtoken"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_testtoken" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    583231,
			"login": "octocat",
			"name":  "The Octocat",
			"email": "octocat@example.com",
		})
	})

	return httptest.NewServer(mux)
}

func newGitHubTestDriver(t *testing.T, srv *httptest.Server, opts Options) *Driver {
	t.Helper()

	cfg := DefaultProviderConfig(ProviderGitHub)
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	cfg.AuthURL = srv.URL + "/authorize"
	cfg.TokenURL = srv.URL + "/token"
	cfg.UserInfoURL = srv.URL + "/user"
	cfg.RedirectURL = "http://127.0.0.1:8890/auth"
	cfg.ListenAddr = ""

	if opts.Users == nil {
		opts.Users = newFakeUserStore()
	}
	if opts.Sessions == nil {
		opts.Sessions = newFakeSessionStore()
	}
	opts.HTTPClient = srv.Client()

	d, err := NewDriver(ProviderGitHub, cfg, opts)
	if err != nil {
		t.Fatalf("NewDriver error: %v", err)
	}
	return d
}

func TestExchangeCodeProvisionsAndCreatesSession(t *testing.T) {
	srv := githubProviderServer(t, "good-code")
	defer srv.Close()

	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	d := newGitHubTestDriver(t, srv, Options{Users: users, Sessions: sessions})

	res, err := d.ExchangeCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("ExchangeCode error: %v", err)
	}
	if !res.Successful {
		t.Fatal("expected successful result")
	}
	if !res.IsNewAccount {
		t.Fatal("expected first sign-in to provision a new account")
	}
	if res.SessionID == uuid.Nil {
		t.Fatal("expected a session id")
	}
	if res.ProviderToken != "gho_testtoken" {
		t.Fatalf("provider token = %q", res.ProviderToken)
	}

	wantID := SubjectUUID("github:583231")
	usr, err := users.GetByID(context.Background(), wantID)
	if err != nil {
		t.Fatalf("provisioned user lookup: %v", err)
	}
	if usr.Username != "The Octocat" {
		t.Fatalf("username = %q", usr.Username)
	}
	if usr.PasswordHash != "" {
		t.Fatal("provider accounts must not carry a password hash")
	}

	sess, err := sessions.Get(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("session lookup: %v", err)
	}
	if sess.UserID != wantID {
		t.Fatalf("session user = %s, want %s", sess.UserID, wantID)
	}
}

func TestExchangeCodeSecondLoginReusesAccount(t *testing.T) {
	srv := githubProviderServer(t, "good-code")
	defer srv.Close()

	users := newFakeUserStore()
	d := newGitHubTestDriver(t, srv, Options{Users: users})

	first, err := d.ExchangeCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("first ExchangeCode error: %v", err)
	}
	second, err := d.ExchangeCode(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("second ExchangeCode error: %v", err)
	}

	if !first.IsNewAccount {
		t.Fatal("expected first login to provision")
	}
	if second.IsNewAccount {
		t.Fatal("expected second login to reuse the account")
	}
	if first.SessionID == second.SessionID {
		t.Fatal("expected distinct sessions per login")
	}
}

func TestExchangeCodeRejectedByProvider(t *testing.T) {
	srv := githubProviderServer(t, "good-code")
	defer srv.Close()

	d := newGitHubTestDriver(t, srv, Options{})

	res, err := d.ExchangeCode(context.Background(), "stale-code")
	if err == nil {
		t.Fatal("expected an error for a rejected code")
	}
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("error = %v, want ErrProviderUnavailable", err)
	}
	if res.Successful {
		t.Fatal("result must be unsuccessful")
	}
}

func TestExchangeCodeMissingCode(t *testing.T) {
	srv := githubProviderServer(t, "good-code")
	defer srv.Close()

	d := newGitHubTestDriver(t, srv, Options{})

	if _, err := d.ExchangeCode(context.Background(), ""); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("error = %v, want ErrMissingCode", err)
	}
}

func TestImplicitFlowSkipsTokenEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		t.Error("implicit flow must not call the token endpoint")
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fb-fragment-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":   "10158000000000001",
			"name": "Pat Example",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := DefaultProviderConfig(ProviderFacebook)
	cfg.ClientID = "fb-client"
	cfg.AuthURL = srv.URL + "/dialog"
	cfg.TokenURL = srv.URL + "/token"
	cfg.UserInfoURL = srv.URL + "/me"
	cfg.RedirectURL = "http://127.0.0.1:8888/auth"
	cfg.ListenAddr = ""

	d, err := NewDriver(ProviderFacebook, cfg, Options{
		Users:      newFakeUserStore(),
		Sessions:   newFakeSessionStore(),
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewDriver error: %v", err)
	}

	res, err := d.ExchangeCode(context.Background(), "fb-fragment-token")
	if err != nil {
		t.Fatalf("ExchangeCode error: %v", err)
	}
	if !res.Successful {
		t.Fatal("expected successful result")
	}
	if res.ProviderToken != "fb-fragment-token" {
		t.Fatalf("provider token = %q", res.ProviderToken)
	}
}

func TestAuthorizationURLArmsPKCE(t *testing.T) {
	cfg := DefaultProviderConfig(ProviderTwitter)
	cfg.ClientID = "tw-client"
	cfg.RedirectURL = "http://127.0.0.1:8892/auth"

	d, err := NewDriver(ProviderTwitter, cfg, Options{
		Users:    newFakeUserStore(),
		Sessions: newFakeSessionStore(),
	})
	if err != nil {
		t.Fatalf("NewDriver error: %v", err)
	}

	raw, err := d.AuthorizationURL()
	if err != nil {
		t.Fatalf("AuthorizationURL error: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("authorization URL does not parse: %v", err)
	}
	q := parsed.Query()

	if q.Get("response_type") != "code" {
		t.Fatalf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Fatalf("code_challenge_method = %q", q.Get("code_challenge_method"))
	}
	if q.Get("state") == "" {
		t.Fatal("missing state")
	}

	d.mu.Lock()
	verifier := d.verifier
	d.mu.Unlock()
	if verifier == "" {
		t.Fatal("expected armed verifier")
	}
	if q.Get("code_challenge") != ComputeS256Challenge(verifier) {
		t.Fatal("challenge does not pair with armed verifier")
	}

	// A second call re-arms: fresh state, fresh verifier.
	raw2, err := d.AuthorizationURL()
	if err != nil {
		t.Fatalf("AuthorizationURL error: %v", err)
	}
	if raw2 == raw {
		t.Fatal("expected fresh state/verifier per authorization URL")
	}
}

func TestAuthenticateCancelledResolvesUnsuccessful(t *testing.T) {
	srv := githubProviderServer(t, "good-code")
	defer srv.Close()

	listener := NewListener("127.0.0.1:0")
	if err := listener.Start(); err != nil {
		t.Fatalf("listener start: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = listener.Stop(stopCtx)
	}()

	d := newGitHubTestDriver(t, srv, Options{
		Listener: listener,
		OpenURL:  func(string) error { return nil },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := d.Authenticate(ctx)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if res.Successful {
		t.Fatal("abandoned attempt must resolve unsuccessful")
	}
}

func TestAuthenticateFullLoop(t *testing.T) {
	srv := githubProviderServer(t, "good-code")
	defer srv.Close()

	listener := NewListener("127.0.0.1:0")
	if err := listener.Start(); err != nil {
		t.Fatalf("listener start: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = listener.Stop(stopCtx)
	}()

	// The browser stub plays the provider's part: it reads the state from
	// the consent URL and posts the redirect payload to the listener.
	openURL := func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		state := parsed.Query().Get("state")

		go func() {
			form := url.Values{}
			form.Set("code", "good-code")
			form.Set("state", state)
			resp, err := http.Post(
				"http://"+listener.Addr()+"/exchange",
				"application/x-www-form-urlencoded",
				strings.NewReader(form.Encode()),
			)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	d := newGitHubTestDriver(t, srv, Options{
		Listener: listener,
		OpenURL:  openURL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := d.Authenticate(ctx)
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if !res.Successful {
		t.Fatal("expected successful interactive flow")
	}
	if !res.IsNewAccount {
		t.Fatal("expected auto-provisioned account")
	}
}

func TestAuthenticateStateMismatch(t *testing.T) {
	srv := githubProviderServer(t, "good-code")
	defer srv.Close()

	listener := NewListener("127.0.0.1:0")
	if err := listener.Start(); err != nil {
		t.Fatalf("listener start: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = listener.Stop(stopCtx)
	}()

	openURL := func(string) error {
		go func() {
			form := url.Values{}
			form.Set("code", "good-code")
			form.Set("state", "forged-state")
			resp, err := http.Post(
				"http://"+listener.Addr()+"/exchange",
				"application/x-www-form-urlencoded",
				strings.NewReader(form.Encode()),
			)
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}

	d := newGitHubTestDriver(t, srv, Options{
		Listener: listener,
		OpenURL:  openURL,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := d.Authenticate(ctx)
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("error = %v, want ErrStateMismatch", err)
	}
	if res.Successful {
		t.Fatal("forged state must not authenticate")
	}
}
