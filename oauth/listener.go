package oauth

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// ErrListenerStarted is returned by Start when the listener already runs.
var ErrListenerStarted = errors.New("listener already started")

// ErrListenerNotStarted is returned by Stop when the listener never ran.
var ErrListenerNotStarted = errors.New("listener not started")

// Callback carries what the provider redirect delivered: an authorization
// code, or for implicit-flow providers the access token lifted from the
// URL fragment. Error holds the provider's error parameter when the user
// denied consent.
type Callback struct {
	Code  string
	Token string
	State string
	Error string
}

// Completion is a one-shot handoff between the listener and a single
// sign-in attempt. It resolves at most once; later redirects while no
// attempt is armed are dropped by the listener.
type Completion struct {
	once sync.Once
	ch   chan Callback
}

func newCompletion() *Completion {
	return &Completion{ch: make(chan Callback, 1)}
}

func (c *Completion) resolve(cb Callback) bool {
	resolved := false
	c.once.Do(func() {
		c.ch <- cb
		resolved = true
	})
	return resolved
}

// Wait suspends until the completion resolves or ctx is done. The second
// return value is false when the attempt was abandoned (ctx cancelled or
// deadline passed) before any redirect arrived.
func (c *Completion) Wait(ctx context.Context) (Callback, bool) {
	select {
	case cb := <-c.ch:
		return cb, true
	case <-ctx.Done():
		return Callback{}, false
	}
}

// Listener is the loopback HTTP server that captures one provider's
// redirect. GET /auth serves a relay page whose script re-posts the query
// code or fragment token to POST /exchange, which resolves the armed
// completion. One Listener serves one provider; attempts arm it serially.
type Listener struct {
	addr string

	mu      sync.Mutex
	pending *Completion
	srv     *http.Server
	ln      net.Listener
	started bool
}

// NewListener creates a Listener bound to addr on Start. Use a loopback
// address; the relay page is not meant to be reachable off-host.
func NewListener(addr string) *Listener {
	return &Listener{addr: addr}
}

// Start binds the port and begins serving. A second Start returns
// [ErrListenerStarted] without touching the socket.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return ErrListenerStarted
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           l.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	l.ln = ln
	l.srv = srv
	l.started = true

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Print("oauth: listener serve: ", err)
		}
	}()

	return nil
}

// Addr returns the bound address, useful when addr was ":0".
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return l.addr
	}
	return l.ln.Addr().String()
}

// Arm registers a fresh completion for the next redirect and returns it.
// Arming replaces any previous pending completion; the replaced attempt
// can only finish through the ctx it is waiting on.
func (l *Listener) Arm() *Completion {
	c := newCompletion()
	l.mu.Lock()
	l.pending = c
	l.mu.Unlock()
	return c
}

// Stop shuts the server down, releasing the port. It waits for in-flight
// handlers up to the ctx deadline. The socket is closed explicitly:
// Shutdown alone only closes listeners Serve has already registered, and
// the Serve goroutine may not have reached that point yet.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	srv := l.srv
	ln := l.ln
	l.srv = nil
	l.ln = nil
	l.pending = nil
	started := l.started
	l.started = false
	l.mu.Unlock()

	if !started || srv == nil {
		return ErrListenerNotStarted
	}

	err := srv.Shutdown(ctx)

	if ln != nil {
		if closeErr := ln.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) && err == nil {
			err = closeErr
		}
	}

	return err
}

func (l *Listener) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/auth", l.handleRelay).Methods(http.MethodGet)
	r.HandleFunc("/exchange", l.handleExchange).Methods(http.MethodPost)
	return r
}

func (l *Listener) takePending() *Completion {
	l.mu.Lock()
	c := l.pending
	l.pending = nil
	l.mu.Unlock()
	return c
}

func (l *Listener) handleRelay(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(relayPage)); err != nil {
		log.Print("oauth: relay write: ", err)
	}
}

func (l *Listener) handleExchange(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Print("oauth: malformed exchange request: ", err)
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	cb := Callback{
		Code:  r.PostFormValue("code"),
		Token: r.PostFormValue("token"),
		State: r.PostFormValue("state"),
		Error: r.PostFormValue("error"),
	}

	if cb.Code == "" && cb.Token == "" && cb.Error == "" {
		http.Error(w, "missing code or token", http.StatusBadRequest)
		return
	}

	pending := l.takePending()
	if pending == nil || !pending.resolve(cb) {
		// Redirect arrived with no attempt armed, or a duplicate for an
		// attempt that already resolved. Drop it.
		http.Error(w, "no pending sign-in attempt", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("Sign-in received. You can close this window.")); err != nil {
		log.Print("oauth: exchange write: ", err)
	}
}

// relayPage forwards whatever the provider delivered: code+state from the
// query for authorization-code flows, or the access token from the URL
// fragment for implicit flows. Fragments never reach the server in the
// request line, so a client-side hop is required.
const relayPage = `<!DOCTYPE html>
<html>
<head><title>Signing in…</title></head>
<body>
<p>Completing sign-in…</p>
<script>
(function () {
  var query = new URLSearchParams(window.location.search);
  var frag = new URLSearchParams(window.location.hash.replace(/^#/, ""));
  var body = new URLSearchParams();
  if (query.get("code")) body.set("code", query.get("code"));
  if (frag.get("access_token")) body.set("token", frag.get("access_token"));
  if (query.get("state")) body.set("state", query.get("state"));
  if (frag.get("state")) body.set("state", frag.get("state"));
  if (query.get("error")) body.set("error", query.get("error"));
  fetch("/exchange", {
    method: "POST",
    headers: { "Content-Type": "application/x-www-form-urlencoded" },
    body: body.toString()
  }).then(function () {
    document.body.textContent = "You can close this window.";
  }).catch(function () {
    document.body.textContent = "Sign-in relay failed. Close this window and retry.";
  });
})();
</script>
</body>
</html>
`
