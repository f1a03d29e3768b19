package drinkauth

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/oauth"
)

// AuthenticateWithOAuth runs a provider's interactive flow: it arms the
// loopback listener, opens the consent page, and blocks until the
// redirect lands or ctx is done. The driver's result is returned to the
// caller unchanged.
func (e *Engine) AuthenticateWithOAuth(ctx context.Context, p Provider) (AuthResult, error) {
	if err := e.ready(); err != nil {
		return AuthResult{}, err
	}

	driver, err := e.driverFor(p)
	if err != nil {
		e.metricInc(MetricOAuthFailure)
		e.emitAudit(ctx, auditEventOAuthFailure, false, "", "", p.String(), err, nil)
		return AuthResult{}, err
	}

	result, err := driver.Authenticate(ctx)
	e.recordOAuthOutcome(ctx, p, result, err)

	return result, err
}

// ExchangeOAuthCode redeems an authorization code (or, for implicit-flow
// providers, an access token captured from the fragment) outside the
// interactive loop. Useful when the host captured the redirect itself.
func (e *Engine) ExchangeOAuthCode(ctx context.Context, p Provider, code string) (AuthResult, error) {
	if err := e.ready(); err != nil {
		return AuthResult{}, err
	}

	driver, err := e.driverFor(p)
	if err != nil {
		e.metricInc(MetricOAuthFailure)
		e.emitAudit(ctx, auditEventOAuthFailure, false, "", "", p.String(), err, nil)
		return AuthResult{}, err
	}

	result, err := driver.ExchangeCode(ctx, code)
	e.recordOAuthOutcome(ctx, p, result, err)

	return result, err
}

// OAuthAuthorizationURL builds the consent URL for a provider and arms
// its state and PKCE verifier, without opening a browser or blocking.
func (e *Engine) OAuthAuthorizationURL(p Provider) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}

	driver, err := e.driverFor(p)
	if err != nil {
		return "", err
	}

	return driver.AuthorizationURL()
}

func (e *Engine) driverFor(p Provider) (OAuthDriver, error) {
	driver, ok := e.drivers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p.String())
	}
	return driver, nil
}

func (e *Engine) recordOAuthOutcome(ctx context.Context, p Provider, result AuthResult, err error) {
	if err != nil || !result.Successful {
		e.metricInc(MetricOAuthFailure)
		e.emitAudit(ctx, auditEventOAuthFailure, false, "", "", p.String(), mapDriverError(err), nil)
		return
	}

	e.metricInc(MetricOAuthSuccess)
	e.metricInc(MetricSessionCreated)
	if result.IsNewAccount {
		e.metricInc(MetricOAuthProvisioned)
		e.emitAudit(ctx, auditEventOAuthProvisioned, true, "", result.SessionID.String(), p.String(), nil, nil)
	}
	e.emitAudit(ctx, auditEventOAuthSuccess, true, "", result.SessionID.String(), p.String(), nil, nil)
}

// mapDriverError folds the oauth package's sentinels into the engine's
// taxonomy so audit error codes stay uniform across paths.
func mapDriverError(err error) error {
	switch {
	case err == nil:
		return ErrInvalidCredentials
	case errors.Is(err, oauth.ErrProviderUnavailable),
		errors.Is(err, oauth.ErrProviderResponseInvalid):
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	default:
		return err
	}
}

// openBrowser launches the platform's URL opener. The default for
// [Builder.WithBrowserOpener].
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
