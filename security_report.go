package drinkauth

import "sort"

// Report returns a point-in-time description of the engine's security
// posture, for operator dashboards and startup logging.
func (e *Engine) Report() Report {
	if e == nil {
		return Report{}
	}

	providers := make([]string, 0, len(e.drivers))
	for p := range e.drivers {
		providers = append(providers, p.String())
	}
	sort.Strings(providers)

	return Report{
		PasswordAlgorithm: e.config.Password.Algorithm,
		UpgradeOnLogin:    e.config.Password.UpgradeOnLogin,
		TwoFactorEnabled:  e.config.TwoFactor.Enabled,
		Providers:         providers,
		AuditEnabled:      e.audit != nil,
		AuditDropped:      e.audit.Dropped(),
		MetricsEnabled:    e.metrics.Enabled(),
	}
}
