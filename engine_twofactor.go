package drinkauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AdrianMosnegutu/DrinkDb-Auth-sub000/user"
)

// BeginTwoFactorSetup generates a fresh TOTP secret for the user and
// parks it as a pending enrollment. The user record is not touched;
// nothing is committed until [Engine.ConfirmTwoFactorSetup] sees one
// valid code. Calling Begin again before confirming replaces the pending
// secret and resets the attempt counter.
func (e *Engine) BeginTwoFactorSetup(ctx context.Context, userID uuid.UUID) (TwoFactorProvision, error) {
	if err := e.ready(); err != nil {
		return TwoFactorProvision{}, err
	}
	if !e.config.TwoFactor.Enabled {
		return TwoFactorProvision{}, ErrTwoFactorFeatureDisabled
	}

	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return TwoFactorProvision{}, ErrUserNotFound
		}
		return TwoFactorProvision{}, err
	}
	if u.Enrolled() {
		return TwoFactorProvision{}, ErrTwoFactorAlreadyEnabled
	}

	secret, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return TwoFactorProvision{}, err
	}

	expiresAt := time.Now().Add(e.config.TwoFactor.EnrollmentTTL)
	pending := &pendingEnrollment{
		Secret:    secret,
		ExpiresAt: expiresAt.Unix(),
	}
	if err := e.enrollments.Save(ctx, userID, pending, e.config.TwoFactor.EnrollmentTTL); err != nil {
		e.emitAudit(ctx, auditEventTwoFactorRequested, false, userID.String(), "", "", err, nil)
		return TwoFactorProvision{}, err
	}

	e.metricInc(MetricTwoFactorSetupRequested)
	e.emitAudit(ctx, auditEventTwoFactorRequested, true, userID.String(), "", "", nil, nil)

	return TwoFactorProvision{
		SecretBase32: secretBase32,
		ProvisionURI: e.totp.ProvisionURI(secretBase32, u.Username),
		ExpiresAt:    expiresAt,
	}, nil
}

// ConfirmTwoFactorSetup checks one code against the pending secret. A
// valid code commits the secret to the user record and discards the
// pending enrollment. An invalid code burns one attempt; exhausting the
// attempt budget discards the enrollment and forces setup to restart.
// The user record is untouched on every failure path.
func (e *Engine) ConfirmTwoFactorSetup(ctx context.Context, userID uuid.UUID, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.TwoFactor.Enabled {
		return ErrTwoFactorFeatureDisabled
	}

	pending, err := e.enrollments.Get(ctx, userID)
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID.String(), "", "", err, nil)
		return err
	}

	ok, _, err := e.totp.VerifyCode(pending.Secret, code, time.Now())
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID.String(), "", "", err, nil)
		return err
	}
	if !ok {
		exceeded, recErr := e.enrollments.RecordFailure(ctx, userID, e.config.TwoFactor.EnrollmentMaxTry)
		e.metricInc(MetricTwoFactorFailure)
		if recErr != nil {
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID.String(), "", "", recErr, nil)
			return recErr
		}
		if exceeded {
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID.String(), "", "", ErrEnrollmentAttemptsExceeded, nil)
			return ErrEnrollmentAttemptsExceeded
		}
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID.String(), "", "", ErrTwoFactorInvalid, nil)
		return ErrTwoFactorInvalid
	}

	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.Enrolled() {
		_, _ = e.enrollments.Delete(ctx, userID)
		return ErrTwoFactorAlreadyEnabled
	}

	u.TwoFactorSecret = pending.Secret
	if err := e.users.Update(ctx, u); err != nil {
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID.String(), "", "", err, nil)
		return err
	}

	_, _ = e.enrollments.Delete(ctx, userID)

	e.metricInc(MetricTwoFactorEnabled)
	e.emitAudit(ctx, auditEventTwoFactorEnabled, true, userID.String(), "", "", nil, nil)

	return nil
}

// VerifyTwoFactor checks a login-time code against the user's committed
// secret. Codes within the configured skew window are accepted.
func (e *Engine) VerifyTwoFactor(ctx context.Context, userID uuid.UUID, code string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.TwoFactor.Enabled {
		return ErrTwoFactorFeatureDisabled
	}

	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !u.Enrolled() {
		return ErrTwoFactorNotConfigured
	}

	ok, _, err := e.totp.VerifyCode(u.TwoFactorSecret, code, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, userID.String(), "", "", ErrTwoFactorInvalid, nil)
		return ErrTwoFactorInvalid
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitAudit(ctx, auditEventTwoFactorSuccess, true, userID.String(), "", "", nil, nil)

	return nil
}

// TwoFactorEnrolled reports whether the user has a committed secret.
func (e *Engine) TwoFactorEnrolled(ctx context.Context, userID uuid.UUID) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}

	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	return u.Enrolled(), nil
}
