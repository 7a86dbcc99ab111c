package sessionauth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximum number of failed attempts a credential
// gets in a cooldown period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// CredentialProvider verifies presented credentials and resolves them to the
// owning user. Unknown identity and wrong secret produce the same error
// value, so responses never leak which one failed.
type CredentialProvider struct {
	creds  Credentials
	users  Principals
	logger Logger
}

// NewCredentialProvider will create a new CredentialProvider
func NewCredentialProvider(creds Credentials, users Principals) *CredentialProvider {
	return &CredentialProvider{
		creds:  creds,
		users:  users,
		logger: defLogger{},
	}
}

func (p *CredentialProvider) WithLogger(l Logger) *CredentialProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// Verify checks the presented credentials and returns the owning user.
// Local credentials recompute the bcrypt hash; federated credentials only
// require the (provider, provider_key) row to exist, the IdP being the
// trust boundary for the secret.
func (p *CredentialProvider) Verify(ctx context.Context, role Role, input LoginInput) (*User, error) {
	cred, err := p.creds.GetByIdentity(ctx, role, input.Provider, input.ProviderKey)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve credential during verification")
	}

	if err := p.checkCooldown(cred); err != nil {
		return nil, err
	}

	if cred.IsLocal() {
		if err := CompareSecretAndHash(input.Secret, cred.SecretHash); err != nil {
			if err2 := p.creds.TrackAttemptedLogin(ctx, cred); err2 != nil {
				return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
			}
			return nil, ErrInvalidCredentials
		}
	} else if input.Secret != "" {
		// federated logins must not present a secret
		return nil, ErrInvalidCredentials
	}

	if err := p.creds.TrackSucccessfulLogin(ctx, cred); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	user, err := p.users.GetActiveByID(ctx, cred.UserID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrPrincipalDeactivated
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve credential owner")
	}

	return user, nil
}

func (p *CredentialProvider) checkCooldown(cred *Credential) error {
	attempts := cred.LoginAttempts

	if cred.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*cred.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			attempts = 0
		}
	}

	// too many attempts in the window, cool off
	if attempts > MaxLoginAttempts {
		return ErrTooManyLoginAttempts
	}

	return nil
}
