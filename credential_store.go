package accounts

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Lockout policy defaults: five failed attempts lock the account for five
// minutes. The failure counter is tracked on the identity record and only
// advances when the caller asks for lockout tracking.
const (
	defaultMaxFailedAttempts = 5
	defaultLockoutDuration   = 5 * time.Minute
)

// LocalCredentialStore is a complete CredentialGateway backed by the
// identities repository: bcrypt password hashes, a windowed lockout counter,
// purpose-bound confirmation/reset tokens, and email-channel two-factor
// codes. Deployments with an external identity backend supply their own
// CredentialGateway instead.
type LocalCredentialStore struct {
	identities        IdentityStore
	policy            PasswordPolicy
	mint              *tokenMint
	maxFailedAttempts int
	lockoutDuration   time.Duration
	logger            Logger
	now               func() time.Time
}

var _ CredentialGateway = (*LocalCredentialStore)(nil)

// NewLocalCredentialStore returns a gateway with default password and
// lockout policy. signingKey signs confirmation and reset tokens.
func NewLocalCredentialStore(identities IdentityStore, signingKey []byte, issuer string) *LocalCredentialStore {
	return &LocalCredentialStore{
		identities:        identities,
		policy:            DefaultPasswordPolicy(),
		mint:              newTokenMint(signingKey, issuer),
		maxFailedAttempts: defaultMaxFailedAttempts,
		lockoutDuration:   defaultLockoutDuration,
		logger:            defLogger{},
		now:               time.Now,
	}
}

// WithPasswordPolicy overrides the complexity policy.
func (s *LocalCredentialStore) WithPasswordPolicy(policy PasswordPolicy) *LocalCredentialStore {
	s.policy = policy
	return s
}

// WithLockoutPolicy overrides the failed-attempt threshold and lockout
// duration.
func (s *LocalCredentialStore) WithLockoutPolicy(maxAttempts int, duration time.Duration) *LocalCredentialStore {
	if maxAttempts > 0 {
		s.maxFailedAttempts = maxAttempts
	}
	if duration > 0 {
		s.lockoutDuration = duration
	}
	return s
}

// WithLogger sets the store logger.
func (s *LocalCredentialStore) WithLogger(logger Logger) *LocalCredentialStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source. Lockout windows, token expiry, and
// code expiry all read from it.
func (s *LocalCredentialStore) WithClock(now func() time.Time) *LocalCredentialStore {
	if now != nil {
		s.now = now
		s.mint.now = now
	}
	return s
}

func (s *LocalCredentialStore) FindByName(ctx context.Context, username string) (*IdentityRecord, error) {
	return s.identities.GetByUsername(ctx, username)
}

func (s *LocalCredentialStore) Create(ctx context.Context, record *IdentityRecord, password string) (GatewayResult, error) {
	result := s.policy.Validate(password)
	if !result.Succeeded {
		return result, nil
	}

	existing, err := s.identities.GetByUsername(ctx, record.Username)
	if err != nil {
		return GatewayResult{}, err
	}
	if existing != nil {
		return GatewayResult{
			Errors: []string{fmt.Sprintf("username %q is already taken", record.Username)},
		}, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return GatewayResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.PasswordHash = hash
	record.AccessFailedCount = 0
	record.LockoutEnd = nil

	if _, err := s.identities.Insert(ctx, record); err != nil {
		return GatewayResult{}, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create identity record")
	}

	return GatewayResult{Succeeded: true}, nil
}

// CheckPassword verifies the cleartext password and, when trackLockout is
// set, advances the lockout counter as a side effect. Two concurrent checks
// for the same identity race on that counter; the database row is the only
// arbiter.
func (s *LocalCredentialStore) CheckPassword(ctx context.Context, record *IdentityRecord, password string, trackLockout bool) (SignInResult, error) {
	if record == nil {
		return SignInResult{}, goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "cannot check password without identity record")
	}

	now := s.now()
	if record.LockoutEnd != nil && now.Before(*record.LockoutEnd) {
		return SignInResult{IsLockedOut: true}, nil
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			return SignInResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "password comparison failed")
		}

		if !trackLockout {
			return SignInResult{}, nil
		}

		record.AccessFailedCount++
		lockedOut := record.AccessFailedCount >= s.maxFailedAttempts
		if lockedOut {
			end := now.Add(s.lockoutDuration)
			record.LockoutEnd = &end
			record.AccessFailedCount = 0
			s.logger.Info("identity locked out until %s: %s", end.Format(time.RFC3339), record.Username)
		}

		if _, err := s.identities.Save(ctx, record); err != nil {
			return SignInResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist lockout state")
		}

		return SignInResult{IsLockedOut: lockedOut}, nil
	}

	if trackLockout && (record.AccessFailedCount > 0 || record.LockoutEnd != nil) {
		record.AccessFailedCount = 0
		record.LockoutEnd = nil
		if _, err := s.identities.Save(ctx, record); err != nil {
			return SignInResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset lockout state")
		}
	}

	return SignInResult{Succeeded: true}, nil
}

func (s *LocalCredentialStore) GenerateEmailConfirmationToken(ctx context.Context, record *IdentityRecord) (string, error) {
	return s.mint.mint(record, tokenPurposeEmailConfirm, emailConfirmTokenTTL)
}

func (s *LocalCredentialStore) ConfirmEmail(ctx context.Context, record *IdentityRecord, token string) (GatewayResult, error) {
	if err := s.mint.check(record, token, tokenPurposeEmailConfirm); err != nil {
		return GatewayResult{Errors: []string{"invalid or expired confirmation token"}}, nil
	}

	record.EmailConfirmed = true
	if _, err := s.identities.Save(ctx, record); err != nil {
		return GatewayResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist email confirmation")
	}

	return GatewayResult{Succeeded: true}, nil
}

func (s *LocalCredentialStore) GeneratePasswordResetToken(ctx context.Context, record *IdentityRecord) (string, error) {
	return s.mint.mint(record, tokenPurposePasswordReset, passwordResetTokenTTL)
}

func (s *LocalCredentialStore) ResetPassword(ctx context.Context, record *IdentityRecord, token, newPassword string) (GatewayResult, error) {
	if err := s.mint.check(record, token, tokenPurposePasswordReset); err != nil {
		return GatewayResult{Errors: []string{"invalid or expired reset token"}}, nil
	}

	result := s.policy.Validate(newPassword)
	if !result.Succeeded {
		return result, nil
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return GatewayResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	record.PasswordHash = hash
	record.AccessFailedCount = 0
	record.LockoutEnd = nil

	if _, err := s.identities.Save(ctx, record); err != nil {
		return GatewayResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password reset")
	}

	return GatewayResult{Succeeded: true}, nil
}

// SetPassword hashes and applies a new password without a reset token. The
// caller is responsible for having validated complexity first; this method
// revalidates anyway so the invariant does not rest on call order.
func (s *LocalCredentialStore) SetPassword(ctx context.Context, record *IdentityRecord, newPassword string) error {
	if record == nil {
		return goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "cannot set password without identity record")
	}

	if result := s.policy.Validate(newPassword); !result.Succeeded {
		return goerrors.Wrap(ErrPasswordComplexity, goerrors.CategoryValidation, result.ErrorText())
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	record.PasswordHash = hash
	if _, err := s.identities.Save(ctx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password change")
	}

	return nil
}

// GenerateTwoFactorToken returns a six digit numeric code. The caller owns
// storage and expiry of the code; the store does not retain it.
func (s *LocalCredentialStore) GenerateTwoFactorToken(ctx context.Context, record *IdentityRecord, channel string) (string, error) {
	if record == nil {
		return "", goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "cannot generate code without identity record")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}

func (s *LocalCredentialStore) AddLogin(ctx context.Context, record *IdentityRecord, provider, providerKey, displayName string) error {
	if record == nil {
		return goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "cannot add login without identity record")
	}

	_, err := s.identities.AddLogin(ctx, &ExternalLogin{
		IdentityID:  record.ID,
		Provider:    provider,
		ProviderKey: providerKey,
		DisplayName: displayName,
	})

	return err
}

func (s *LocalCredentialStore) Update(ctx context.Context, record *IdentityRecord) error {
	_, err := s.identities.Save(ctx, record)
	return err
}

func (s *LocalCredentialStore) Delete(ctx context.Context, record *IdentityRecord) (GatewayResult, error) {
	if record == nil {
		return GatewayResult{Errors: []string{"identity record not found"}}, nil
	}

	if err := s.identities.Remove(ctx, record); err != nil {
		return GatewayResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete identity record")
	}

	return GatewayResult{Succeeded: true}, nil
}

func (s *LocalCredentialStore) ValidatePasswordComplexity(ctx context.Context, password string) GatewayResult {
	return s.policy.Validate(password)
}
