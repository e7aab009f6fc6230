package accounts_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var signingKey = []byte("test-signing-key")

func newCredentialStore(identities *MockIdentityStore, now *time.Time) *accounts.LocalCredentialStore {
	return accounts.NewLocalCredentialStore(identities, signingKey, "accounts-test").
		WithClock(func() time.Time { return *now })
}

func TestLocalCredentialStoreCreate(t *testing.T) {
	ctx := context.Background()
	now := testNow

	t.Run("fresh username hashes and inserts", func(t *testing.T) {
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{Username: "bob", Email: "bob@example.com"}
		identities.On("GetByUsername", ctx, "bob").Return(nil, nil).Once()
		identities.On("Insert", ctx, record).Return(record, nil).Once()

		result, err := store.Create(ctx, record, "Str0ng!pass")
		require.NoError(t, err)
		assert.True(t, result.Succeeded)

		assert.NotEqual(t, uuid.Nil, record.ID)
		assert.NotEmpty(t, record.PasswordHash)
		assert.NotContains(t, record.PasswordHash, "Str0ng!pass")
		assert.NoError(t, accounts.ComparePasswordAndHash("Str0ng!pass", record.PasswordHash))

		identities.AssertExpectations(t)
	})

	t.Run("duplicate username is rejected without insert", func(t *testing.T) {
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		existing := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}
		identities.On("GetByUsername", ctx, "bob").Return(existing, nil).Once()

		result, err := store.Create(ctx, &accounts.IdentityRecord{Username: "bob"}, "Str0ng!pass")
		require.NoError(t, err)

		assert.False(t, result.Succeeded)
		assert.Contains(t, result.ErrorText(), "already taken")
		identities.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("weak password never reaches the store", func(t *testing.T) {
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		result, err := store.Create(ctx, &accounts.IdentityRecord{Username: "bob"}, "weak")
		require.NoError(t, err)

		assert.False(t, result.Succeeded)
		assert.NotEmpty(t, result.Errors)
		identities.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
		identities.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})
}

func TestLocalCredentialStoreCheckPassword(t *testing.T) {
	ctx := context.Background()

	hash, err := accounts.HashPassword("Str0ng!pass")
	require.NoError(t, err)

	t.Run("repeated failures lock the account", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now).
			WithLockoutPolicy(2, 5*time.Minute)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: hash}
		identities.On("Save", ctx, record).Return(record, nil).Twice()

		result, err := store.CheckPassword(ctx, record, "wrong", true)
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.False(t, result.IsLockedOut)
		assert.Equal(t, 1, record.AccessFailedCount)

		result, err = store.CheckPassword(ctx, record, "wrong", true)
		require.NoError(t, err)
		assert.True(t, result.IsLockedOut)
		require.NotNil(t, record.LockoutEnd)
		assert.Equal(t, now.Add(5*time.Minute), *record.LockoutEnd)
		assert.Equal(t, 0, record.AccessFailedCount, "counter resets when the window opens")

		identities.AssertExpectations(t)
	})

	t.Run("locked window rejects even the correct password", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		end := now.Add(3 * time.Minute)
		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: hash, LockoutEnd: &end}

		result, err := store.CheckPassword(ctx, record, "Str0ng!pass", true)
		require.NoError(t, err)
		assert.True(t, result.IsLockedOut)
		assert.False(t, result.Succeeded)
		identities.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("expired window admits the correct password and clears state", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		end := now.Add(-time.Second)
		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: hash, LockoutEnd: &end}
		identities.On("Save", ctx, record).Return(record, nil).Once()

		result, err := store.CheckPassword(ctx, record, "Str0ng!pass", true)
		require.NoError(t, err)
		assert.True(t, result.Succeeded)
		assert.Nil(t, record.LockoutEnd)
		assert.Equal(t, 0, record.AccessFailedCount)
	})

	t.Run("untracked check never advances the counter", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: hash}

		result, err := store.CheckPassword(ctx, record, "wrong", false)
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.Equal(t, 0, record.AccessFailedCount)
		identities.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("nil record is an error", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		_, err := store.CheckPassword(ctx, nil, "whatever", true)
		require.Error(t, err)
	})
}

func TestEmailConfirmationTokenRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("minted token confirms its own record", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}
		identities.On("Save", ctx, record).Return(record, nil).Once()

		token, err := store.GenerateEmailConfirmationToken(ctx, record)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		result, err := store.ConfirmEmail(ctx, record, token)
		require.NoError(t, err)
		assert.True(t, result.Succeeded)
		assert.True(t, record.EmailConfirmed)
	})

	t.Run("token bound to another record is rejected", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}
		other := &accounts.IdentityRecord{ID: uuid.New(), Username: "mallory"}

		token, err := store.GenerateEmailConfirmationToken(ctx, record)
		require.NoError(t, err)

		result, err := store.ConfirmEmail(ctx, other, token)
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.False(t, other.EmailConfirmed)
		identities.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("reset token cannot confirm an email", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}

		token, err := store.GeneratePasswordResetToken(ctx, record)
		require.NoError(t, err)

		result, err := store.ConfirmEmail(ctx, record, token)
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
	})

	t.Run("token expires after 24 hours", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}

		token, err := store.GenerateEmailConfirmationToken(ctx, record)
		require.NoError(t, err)

		now = testNow.Add(24*time.Hour + time.Minute)

		result, err := store.ConfirmEmail(ctx, record, token)
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
	})
}

func TestLocalCredentialStoreResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token replaces the hash and clears lockout", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		end := now.Add(time.Minute)
		record := &accounts.IdentityRecord{
			ID:                uuid.New(),
			Username:          "bob",
			PasswordHash:      "old-hash",
			AccessFailedCount: 3,
			LockoutEnd:        &end,
		}
		identities.On("Save", ctx, record).Return(record, nil).Once()

		token, err := store.GeneratePasswordResetToken(ctx, record)
		require.NoError(t, err)

		result, err := store.ResetPassword(ctx, record, token, "N3w!password")
		require.NoError(t, err)
		assert.True(t, result.Succeeded)

		assert.NotEqual(t, "old-hash", record.PasswordHash)
		assert.NoError(t, accounts.ComparePasswordAndHash("N3w!password", record.PasswordHash))
		assert.Nil(t, record.LockoutEnd)
		assert.Equal(t, 0, record.AccessFailedCount)
	})

	t.Run("weak replacement is rejected after the token check", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: "old-hash"}

		token, err := store.GeneratePasswordResetToken(ctx, record)
		require.NoError(t, err)

		result, err := store.ResetPassword(ctx, record, token, "weak")
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.Equal(t, "old-hash", record.PasswordHash)
		identities.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		now := testNow
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: "old-hash"}

		result, err := store.ResetPassword(ctx, record, "not-a-token", "N3w!password")
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.Equal(t, "old-hash", record.PasswordHash)
	})
}

func TestLocalCredentialStoreSetPassword(t *testing.T) {
	ctx := context.Background()
	now := testNow

	t.Run("valid password is hashed and saved", func(t *testing.T) {
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: "old-hash"}
		identities.On("Save", ctx, record).Return(record, nil).Once()

		require.NoError(t, store.SetPassword(ctx, record, "N3w!password"))
		assert.NotEqual(t, "old-hash", record.PasswordHash)
	})

	t.Run("weak password is rejected before persistence", func(t *testing.T) {
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob", PasswordHash: "old-hash"}

		require.Error(t, store.SetPassword(ctx, record, "weak"))
		assert.Equal(t, "old-hash", record.PasswordHash)
		identities.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestGenerateTwoFactorTokenShape(t *testing.T) {
	ctx := context.Background()
	now := testNow
	identities := &MockIdentityStore{}
	store := newCredentialStore(identities, &now)

	record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}
	sixDigits := regexp.MustCompile(`^[0-9]{6}$`)

	for i := 0; i < 10; i++ {
		code, err := store.GenerateTwoFactorToken(ctx, record, accounts.TwoFactorChannelEmail)
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
	}
}

func TestLocalCredentialStoreAddLogin(t *testing.T) {
	ctx := context.Background()
	now := testNow
	identities := &MockIdentityStore{}
	store := newCredentialStore(identities, &now)

	record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}
	identities.On("AddLogin", ctx, mock.MatchedBy(func(l *accounts.ExternalLogin) bool {
		return l.IdentityID == record.ID && l.Provider == "google:3" && l.ProviderKey == "key-1"
	})).Return(&accounts.ExternalLogin{}, nil).Once()

	require.NoError(t, store.AddLogin(ctx, record, "google:3", "key-1", "Google"))
	identities.AssertExpectations(t)
}

func TestLocalCredentialStoreDelete(t *testing.T) {
	ctx := context.Background()
	now := testNow

	t.Run("removes the record", func(t *testing.T) {
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		record := &accounts.IdentityRecord{ID: uuid.New(), Username: "bob"}
		identities.On("Remove", ctx, record).Return(nil).Once()

		result, err := store.Delete(ctx, record)
		require.NoError(t, err)
		assert.True(t, result.Succeeded)
	})

	t.Run("nil record reports failure without an error", func(t *testing.T) {
		identities := &MockIdentityStore{}
		store := newCredentialStore(identities, &now)

		result, err := store.Delete(ctx, nil)
		require.NoError(t, err)
		assert.False(t, result.Succeeded)
		assert.NotEmpty(t, result.Errors)
	})
}
