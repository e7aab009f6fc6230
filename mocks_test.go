package accounts_test

import (
	"context"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCredentialGateway implements accounts.CredentialGateway
type MockCredentialGateway struct {
	mock.Mock
}

func (m *MockCredentialGateway) FindByName(ctx context.Context, username string) (*accounts.IdentityRecord, error) {
	args := m.Called(ctx, username)
	record, _ := args.Get(0).(*accounts.IdentityRecord)
	return record, args.Error(1)
}

func (m *MockCredentialGateway) Create(ctx context.Context, record *accounts.IdentityRecord, password string) (accounts.GatewayResult, error) {
	args := m.Called(ctx, record, password)
	return args.Get(0).(accounts.GatewayResult), args.Error(1)
}

func (m *MockCredentialGateway) CheckPassword(ctx context.Context, record *accounts.IdentityRecord, password string, trackLockout bool) (accounts.SignInResult, error) {
	args := m.Called(ctx, record, password, trackLockout)
	return args.Get(0).(accounts.SignInResult), args.Error(1)
}

func (m *MockCredentialGateway) GenerateEmailConfirmationToken(ctx context.Context, record *accounts.IdentityRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialGateway) ConfirmEmail(ctx context.Context, record *accounts.IdentityRecord, token string) (accounts.GatewayResult, error) {
	args := m.Called(ctx, record, token)
	return args.Get(0).(accounts.GatewayResult), args.Error(1)
}

func (m *MockCredentialGateway) GeneratePasswordResetToken(ctx context.Context, record *accounts.IdentityRecord) (string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialGateway) ResetPassword(ctx context.Context, record *accounts.IdentityRecord, token, newPassword string) (accounts.GatewayResult, error) {
	args := m.Called(ctx, record, token, newPassword)
	return args.Get(0).(accounts.GatewayResult), args.Error(1)
}

func (m *MockCredentialGateway) SetPassword(ctx context.Context, record *accounts.IdentityRecord, newPassword string) error {
	args := m.Called(ctx, record, newPassword)
	return args.Error(0)
}

func (m *MockCredentialGateway) GenerateTwoFactorToken(ctx context.Context, record *accounts.IdentityRecord, channel string) (string, error) {
	args := m.Called(ctx, record, channel)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialGateway) AddLogin(ctx context.Context, record *accounts.IdentityRecord, provider, providerKey, displayName string) error {
	args := m.Called(ctx, record, provider, providerKey, displayName)
	return args.Error(0)
}

func (m *MockCredentialGateway) Update(ctx context.Context, record *accounts.IdentityRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockCredentialGateway) Delete(ctx context.Context, record *accounts.IdentityRecord) (accounts.GatewayResult, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(accounts.GatewayResult), args.Error(1)
}

func (m *MockCredentialGateway) ValidatePasswordComplexity(ctx context.Context, password string) accounts.GatewayResult {
	args := m.Called(ctx, password)
	return args.Get(0).(accounts.GatewayResult)
}

// MockUserProfileStore implements accounts.UserProfileStore
type MockUserProfileStore struct {
	mock.Mock
}

func (m *MockUserProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUserProfileStore) GetByUsername(ctx context.Context, username string) (*accounts.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUserProfileStore) Add(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	added, _ := args.Get(0).(*accounts.User)
	return added, args.Error(1)
}

func (m *MockUserProfileStore) Update(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	updated, _ := args.Get(0).(*accounts.User)
	return updated, args.Error(1)
}

func (m *MockUserProfileStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserRoleStore implements accounts.UserRoleStore
type MockUserRoleStore struct {
	mock.Mock
}

func (m *MockUserRoleStore) ListRoles(ctx context.Context, userID uuid.UUID, siteID int) ([]*accounts.UserRole, error) {
	args := m.Called(ctx, userID, siteID)
	roles, _ := args.Get(0).([]*accounts.UserRole)
	return roles, args.Error(1)
}

func (m *MockUserRoleStore) DeleteRole(ctx context.Context, userRoleID uuid.UUID) error {
	args := m.Called(ctx, userRoleID)
	return args.Error(0)
}

// MockAssetFolderStore implements accounts.AssetFolderStore
type MockAssetFolderStore struct {
	mock.Mock
}

func (m *MockAssetFolderStore) GetFolder(ctx context.Context, siteID int, path string) (*accounts.Folder, error) {
	args := m.Called(ctx, siteID, path)
	folder, _ := args.Get(0).(*accounts.Folder)
	return folder, args.Error(1)
}

func (m *MockAssetFolderStore) ResolvePath(folder *accounts.Folder) string {
	args := m.Called(folder)
	return args.String(0)
}

func (m *MockAssetFolderStore) DeleteFolder(ctx context.Context, folderID uuid.UUID) error {
	args := m.Called(ctx, folderID)
	return args.Error(0)
}

// MockSessionIssuer implements accounts.SessionIssuer
type MockSessionIssuer struct {
	mock.Mock
}

func (m *MockSessionIssuer) Issue(ctx context.Context, record *accounts.IdentityRecord, persistent bool) (string, error) {
	args := m.Called(ctx, record, persistent)
	return args.String(0), args.Error(1)
}

// MockIdentityStore implements accounts.IdentityStore
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) GetByUsername(ctx context.Context, username string) (*accounts.IdentityRecord, error) {
	args := m.Called(ctx, username)
	record, _ := args.Get(0).(*accounts.IdentityRecord)
	return record, args.Error(1)
}

func (m *MockIdentityStore) Insert(ctx context.Context, record *accounts.IdentityRecord) (*accounts.IdentityRecord, error) {
	args := m.Called(ctx, record)
	inserted, _ := args.Get(0).(*accounts.IdentityRecord)
	return inserted, args.Error(1)
}

func (m *MockIdentityStore) Save(ctx context.Context, record *accounts.IdentityRecord) (*accounts.IdentityRecord, error) {
	args := m.Called(ctx, record)
	saved, _ := args.Get(0).(*accounts.IdentityRecord)
	return saved, args.Error(1)
}

func (m *MockIdentityStore) Remove(ctx context.Context, record *accounts.IdentityRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockIdentityStore) AddLogin(ctx context.Context, login *accounts.ExternalLogin) (*accounts.ExternalLogin, error) {
	args := m.Called(ctx, login)
	added, _ := args.Get(0).(*accounts.ExternalLogin)
	return added, args.Error(1)
}

// capturingDispatcher records enqueued notifications.
type capturingDispatcher struct {
	notifications []*accounts.Notification
}

func (c *capturingDispatcher) Enqueue(_ context.Context, n *accounts.Notification) error {
	c.notifications = append(c.notifications, n)
	return nil
}

// capturingPublisher records published change events.
type capturingPublisher struct {
	events []accounts.ChangeEvent
}

func (c *capturingPublisher) Publish(_ context.Context, evt accounts.ChangeEvent) error {
	c.events = append(c.events, evt)
	return nil
}

// capturingAudit records audit entries.
type capturingAudit struct {
	entries []accounts.AuditEntry
}

func (c *capturingAudit) Log(_ context.Context, entry accounts.AuditEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}
