package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Logger is the minimal logging surface this package needs. Any structured
// logger can be adapted to it.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(format string) string {
	if strings.HasSuffix(format, "\n") {
		return format
	}
	return format + "\n"
}

// GatewayResult carries the outcome of a credential-store mutation. Errors
// holds human-readable validation failures (weak password, duplicate name)
// as opposed to infrastructure errors, which travel on the error return.
type GatewayResult struct {
	Succeeded bool
	Errors    []string
}

// ErrorText joins the validation failure descriptions.
func (r GatewayResult) ErrorText() string {
	return strings.Join(r.Errors, ", ")
}

// SignInResult is the outcome of a password check that also evaluates
// lockout policy.
type SignInResult struct {
	Succeeded   bool
	IsLockedOut bool
}

// TwoFactorChannelEmail is the delivery channel for two-factor codes.
const TwoFactorChannelEmail = "Email"

// CredentialGateway abstracts the external credential store. The Manager
// drives it but never persists password hashes or tokens itself.
//
// FindByName returns (nil, nil) when no identity record exists for the
// username; errors are reserved for infrastructure failures.
type CredentialGateway interface {
	FindByName(ctx context.Context, username string) (*IdentityRecord, error)
	Create(ctx context.Context, record *IdentityRecord, password string) (GatewayResult, error)
	CheckPassword(ctx context.Context, record *IdentityRecord, password string, trackLockout bool) (SignInResult, error)
	GenerateEmailConfirmationToken(ctx context.Context, record *IdentityRecord) (string, error)
	ConfirmEmail(ctx context.Context, record *IdentityRecord, token string) (GatewayResult, error)
	GeneratePasswordResetToken(ctx context.Context, record *IdentityRecord) (string, error)
	ResetPassword(ctx context.Context, record *IdentityRecord, token, newPassword string) (GatewayResult, error)
	SetPassword(ctx context.Context, record *IdentityRecord, newPassword string) error
	GenerateTwoFactorToken(ctx context.Context, record *IdentityRecord, channel string) (string, error)
	AddLogin(ctx context.Context, record *IdentityRecord, provider, providerKey, displayName string) error
	Update(ctx context.Context, record *IdentityRecord) error
	Delete(ctx context.Context, record *IdentityRecord) (GatewayResult, error)
	ValidatePasswordComplexity(ctx context.Context, password string) GatewayResult
}

// UserProfileStore owns the application profile rows.
type UserProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Add(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRoleStore owns site-scoped role memberships. ListRoles with
// siteID == AnySite returns memberships across every site.
type UserRoleStore interface {
	ListRoles(ctx context.Context, userID uuid.UUID, siteID int) ([]*UserRole, error)
	DeleteRole(ctx context.Context, userRoleID uuid.UUID) error
}

// AssetFolderStore locates and removes per-site asset folders. GetFolder
// returns (nil, nil) when no folder record exists for the path.
type AssetFolderStore interface {
	GetFolder(ctx context.Context, siteID int, path string) (*Folder, error)
	ResolvePath(folder *Folder) string
	DeleteFolder(ctx context.Context, folderID uuid.UUID) error
}

// NotificationDispatcher queues an outbound notification. Fire and forget:
// the Manager treats enqueue failures as log-worthy, never fatal.
type NotificationDispatcher interface {
	Enqueue(ctx context.Context, notification *Notification) error
}

// SessionIssuer mints a session credential for a verified identity. It is
// invoked only on the terminal authenticated transition of a login, and only
// when the caller asked for a session.
type SessionIssuer interface {
	Issue(ctx context.Context, record *IdentityRecord, persistent bool) (string, error)
}

// Alias is the resolved tenant context used to compose absolute links
// embedded in notifications.
type Alias struct {
	Protocol string
	Host     string
	TenantID string
	SiteID   int
}

// TenantContext resolves the alias for the current request.
type TenantContext interface {
	CurrentAlias(ctx context.Context) Alias
}

// StaticTenant is a fixed-alias TenantContext, useful for single-tenant
// deployments and tests.
type StaticTenant struct {
	Alias Alias
}

func (s StaticTenant) CurrentAlias(context.Context) Alias {
	return s.Alias
}
