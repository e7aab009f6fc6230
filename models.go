package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AnySite is the sentinel site id meaning "across every site". It is only
// valid as a query argument (e.g. UserRoleStore.ListRoles), never as a value
// stored on a row.
const AnySite = -1

// User is the application profile entity. It is distinct from the
// IdentityRecord held by the credential store: the profile carries display
// and login-state data, the identity record carries the password hash and
// lockout counters.
//
// Password, IsAuthenticated, Roles, and SessionToken are request-scoped
// carriers and are never persisted. Password in particular is scrubbed
// before the user is returned from any Manager operation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SiteID            int        `bun:"site_id,notnull" json:"site_id"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull" json:"email,omitempty"`
	DisplayName       string     `bun:"display_name" json:"display_name,omitempty"`
	LastLoginOn       *time.Time `bun:"last_login_on,nullzero" json:"last_login_on,omitempty"`
	LastIPAddress     string     `bun:"last_ip_address" json:"last_ip_address,omitempty"`
	TwoFactorRequired bool       `bun:"two_factor_required" json:"two_factor_required,omitempty"`
	TwoFactorCode     string     `bun:"two_factor_code" json:"-"`
	TwoFactorExpiry   *time.Time `bun:"two_factor_expiry,nullzero" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	// Transient request/response fields, never persisted.
	Password        string `bun:"-" json:"password,omitempty"`
	EmailConfirmed  bool   `bun:"-" json:"email_confirmed,omitempty"`
	IsAuthenticated bool   `bun:"-" json:"is_authenticated,omitempty"`
	Roles           string `bun:"-" json:"roles,omitempty"`
	SessionToken    string `bun:"-" json:"session_token,omitempty"`
}

// ScrubPassword clears the transient plaintext password carrier.
func (u *User) ScrubPassword() *User {
	if u != nil {
		u.Password = ""
	}
	return u
}

// UserRole is a single site-scoped role membership. A user may hold several
// per site; the resolved role string (see RoleResolver) is derived from these
// rows and never stored.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:usrr"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	SiteID    int        `bun:"site_id,notnull" json:"site_id"`
	RoleName  string     `bun:"role_name,notnull" json:"role_name,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IdentityRecord is the credential-store entity: username, email, password
// hash, and lockout state. It is owned exclusively by the CredentialGateway;
// the Manager never reads or writes password hashes itself.
type IdentityRecord struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`

	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull" json:"email,omitempty"`
	EmailConfirmed    bool       `bun:"email_confirmed" json:"email_confirmed"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	AccessFailedCount int        `bun:"access_failed_count" json:"-"`
	LockoutEnd        *time.Time `bun:"lockout_end,nullzero" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// ExternalLogin links an identity record to an external provider. The
// provider value is tenant-scoped ("{type}:{siteId}") so one shared
// credential store can keep the same upstream provider distinct per site.
type ExternalLogin struct {
	bun.BaseModel `bun:"table:external_logins,alias:extl"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	IdentityID  uuid.UUID  `bun:"identity_id,notnull,type:uuid" json:"identity_id,omitempty"`
	Provider    string     `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderKey string     `bun:"provider_key,notnull" json:"provider_key,omitempty"`
	DisplayName string     `bun:"display_name" json:"display_name,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Folder is a per-site asset folder record. User folders follow the
// "Users/{userId}/" path convention.
type Folder struct {
	bun.BaseModel `bun:"table:folders,alias:fld"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SiteID    int        `bun:"site_id,notnull" json:"site_id"`
	Path      string     `bun:"path,notnull" json:"path,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Notification is the value object handed to a NotificationDispatcher.
// Delivery is entirely the dispatcher's concern.
type Notification struct {
	SiteID   int       `json:"site_id"`
	ToUserID uuid.UUID `json:"to_user_id,omitempty"`
	ToEmail  string    `json:"to_email,omitempty"`
	ToName   string    `json:"to_name,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Body     string    `json:"body,omitempty"`
}

// NewNotification builds a notification addressed to the given user.
func NewNotification(siteID int, user *User, subject, body string) *Notification {
	n := &Notification{
		SiteID:  siteID,
		Subject: subject,
		Body:    body,
	}
	if user != nil {
		n.ToUserID = user.ID
		n.ToEmail = user.Email
		n.ToName = user.DisplayName
	}
	return n
}
