package accounts

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// twoFactorCodeTTL is how long an issued verification code stays valid.
const twoFactorCodeTTL = 10 * time.Minute

// Manager orchestrates the account lifecycle across the credential store and
// the profile store. Every operation is a single call: no retries, no
// background work. Failures are terminal for that call, reported as an error
// alongside an audit entry.
//
// Concurrent calls for different users are independent. Concurrent calls for
// the same username (two logins, a login racing a reset) are not serialized
// here; correctness under those races rests on the credential store's own
// atomicity for its read-modify-write operations. A two-factor verification
// racing a fresh issuance may see a just-superseded code, which surfaces as
// an ordinary invalid-code outcome.
type Manager struct {
	gateway       CredentialGateway
	users         UserProfileStore
	userRoles     UserRoleStore
	folders       AssetFolderStore
	tenants       TenantContext
	notifications NotificationDispatcher
	events        ChangeEventPublisher
	sessions      SessionIssuer
	auditor       AuditLogger
	resolver      *RoleResolver
	logger        Logger
	now           func() time.Time
	removeAssets  func(path string) error
}

// NewManager wires the mandatory collaborators. Optional ones (folders,
// notifications, change events, sessions, audit) default to no-ops and are
// attached with the With* builders.
func NewManager(gateway CredentialGateway, users UserProfileStore, userRoles UserRoleStore, tenants TenantContext) *Manager {
	return &Manager{
		gateway:       gateway,
		users:         users,
		userRoles:     userRoles,
		tenants:       tenants,
		notifications: nil,
		events:        noopChangeEventPublisher{},
		auditor:       noopAuditLogger{},
		resolver:      NewRoleResolver(userRoles),
		logger:        defLogger{},
		now:           time.Now,
		removeAssets:  os.RemoveAll,
	}
}

// WithAssetFolderStore enables per-site asset folder teardown on delete.
func (m *Manager) WithAssetFolderStore(folders AssetFolderStore) *Manager {
	m.folders = folders
	return m
}

// WithNotificationDispatcher attaches the outbound notification queue.
func (m *Manager) WithNotificationDispatcher(dispatcher NotificationDispatcher) *Manager {
	m.notifications = dispatcher
	return m
}

// WithChangeEventPublisher attaches the cross-node change event publisher.
func (m *Manager) WithChangeEventPublisher(publisher ChangeEventPublisher) *Manager {
	m.events = normalizeChangeEventPublisher(publisher)
	return m
}

// WithSessionIssuer attaches the session capability used on the terminal
// authenticated transition of a login.
func (m *Manager) WithSessionIssuer(sessions SessionIssuer) *Manager {
	m.sessions = sessions
	return m
}

// WithAuditLogger attaches the audit sink.
func (m *Manager) WithAuditLogger(auditor AuditLogger) *Manager {
	m.auditor = normalizeAuditLogger(auditor)
	return m
}

// WithLogger sets the package logger.
func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithClock overrides the time source used for login stamps and two-factor
// expiry.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// GetUser loads a profile by id, scoping it to the site and attaching the
// resolved role string.
func (m *Manager) GetUser(ctx context.Context, userID uuid.UUID, siteID int) (*User, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.withRoles(ctx, user, siteID)
}

// GetUserByUsername loads a profile by username, scoping it to the site and
// attaching the resolved role string.
func (m *Manager) GetUserByUsername(ctx context.Context, username string, siteID int) (*User, error) {
	user, err := m.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return m.withRoles(ctx, user, siteID)
}

func (m *Manager) withRoles(ctx context.Context, user *User, siteID int) (*User, error) {
	user.SiteID = siteID
	roles, err := m.resolver.Resolve(ctx, user.ID, siteID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

// AddUser registers a new user: identity record first, profile row second.
// When an identity already exists for the username, the supplied password is
// verified against it instead (the invite-into-a-new-site merge path). No
// profile row is created and no notification is sent when the identity step
// fails, and the plaintext password never survives the call on any branch.
func (m *Manager) AddUser(ctx context.Context, user *User) (*User, error) {
	alias := m.tenants.CurrentAlias(ctx)
	succeeded := false
	errorText := ""

	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}

	if record == nil {
		record = &IdentityRecord{
			Username:       user.Username,
			Email:          user.Email,
			EmailConfirmed: user.EmailConfirmed,
		}
		result, err := m.gateway.Create(ctx, record, user.Password)
		if err != nil {
			user.ScrubPassword()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create identity record")
		}
		succeeded = result.Succeeded
		if !succeeded {
			errorText = result.ErrorText()
		}
	} else {
		result, err := m.gateway.CheckPassword(ctx, record, user.Password, false)
		if err != nil {
			user.ScrubPassword()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify password for existing identity")
		}
		succeeded = result.Succeeded
		if !succeeded {
			errorText = ErrPasswordNotValid.Error()
		}
		user.EmailConfirmed = succeeded
	}

	if !succeeded {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionCreate,
			"unable to add user %s: %s", user.Username, errorText)
		user.ScrubPassword()
		return nil, goerrors.New(errorText, goerrors.CategoryValidation)
	}

	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	user.LastLoginOn = nil
	user.LastIPAddress = ""

	added, err := m.users.Add(ctx, user)
	if err != nil {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionCreate,
			"unable to add user profile %s", user.Username)
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist user profile")
	}

	m.publish(ctx, alias.TenantID, added.ID, SyncActionCreate)

	if !user.EmailConfirmed {
		token, err := m.gateway.GenerateEmailConfirmationToken(ctx, record)
		if err != nil {
			m.logger.Error("email confirmation token generation failed for %s: %v", added.Username, err)
		} else {
			link := m.loginLink(alias, added.Username, token)
			body := "Dear " + added.DisplayName + ",\n\nIn Order To Complete The Registration Of Your User Account Please Click The Link Displayed Below:\n\n" +
				link + "\n\nThank You!"
			m.notify(ctx, NewNotification(user.SiteID, added, "User Account Verification", body))
		}
	} else {
		body := "Dear " + added.DisplayName + ",\n\nA User Account Has Been Successfully Created For You. Please Use The Following Link To Access The Site:\n\n" +
			alias.Protocol + "://" + alias.Host + "\n\nThank You!"
		m.notify(ctx, NewNotification(user.SiteID, added, "User Account Notification", body))
	}

	added.ScrubPassword()
	m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionCreate,
		"user added %s", added.Username)

	return added, nil
}

// UpdateUser applies profile and identity changes as a unit. A non-empty
// password must pass complexity validation before anything is persisted; on
// violation the whole update short-circuits, email change included. On
// success two change events go out, update and refresh, because downstream
// consumers treat data-changed and invalidate-cached-claims as distinct
// signals.
func (m *Manager) UpdateUser(ctx context.Context, user *User) (*User, error) {
	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}
	if record == nil {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionUpdate,
			"unable to update user %s: identity not found", user.Username)
		user.ScrubPassword()
		return nil, goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "no identity record for username")
	}

	if user.Password != "" {
		if result := m.gateway.ValidatePasswordComplexity(ctx, user.Password); !result.Succeeded {
			m.audit(ctx, user.SiteID, LogLevelError, LogFunctionUpdate,
				"unable to update user %s: password does not meet complexity requirements", user.Username)
			user.ScrubPassword()
			return nil, goerrors.Wrap(ErrPasswordComplexity, goerrors.CategoryValidation, "password rejected by policy")
		}
	}

	// One identity save carries both changes so the record never persists a
	// new password without the matching email, or vice versa.
	record.Email = user.Email
	if user.Password != "" {
		if err := m.gateway.SetPassword(ctx, record, user.Password); err != nil {
			user.ScrubPassword()
			return nil, err
		}
	} else if err := m.gateway.Update(ctx, record); err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist identity record")
	}

	updated, err := m.users.Update(ctx, user)
	if err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist user profile")
	}

	alias := m.tenants.CurrentAlias(ctx)
	m.publish(ctx, alias.TenantID, updated.ID, SyncActionUpdate)
	m.publish(ctx, alias.TenantID, updated.ID, SyncActionRefresh)

	updated.ScrubPassword()
	m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionUpdate,
		"user updated %s", updated.Username)

	return updated, nil
}

// DeleteUser tears an account down in three independent stages: site role
// rows, the site asset folder, and, only when no memberships remain on any
// site, the identity record followed by the profile row. A failure in a
// later stage never undoes an earlier one, and the profile row is kept
// whenever the identity deletion fails so the two stores cannot diverge in
// the dangerous direction.
func (m *Manager) DeleteUser(ctx context.Context, userID uuid.UUID, siteID int) error {
	memberships, err := m.userRoles.ListRoles(ctx, userID, siteID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list user roles")
	}

	for _, membership := range memberships {
		if err := m.userRoles.DeleteRole(ctx, membership.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user role").
				WithMetadata(map[string]any{"user_role_id": membership.ID.String()})
		}
		m.audit(ctx, siteID, LogLevelInformation, LogFunctionDelete,
			"user role deleted %s for user %s", membership.RoleName, userID)
	}

	if m.folders != nil {
		folder, err := m.folders.GetFolder(ctx, siteID, UserFolderPath(userID))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user folder")
		}
		if folder != nil {
			deleteRecord := true
			if path := m.folders.ResolvePath(folder); path != "" {
				if err := m.removeAssets(path); err != nil {
					m.logger.Error("user folder contents removal failed for %s: %v", path, err)
					deleteRecord = false
				}
			}
			if deleteRecord {
				if err := m.folders.DeleteFolder(ctx, folder.ID); err != nil {
					m.logger.Error("user folder record removal failed for %s: %v", folder.ID, err)
				} else {
					m.audit(ctx, siteID, LogLevelInformation, LogFunctionDelete,
						"user folder deleted %s", folder.Path)
				}
			}
		}
	}

	remaining, err := m.userRoles.ListRoles(ctx, userID, AnySite)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list remaining memberships")
	}
	if len(remaining) > 0 {
		return nil
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}
	if record == nil {
		return nil
	}

	result, err := m.gateway.Delete(ctx, record)
	if err != nil || !result.Succeeded {
		m.audit(ctx, siteID, LogLevelError, LogFunctionDelete,
			"error deleting user %s", userID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete identity record")
		}
		return goerrors.New("identity record deletion did not succeed", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"errors": result.ErrorText()})
	}

	if err := m.users.Delete(ctx, userID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user profile")
	}

	alias := m.tenants.CurrentAlias(ctx)
	m.publish(ctx, alias.TenantID, userID, SyncActionDelete)
	m.audit(ctx, siteID, LogLevelInformation, LogFunctionDelete,
		"user deleted %s", userID)

	return nil
}

// LoginUser drives the credential check state machine: locked out accounts
// get a reset-link notification, two-factor profiles get a 10 minute code
// and come back unauthenticated pending VerifyTwoFactor, unconfirmed emails
// never authenticate even on a correct password, and only the fully
// authenticated terminal state stamps last-login and, when requested,
// establishes a session.
//
// A missing identity record is reported through the audit trail only, not as
// a distinct error, to keep username enumeration out of the response.
func (m *Manager) LoginUser(ctx context.Context, user *User, setCookie, isPersistent bool) (*User, error) {
	user.IsAuthenticated = false

	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}
	if record == nil {
		m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionSecurity,
			"user login failed %s", user.Username)
		return user.ScrubPassword(), nil
	}

	result, err := m.gateway.CheckPassword(ctx, record, user.Password, true)
	if err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "password check failed")
	}

	if !result.Succeeded {
		if result.IsLockedOut {
			m.sendLockoutNotification(ctx, record, user)
		} else {
			m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionSecurity,
				"user login failed %s", user.Username)
		}
		return user.ScrubPassword(), nil
	}

	lastIP := user.LastIPAddress
	siteID := user.SiteID

	profile, err := m.users.GetByUsername(ctx, user.Username)
	if err != nil {
		user.ScrubPassword()
		return nil, err
	}
	profile.SiteID = siteID

	if profile.TwoFactorRequired {
		return m.issueTwoFactorCode(ctx, record, profile)
	}

	if !record.EmailConfirmed {
		m.audit(ctx, siteID, LogLevelInformation, LogFunctionSecurity,
			"user not verified %s", profile.Username)
		return profile.ScrubPassword(), nil
	}

	profile.IsAuthenticated = true
	loginAt := m.now().UTC()
	profile.LastLoginOn = &loginAt
	profile.LastIPAddress = lastIP

	if _, err := m.users.Update(ctx, profile); err != nil {
		profile.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist login stamp")
	}

	m.audit(ctx, siteID, LogLevelInformation, LogFunctionSecurity,
		"user login successful %s", profile.Username)

	if setCookie && m.sessions != nil {
		token, err := m.sessions.Issue(ctx, record, isPersistent)
		if err != nil {
			profile.ScrubPassword()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to establish session")
		}
		profile.SessionToken = token
	}

	return profile.ScrubPassword(), nil
}

func (m *Manager) issueTwoFactorCode(ctx context.Context, record *IdentityRecord, profile *User) (*User, error) {
	code, err := m.gateway.GenerateTwoFactorToken(ctx, record, TwoFactorChannelEmail)
	if err != nil {
		profile.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	expiry := m.now().Add(twoFactorCodeTTL)
	profile.TwoFactorCode = code
	profile.TwoFactorExpiry = &expiry

	if _, err := m.users.Update(ctx, profile); err != nil {
		profile.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist verification code")
	}

	body := "Dear " + profile.DisplayName + ",\n\nYou requested a secure verification code to log in to your account. Please enter the secure verification code on the site:\n\n" +
		code + "\n\nPlease note that the code is only valid for 10 minutes so if you are unable to take action within that time period, you should initiate a new login on the site." +
		"\n\nThank You!"
	m.notify(ctx, NewNotification(profile.SiteID, profile, "User Verification Code", body))

	m.audit(ctx, profile.SiteID, LogLevelInformation, LogFunctionSecurity,
		"user verification notification sent for %s", profile.Username)

	profile.TwoFactorRequired = true
	profile.IsAuthenticated = false

	return profile.ScrubPassword(), nil
}

func (m *Manager) sendLockoutNotification(ctx context.Context, record *IdentityRecord, user *User) {
	alias := m.tenants.CurrentAlias(ctx)

	recipient := user
	if profile, err := m.users.GetByUsername(ctx, user.Username); err == nil {
		profile.SiteID = user.SiteID
		recipient = profile
	}

	token, err := m.gateway.GeneratePasswordResetToken(ctx, record)
	if err != nil {
		m.logger.Error("password reset token generation failed for %s: %v", user.Username, err)
		return
	}

	link := m.resetLink(alias, recipient.Username, token)
	body := "Dear " + recipient.DisplayName + ",\n\nYou attempted multiple times unsuccessfully to log in to your account and it is now locked out. Please wait a few minutes and then try again... or use the link below to reset your password:\n\n" +
		link + "\n\nPlease note that the link is only valid for 24 hours so if you are unable to take action within that time period, you should initiate another password reset on the site." +
		"\n\nThank You!"
	m.notify(ctx, NewNotification(recipient.SiteID, recipient, "User Lockout", body))

	m.audit(ctx, recipient.SiteID, LogLevelInformation, LogFunctionSecurity,
		"user lockout notification sent for %s", recipient.Username)
}

// VerifyTwoFactor completes a pending two-factor login. The code is
// invalidated on first successful use, so a replay inside the validity
// window fails like any other wrong code.
func (m *Manager) VerifyTwoFactor(ctx context.Context, user *User, code string) (*User, error) {
	profile, err := m.users.GetByUsername(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	profile.SiteID = user.SiteID

	if profile.TwoFactorRequired &&
		profile.TwoFactorCode != "" &&
		profile.TwoFactorCode == code &&
		profile.TwoFactorExpiry != nil &&
		m.now().Before(*profile.TwoFactorExpiry) {

		profile.IsAuthenticated = true
		profile.TwoFactorCode = ""
		profile.TwoFactorExpiry = nil

		if _, err := m.users.Update(ctx, profile); err != nil {
			profile.IsAuthenticated = false
			profile.ScrubPassword()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate verification code")
		}

		m.audit(ctx, profile.SiteID, LogLevelInformation, LogFunctionSecurity,
			"two factor verification succeeded for %s", profile.Username)
	}

	return profile.ScrubPassword(), nil
}

// VerifyEmail confirms the address on the identity record using the token
// from the registration notification.
func (m *Manager) VerifyEmail(ctx context.Context, user *User, token string) (*User, error) {
	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}

	if record == nil || token == "" {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionSecurity,
			"email verification failed for %s and token %s", user.Username, token)
		if record == nil {
			return nil, goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "no identity record for username")
		}
		return nil, goerrors.Wrap(ErrTokenRequired, goerrors.CategoryBadInput, "verification token is required")
	}

	result, err := m.gateway.ConfirmEmail(ctx, record, token)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "email confirmation failed")
	}
	if !result.Succeeded {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionSecurity,
			"email verification failed for %s: %s", user.Username, result.ErrorText())
		return nil, goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, result.ErrorText())
	}

	m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionSecurity,
		"email verified for %s", user.Username)

	return user, nil
}

// ForgotPassword sends a reset-link notification whenever an identity record
// exists for the username, regardless of lockout or verification state. A
// missing identity produces an audit entry and nothing else, so account
// existence does not leak through the response.
func (m *Manager) ForgotPassword(ctx context.Context, user *User) error {
	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}
	if record == nil {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionSecurity,
			"password reset notification failed for %s", user.Username)
		return nil
	}

	alias := m.tenants.CurrentAlias(ctx)

	recipient := user
	if profile, err := m.users.GetByUsername(ctx, user.Username); err == nil {
		profile.SiteID = alias.SiteID
		recipient = profile
	}

	token, err := m.gateway.GeneratePasswordResetToken(ctx, record)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate password reset token")
	}

	link := m.resetLink(alias, recipient.Username, token)
	body := "Dear " + recipient.DisplayName + ",\n\nYou recently requested to reset your password. Please use the link below to complete the process:\n\n" +
		link + "\n\nPlease note that the link is only valid for 24 hours so if you are unable to take action within that time period, you should initiate another password reset on the site." +
		"\n\nIf you did not request to reset your password you can safely ignore this message." +
		"\n\nThank You!"
	m.notify(ctx, NewNotification(alias.SiteID, recipient, "User Password Reset", body))

	m.audit(ctx, alias.SiteID, LogLevelInformation, LogFunctionSecurity,
		"password reset notification sent for %s", recipient.Username)

	return nil
}

// ResetPassword sets a new password using a reset token. The returned user
// carries an empty password on success.
func (m *Manager) ResetPassword(ctx context.Context, user *User, token string) (*User, error) {
	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}

	if record == nil || token == "" {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionSecurity,
			"password reset failed for %s and token %s", user.Username, token)
		user.ScrubPassword()
		if record == nil {
			return nil, goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "no identity record for username")
		}
		return nil, goerrors.Wrap(ErrTokenRequired, goerrors.CategoryBadInput, "reset token is required")
	}

	result, err := m.gateway.ResetPassword(ctx, record, token, user.Password)
	if err != nil {
		user.ScrubPassword()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "password reset failed")
	}
	if !result.Succeeded {
		m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionSecurity,
			"password reset failed for %s: %s", user.Username, result.ErrorText())
		user.ScrubPassword()
		return nil, goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, result.ErrorText())
	}

	m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionSecurity,
		"password reset for %s", user.Username)

	user.ScrubPassword()
	return user, nil
}

// LinkExternalAccount registers an external provider login against the
// identity record. The token must be a valid email-confirmation token, which
// doubles as the linkage authorization proof. The stored provider type is
// suffixed with the site id so one shared credential store keeps the same
// provider distinct per site.
func (m *Manager) LinkExternalAccount(ctx context.Context, user *User, token, providerType, providerKey, providerName string) (*User, error) {
	record, err := m.gateway.FindByName(ctx, user.Username)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up identity record")
	}

	if record == nil || token == "" {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionSecurity,
			"external login linkage failed for %s", user.Username)
		if record == nil {
			return nil, goerrors.Wrap(ErrIdentityNotFound, goerrors.CategoryNotFound, "no identity record for username")
		}
		return nil, goerrors.Wrap(ErrTokenRequired, goerrors.CategoryBadInput, "linkage token is required")
	}

	result, err := m.gateway.ConfirmEmail(ctx, record, token)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "linkage token confirmation failed")
	}
	if !result.Succeeded {
		m.audit(ctx, user.SiteID, LogLevelError, LogFunctionSecurity,
			"external login linkage failed for %s: %s", user.Username, result.ErrorText())
		return nil, goerrors.Wrap(ErrTokenInvalid, goerrors.CategoryAuth, result.ErrorText())
	}

	// scope the provider per site within the shared credential store
	scopedType := fmt.Sprintf("%s:%d", providerType, user.SiteID)
	if err := m.gateway.AddLogin(ctx, record, scopedType, providerKey, providerName); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register external login")
	}

	m.audit(ctx, user.SiteID, LogLevelInformation, LogFunctionSecurity,
		"external login linkage successful for %s and provider %s", user.Username, scopedType)

	return user, nil
}

// ValidatePassword reports whether a candidate password satisfies the
// complexity policy. No side effects.
func (m *Manager) ValidatePassword(ctx context.Context, password string) bool {
	return m.gateway.ValidatePasswordComplexity(ctx, password).Succeeded
}

func (m *Manager) loginLink(alias Alias, username, token string) string {
	return alias.Protocol + "://" + alias.Host + "/login?name=" + username + "&token=" + url.QueryEscape(token)
}

func (m *Manager) resetLink(alias Alias, username, token string) string {
	return alias.Protocol + "://" + alias.Host + "/reset?name=" + username + "&token=" + url.QueryEscape(token)
}

// audit emits one entry per branch outcome; a failing auditor is logged and
// otherwise ignored.
func (m *Manager) audit(ctx context.Context, siteID int, level LogLevel, function LogFunction, template string, args ...any) {
	entry := AuditEntry{
		SiteID:     siteID,
		Level:      level,
		Function:   function,
		Template:   template,
		Args:       args,
		OccurredAt: m.now(),
	}
	if err := m.auditor.Log(ctx, entry); err != nil {
		m.logger.Error("audit log failed: %v", err)
	}
}

func (m *Manager) notify(ctx context.Context, notification *Notification) {
	if m.notifications == nil {
		return
	}
	if err := m.notifications.Enqueue(ctx, notification); err != nil {
		m.logger.Error("notification enqueue failed for %s: %v", notification.Subject, err)
	}
}

func (m *Manager) publish(ctx context.Context, tenantID string, userID uuid.UUID, action SyncAction) {
	event := ChangeEvent{
		TenantID:   tenantID,
		EntityName: EntityUser,
		EntityID:   userID.String(),
		Action:     action,
		OccurredAt: m.now(),
	}
	if err := m.events.Publish(ctx, event); err != nil {
		m.logger.Error("change event publish failed for %s: %v", event.EntityID, err)
	}
}
