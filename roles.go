package accounts

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Well-known role names. Host is the superuser role and implicitly carries
// every lesser privilege on the site.
const (
	RoleHost       = "Host"
	RoleAdmin      = "Admin"
	RoleRegistered = "Registered"
)

// impliedRoles is the role implication table: holding the key grants the
// listed roles in the resolved set even when no membership row exists for
// them. Host is the only role with implications.
var impliedRoles = map[string][]string{
	RoleHost: {RoleAdmin, RoleRegistered},
}

// RoleResolver derives the effective role string for a user on a site.
type RoleResolver struct {
	roles UserRoleStore
}

// NewRoleResolver returns a resolver reading memberships from the store.
func NewRoleResolver(roles UserRoleStore) *RoleResolver {
	return &RoleResolver{roles: roles}
}

// Resolve builds the semicolon-delimited role string for (userID, siteID),
// e.g. ";Registered;Editor;". Roles appear in storage order, implied roles
// are appended after the role that grants them, each name at most once. A
// user with no memberships on the site resolves to the empty string.
//
// The derived string is never persisted; it is recomputed on every profile
// read that needs roles.
func (r *RoleResolver) Resolve(ctx context.Context, userID uuid.UUID, siteID int) (string, error) {
	memberships, err := r.roles.ListRoles(ctx, userID, siteID)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list user roles")
	}

	if len(memberships) == 0 {
		return "", nil
	}

	stored := make(map[string]bool, len(memberships))
	for _, m := range memberships {
		stored[m.RoleName] = true
	}

	var names []string
	emitted := make(map[string]bool, len(memberships))

	for _, m := range memberships {
		if !emitted[m.RoleName] {
			names = append(names, m.RoleName)
			emitted[m.RoleName] = true
		}
		for _, implied := range impliedRoles[m.RoleName] {
			if stored[implied] || emitted[implied] {
				continue
			}
			names = append(names, implied)
			emitted[implied] = true
		}
	}

	return ";" + strings.Join(names, ";") + ";", nil
}
