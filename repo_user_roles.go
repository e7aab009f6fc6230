package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRoles is the membership repository backing UserRoleStore.
type UserRoles interface {
	repository.Repository[*UserRole]
	UserRoleStore

	Grant(ctx context.Context, userID uuid.UUID, siteID int, roleName string) (*UserRole, error)
}

type userRoles struct {
	repository.Repository[*UserRole]
	db *bun.DB
}

var _ UserRoles = (*userRoles)(nil)

// NewUserRolesRepository returns the bun-backed membership repository.
func NewUserRolesRepository(db *bun.DB) UserRoles {
	repo := repository.NewRepository[*UserRole](db, repository.ModelHandlers[*UserRole]{
		NewRecord: func() *UserRole { return &UserRole{} },
		GetID: func(r *UserRole) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *UserRole, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &userRoles{
		Repository: repo,
		db:         db,
	}
}

// ListRoles returns memberships for the user in storage order. Passing
// AnySite returns memberships across every site, which is how callers check
// whether a user belongs anywhere else before a hard delete.
func (a *userRoles) ListRoles(ctx context.Context, userID uuid.UUID, siteID int) ([]*UserRole, error) {
	var records []*UserRole

	q := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("usrr.created_at ASC")

	if siteID != AnySite {
		q = q.Where("?TableAlias.site_id = ?", siteID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *userRoles) DeleteRole(ctx context.Context, userRoleID uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*UserRole)(nil)).
		Where("id = ?", userRoleID).
		ForceDelete().
		Exec(ctx)
	return err
}

func (a *userRoles) Grant(ctx context.Context, userID uuid.UUID, siteID int, roleName string) (*UserRole, error) {
	record := &UserRole{
		ID:       uuid.New(),
		UserID:   userID,
		SiteID:   siteID,
		RoleName: roleName,
	}
	return a.Repository.Create(ctx, record)
}
