package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the profile repository contract. Its methods shadow the generic
// repository surface with uuid-typed variants; callers needing criteria
// queries or transactions use the underlying repository directly.
type Users interface {
	UserProfileStore
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository returns the bun-backed profile repository.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(ErrProfileNotFound, goerrors.CategoryNotFound, "no profile for id").
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(ErrProfileNotFound, goerrors.CategoryNotFound, "no profile for username").
				WithMetadata(map[string]any{"username": username})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Add(ctx context.Context, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.Create(ctx, user)
}

func (a *users) Update(ctx context.Context, user *User) (*User, error) {
	if user == nil || user.ID == uuid.Nil {
		return nil, goerrors.New("cannot update user without id", goerrors.CategoryBadInput)
	}
	return a.Repository.Update(ctx, user, repository.UpdateByID(user.ID.String()))
}

// Delete hard-deletes the profile row. ForceDelete bypasses the soft-delete
// stamp so the unique username is released for re-registration.
func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		ForceDelete().
		Exec(ctx)
	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.DisplayName == "" {
		record.DisplayName = record.Username
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
