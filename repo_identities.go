package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityStore is the narrow persistence surface the local credential
// store depends on.
type IdentityStore interface {
	GetByUsername(ctx context.Context, username string) (*IdentityRecord, error)
	Insert(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error)
	Save(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error)
	Remove(ctx context.Context, record *IdentityRecord) error
	AddLogin(ctx context.Context, login *ExternalLogin) (*ExternalLogin, error)
}

// Identities is the credential-store repository used by the local
// CredentialGateway implementation. External identity backends do not need
// it.
type Identities interface {
	IdentityStore

	ListLogins(ctx context.Context, identityID uuid.UUID) ([]*ExternalLogin, error)
}

type identities struct {
	repository.Repository[*IdentityRecord]
	db *bun.DB
}

var _ Identities = (*identities)(nil)

// NewIdentitiesRepository returns the bun-backed identity repository.
func NewIdentitiesRepository(db *bun.DB) Identities {
	repo := repository.NewRepository[*IdentityRecord](db, repository.ModelHandlers[*IdentityRecord]{
		NewRecord: func() *IdentityRecord { return &IdentityRecord{} },
		GetID: func(r *IdentityRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *IdentityRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &identities{
		Repository: repo,
		db:         db,
	}
}

// GetByUsername returns (nil, nil) when no identity record exists; the
// gateway's FindByName contract depends on that.
func (a *identities) GetByUsername(ctx context.Context, username string) (*IdentityRecord, error) {
	record := &IdentityRecord{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

// Insert creates the identity record row.
func (a *identities) Insert(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error) {
	return a.Repository.Create(ctx, record)
}

// Save persists every field of the record by primary key.
func (a *identities) Save(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, goerrors.Wrap(repository.ErrRecordNotFound, goerrors.CategoryNotFound, "cannot save identity record without id")
	}
	return a.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

// Remove hard-deletes the identity record row. ForceDelete bypasses the
// soft-delete stamp so the unique username is released for re-registration.
func (a *identities) Remove(ctx context.Context, record *IdentityRecord) error {
	if record == nil || record.ID == uuid.Nil {
		return goerrors.Wrap(repository.ErrRecordNotFound, goerrors.CategoryNotFound, "cannot remove identity record without id")
	}
	_, err := a.db.NewDelete().
		Model((*IdentityRecord)(nil)).
		Where("id = ?", record.ID).
		ForceDelete().
		Exec(ctx)
	return err
}

func (a *identities) AddLogin(ctx context.Context, login *ExternalLogin) (*ExternalLogin, error) {
	if login.ID == uuid.Nil {
		login.ID = uuid.New()
	}
	if _, err := a.db.NewInsert().Model(login).Exec(ctx); err != nil {
		return nil, err
	}
	return login, nil
}

func (a *identities) ListLogins(ctx context.Context, identityID uuid.UUID) ([]*ExternalLogin, error) {
	var records []*ExternalLogin
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.identity_id = ?", identityID).
		Order("extl.created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}
