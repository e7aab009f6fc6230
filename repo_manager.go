package accounts

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error

	Users() Users
	UserRoles() UserRoles
	Folders() Folders
	Identities() Identities
}

type mngr struct {
	db         *bun.DB
	users      Users
	userRoles  UserRoles
	folders    Folders
	identities Identities
}

// NewRepositoryManager wires every repository against the given database.
// assetBasePath is the filesystem root for site asset folders.
func NewRepositoryManager(db *bun.DB, assetBasePath string) RepositoryManager {
	return &mngr{
		db:         db,
		users:      NewUsersRepository(db),
		userRoles:  NewUserRolesRepository(db),
		folders:    NewFoldersRepository(db, assetBasePath),
		identities: NewIdentitiesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.userRoles == nil {
		return errors.New("repository userRoles should be initialized")
	}

	if m.folders == nil {
		return errors.New("repository folders should be initialized")
	}

	if m.identities == nil {
		return errors.New("repository identities should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users { return m.users }

func (m mngr) UserRoles() UserRoles { return m.userRoles }

func (m mngr) Folders() Folders { return m.folders }

func (m mngr) Identities() Identities { return m.identities }
