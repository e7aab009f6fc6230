package accounts

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserFolderPath is the conventional per-user asset folder path on a site.
func UserFolderPath(userID uuid.UUID) string {
	return fmt.Sprintf("Users/%s/", userID)
}

// Folders is the asset folder repository backing AssetFolderStore.
type Folders interface {
	repository.Repository[*Folder]
	AssetFolderStore
}

type folders struct {
	repository.Repository[*Folder]
	db       *bun.DB
	basePath string
}

var _ Folders = (*folders)(nil)

// NewFoldersRepository returns the bun-backed folder repository. basePath is
// the root of the backing filesystem; resolved paths are
// {basePath}/site-{siteID}/{folder.Path}.
func NewFoldersRepository(db *bun.DB, basePath string) Folders {
	repo := repository.NewRepository[*Folder](db, repository.ModelHandlers[*Folder]{
		NewRecord: func() *Folder { return &Folder{} },
		GetID: func(f *Folder) uuid.UUID {
			if f == nil {
				return uuid.Nil
			}
			return f.ID
		},
		SetID: func(f *Folder, id uuid.UUID) {
			if f != nil {
				f.ID = id
			}
		},
	})

	return &folders{
		Repository: repo,
		db:         db,
		basePath:   basePath,
	}
}

// GetFolder returns (nil, nil) when no folder record exists for the path.
func (a *folders) GetFolder(ctx context.Context, siteID int, path string) (*Folder, error) {
	record := &Folder{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.site_id = ?", siteID).
		Where("?TableAlias.path = ?", path).
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

func (a *folders) ResolvePath(folder *Folder) string {
	if folder == nil {
		return ""
	}
	return filepath.Join(a.basePath, fmt.Sprintf("site-%d", folder.SiteID), filepath.FromSlash(folder.Path))
}

func (a *folders) DeleteFolder(ctx context.Context, folderID uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*Folder)(nil)).
		Where("id = ?", folderID).
		ForceDelete().
		Exec(ctx)
	return err
}
