// Package file provides file-based persistence for local development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/edulab/orchestrator/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root  string
	store *store

	catalogRepo      *CatalogRepository
	historyRepo      *HistoryRepository
	userRepo         *UserRepository
	notificationRepo *NotificationRepository
	publicationRepo  *PublicationRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	s := newStore(cleanRoot)
	users := &UserRepository{store: s}

	return &Persistence{
		root:             cleanRoot,
		store:            s,
		catalogRepo:      &CatalogRepository{store: s},
		historyRepo:      &HistoryRepository{store: s, users: users},
		userRepo:         users,
		notificationRepo: &NotificationRepository{store: s},
		publicationRepo:  &PublicationRepository{store: s},
	}
}

// RunInTx stages writes in memory and flushes them to disk when fn succeeds.
func (fp *Persistence) RunInTx(ctx context.Context, fn persistence.TxFunc) error {
	return fp.store.runInTx(ctx, fn)
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) CatalogRepository() persistence.CatalogRepository {
	return fp.catalogRepo
}

func (fp *Persistence) HistoryRepository() persistence.HistoryRepository {
	return fp.historyRepo
}

func (fp *Persistence) UserRepository() persistence.UserRepository {
	return fp.userRepo
}

func (fp *Persistence) NotificationRepository() persistence.NotificationRepository {
	return fp.notificationRepo
}

func (fp *Persistence) PublicationRepository() persistence.PublicationRepository {
	return fp.publicationRepo
}
