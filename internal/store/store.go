package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/site"
)

// DefaultListLimit bounds ListRecentRuns when the caller passes no limit.
const DefaultListLimit = 10

var (
	// ErrUnknownSite is returned by SaveRun when the result set names a site
	// that is not in the sites table. Nothing is written.
	ErrUnknownSite = eris.New("site not in sites table")
	// ErrRunNotFound is returned when a run id does not exist.
	ErrRunNotFound = eris.New("search run not found")
)

// Store persists search runs and their products.
type Store interface {
	// Sites
	SyncSites(ctx context.Context, sites []site.Descriptor) error

	// Runs
	SaveRun(ctx context.Context, term string, results *models.ResultSet) (int64, error)
	GetRun(ctx context.Context, id int64) (*models.SearchRun, *models.ResultSet, error)
	ListRecentRuns(ctx context.Context, limit int) ([]models.SearchRun, error)
	DeleteRun(ctx context.Context, id int64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
