package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/site"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// TimestampLayout is the ISO-8601 form stored in searches.timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteStore implements Store using sqlx over modernc.org/sqlite.
type SQLiteStore struct {
	db  *sqlx.DB
	log *zap.Logger
	now func() time.Time

	mu    sync.RWMutex
	order []string // site names in the order last synced

	// beforeProductInsert, when set, runs before the i-th product row is
	// written inside SaveRun. Tests use it to fail mid-transaction.
	beforeProductInsert func(i int) error
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) the database file at path. Foreign
// keys are enforced on every connection and the journal runs in WAL mode so
// readers never wait on an in-flight SaveRun.
func NewSQLite(path string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create dir %s", dir)
		}
	}

	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "sqlite: ping %s", path)
	}
	return &SQLiteStore{
		db:  db,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return eris.Wrap(err, "sqlite: migrate ping")
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "sqlite: migration source")
	}
	driver, err := sqlitemigrate.WithInstance(s.db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return eris.Wrap(err, "sqlite: migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return eris.Wrap(err, "sqlite: migration instance")
	}
	// m.Close would close the shared *sql.DB; only the source is released.
	defer src.Close() //nolint:errcheck

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return eris.Wrap(err, "sqlite: migrate up")
	}

	version, dirty, err := m.Version()
	if err != nil {
		s.log.Warn("could not read migration version", zap.Error(err))
	} else {
		s.log.Debug("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SyncSites upserts every site by name, keeping base_url current.
func (s *SQLiteStore) SyncSites(ctx context.Context, sites []site.Descriptor) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin sync sites")
	}
	defer tx.Rollback() //nolint:errcheck

	names := make([]string, 0, len(sites))
	for _, d := range sites {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sites (name, base_url) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET base_url = excluded.base_url`,
			d.ID, d.BaseURL,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert site %s", d.ID)
		}
		names = append(names, d.ID)
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit sync sites")
	}

	s.mu.Lock()
	s.order = names
	s.mu.Unlock()
	return nil
}

// SaveRun writes the run and all of its products in one transaction and
// returns the new run id. Sites with products must already be in the sites
// table; otherwise ErrUnknownSite is returned and nothing is written. Any
// failure rolls the whole run back.
func (s *SQLiteStore) SaveRun(ctx context.Context, term string, results *models.ResultSet) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save run")
	}
	defer tx.Rollback() //nolint:errcheck

	siteIDs, err := s.resolveSites(ctx, tx, results)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO searches (search_term, timestamp, total_results) VALUES (?, ?, ?)`,
		term, s.now().Format(TimestampLayout), results.Total(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert search")
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: search id")
	}

	i := 0
	for _, name := range results.Sites() {
		for _, p := range results.Get(name) {
			if s.beforeProductInsert != nil {
				if err := s.beforeProductInsert(i); err != nil {
					return 0, eris.Wrapf(err, "sqlite: insert product %d", i)
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO products (search_id, site_id, title, price, link, image) VALUES (?, ?, ?, ?, ?, ?)`,
				runID, siteIDs[name], p.Title, p.Price, p.Link, p.Image,
			); err != nil {
				return 0, eris.Wrapf(err, "sqlite: insert product %d for %s", i, name)
			}
			i++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save run")
	}
	return runID, nil
}

// resolveSites maps every site holding at least one product to its row id.
func (s *SQLiteStore) resolveSites(ctx context.Context, tx *sqlx.Tx, results *models.ResultSet) (map[string]int64, error) {
	var names []string
	for _, name := range results.Sites() {
		if len(results.Get(name)) > 0 {
			names = append(names, name)
		}
	}
	ids := make(map[string]int64, len(names))
	if len(names) == 0 {
		return ids, nil
	}

	query, args, err := sqlx.In(`SELECT id, name FROM sites WHERE name IN (?)`, names)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build site lookup")
	}
	var rows []struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return nil, eris.Wrap(err, "sqlite: lookup sites")
	}
	for _, r := range rows {
		ids[r.Name] = r.ID
	}
	for _, name := range names {
		if _, ok := ids[name]; !ok {
			return nil, eris.Wrapf(ErrUnknownSite, "site %q", name)
		}
	}
	return ids, nil
}

type productRow struct {
	SiteName string         `db:"site_name"`
	Title    string         `db:"title"`
	Price    sql.NullString `db:"price"`
	Link     sql.NullString `db:"link"`
	Image    sql.NullString `db:"image"`
}

// GetRun returns the run and its products keyed by site. Every known site is
// present, with an empty list when it contributed nothing to the run.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*models.SearchRun, *models.ResultSet, error) {
	var run models.SearchRun
	err := s.db.GetContext(ctx, &run,
		`SELECT id, search_term, timestamp, total_results FROM searches WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, eris.Wrapf(ErrRunNotFound, "run %d", id)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: get run %d", id)
	}

	sites, err := s.siteNames(ctx)
	if err != nil {
		return nil, nil, err
	}
	results := models.NewResultSet(sites...)

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT s.name AS site_name, p.title, p.price, p.link, p.image
		 FROM products p
		 JOIN sites s ON p.site_id = s.id
		 WHERE p.search_id = ?
		 ORDER BY p.id`, id,
	); err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: products for run %d", id)
	}
	for _, r := range rows {
		results.Append(r.SiteName, models.Product{
			Title:  r.Title,
			Price:  r.Price.String,
			Link:   r.Link.String,
			Image:  r.Image.String,
			Source: r.SiteName,
		})
	}
	return &run, results, nil
}

// siteNames lists every site in the table: last-synced order first, then
// any remaining rows by id.
func (s *SQLiteStore) siteNames(ctx context.Context) ([]string, error) {
	var stored []string
	if err := s.db.SelectContext(ctx, &stored, `SELECT name FROM sites ORDER BY id`); err != nil {
		return nil, eris.Wrap(err, "sqlite: list sites")
	}

	s.mu.RLock()
	synced := s.order
	s.mu.RUnlock()

	inTable := make(map[string]bool, len(stored))
	for _, n := range stored {
		inTable[n] = true
	}
	out := make([]string, 0, len(stored))
	seen := make(map[string]bool, len(stored))
	for _, n := range synced {
		if inTable[n] && !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	for _, n := range stored {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

// ListRecentRuns returns up to limit runs, most recent first. A limit of
// zero or less means DefaultListLimit.
func (s *SQLiteStore) ListRecentRuns(ctx context.Context, limit int) ([]models.SearchRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	runs := []models.SearchRun{}
	if err := s.db.SelectContext(ctx, &runs,
		`SELECT id, search_term, timestamp, total_results FROM searches ORDER BY id DESC LIMIT ?`, limit,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	return runs, nil
}

// DeleteRun removes a run. Its products go with it via ON DELETE CASCADE.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "run %d", id)
	}
	return nil
}
