package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/lukman83/gunpla-scrap/internal/extract"
	"github.com/lukman83/gunpla-scrap/internal/fetch"
	"github.com/lukman83/gunpla-scrap/internal/models"
	"github.com/lukman83/gunpla-scrap/internal/site"
	"github.com/lukman83/gunpla-scrap/internal/stealth"
)

// ErrBusy is returned by RunSearchAsync when a run is already in flight.
var ErrBusy = eris.New("a search is already running")

// Fetcher fetches one page.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*fetch.Page, error)
}

// RunSaver persists a finished run.
type RunSaver interface {
	SaveRun(ctx context.Context, term string, results *models.ResultSet) (int64, error)
}

// Dumper receives results as they are produced. Dump errors are logged and
// never affect the run.
type Dumper interface {
	DumpSite(site string, products []models.Product) error
	DumpRun(term string, results *models.ResultSet, at time.Time) error
}

// Options tunes a single run. Zero values fall back to the scraper defaults.
type Options struct {
	Delay   time.Duration
	Timeout time.Duration
}

// Config wires a Scraper.
type Config struct {
	Registry *site.Registry
	Fetcher  Fetcher
	Store    RunSaver // nil skips persistence
	Delay    *stealth.CourtesyDelay
	Dumper   Dumper
	Logger   *zap.Logger
	// RunTimeout caps a whole run. Zero means no cap.
	RunTimeout time.Duration
}

// SiteFailure records why one site contributed no results.
type SiteFailure struct {
	Site       string
	URL        string
	Kind       fetch.Kind
	StatusCode int
	Err        error
}

// Run is the outcome of one search across every site.
type Run struct {
	ID       int64 // zero when the run was not persisted
	Term     string
	Started  time.Time
	Results  *models.ResultSet
	Failures []SiteFailure
	// SaveErr holds the persistence error, if any. The scrape itself is
	// complete regardless.
	SaveErr error
}

// Scraper visits every registered site in order, one at a time.
type Scraper struct {
	registry   *site.Registry
	fetcher    Fetcher
	store      RunSaver
	delay      *stealth.CourtesyDelay
	dumper     Dumper
	log        *zap.Logger
	runTimeout time.Duration
	now        func() time.Time

	// sem allows a single run at a time.
	sem *semaphore.Weighted
}

// New builds a Scraper from cfg.
func New(cfg Config) (*Scraper, error) {
	if cfg.Registry == nil {
		return nil, eris.New("scraper: registry is required")
	}
	if cfg.Fetcher == nil {
		return nil, eris.New("scraper: fetcher is required")
	}
	if cfg.Delay == nil {
		cfg.Delay = stealth.NewCourtesyDelay(stealth.ProfileNormal)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Scraper{
		registry:   cfg.Registry,
		fetcher:    cfg.Fetcher,
		store:      cfg.Store,
		delay:      cfg.Delay,
		dumper:     cfg.Dumper,
		log:        cfg.Logger,
		runTimeout: cfg.RunTimeout,
		now:        time.Now,
		sem:        semaphore.NewWeighted(1),
	}, nil
}

// Registry returns the sites this scraper visits.
func (s *Scraper) Registry() *site.Registry { return s.registry }

// RunSearch scrapes every site for term and persists the aggregate. It waits
// for any in-flight run to finish first. A site failure yields an empty list
// for that site and never stops the run.
//
// The returned error is non-nil only when ctx ends (or the run timeout hits)
// before every site is visited; the partial Run is still returned, with the
// unvisited sites recorded as empty and nothing persisted.
func (s *Scraper) RunSearch(ctx context.Context, term string, opts Options) (*Run, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, eris.Wrap(err, "scraper: wait for running search")
	}
	defer s.sem.Release(1)
	return s.run(ctx, term, opts)
}

// RunSearchAsync starts a run in the background and returns immediately.
// It returns ErrBusy if another run holds the scraper. done, if non-nil, is
// called with the outcome. The run is detached from ctx cancellation.
func (s *Scraper) RunSearchAsync(ctx context.Context, term string, opts Options, done func(*Run, error)) error {
	if !s.sem.TryAcquire(1) {
		return ErrBusy
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer s.sem.Release(1)
		run, err := s.run(ctx, term, opts)
		if done != nil {
			done(run, err)
		}
	}()
	return nil
}

func (s *Scraper) run(ctx context.Context, term string, opts Options) (*Run, error) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	sites := s.registry.All()
	run := &Run{
		Term:    term,
		Started: s.now(),
		Results: models.NewResultSet(s.registry.IDs()...),
	}
	log := s.log.With(zap.String("term", term))
	log.Info("search started", zap.Int("sites", len(sites)))

	for i, d := range sites {
		if err := ctx.Err(); err != nil {
			log.Warn("search cut short", zap.Int("visited", i), zap.Error(err))
			return run, err
		}

		ReportProgress(ctx, Progress{Site: d.ID, Index: i + 1, Total: len(sites), Stage: StageFetching})
		products, failure := s.scrapeSite(ctx, d, term, opts.Timeout)
		if failure != nil {
			run.Failures = append(run.Failures, *failure)
			log.Warn("site failed",
				zap.String("site", failure.Site),
				zap.String("url", failure.URL),
				zap.String("kind", failure.Kind.String()),
				zap.Int("status", failure.StatusCode),
				zap.Error(failure.Err))
			ReportProgress(ctx, Progress{Site: d.ID, Index: i + 1, Total: len(sites), Stage: StageFailed})
		} else {
			log.Info("site scraped", zap.String("site", d.ID), zap.Int("products", len(products)))
			ReportProgress(ctx, Progress{Site: d.ID, Index: i + 1, Total: len(sites), Stage: StageDone, Count: len(products)})
		}
		run.Results.Set(d.ID, products)
		s.dumpSite(d.ID, run.Results.Get(d.ID))

		if i < len(sites)-1 {
			if err := s.wait(ctx, opts.Delay); err != nil {
				log.Warn("search cut short", zap.Int("visited", i+1), zap.Error(err))
				return run, err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		log.Warn("search cut short", zap.Int("visited", len(sites)), zap.Error(err))
		return run, err
	}

	log.Info("search finished",
		zap.Int("total", run.Results.Total()),
		zap.Int("sites_with_results", run.Results.SitesWithResults()),
		zap.Int("failed_sites", len(run.Failures)))

	if s.dumper != nil {
		if err := s.dumper.DumpRun(term, run.Results, run.Started); err != nil {
			log.Warn("could not write combined results", zap.Error(err))
		}
	}

	if s.store != nil {
		ReportProgress(ctx, Progress{Index: len(sites), Total: len(sites), Stage: StageSaving})
		id, err := s.store.SaveRun(ctx, term, run.Results)
		if err != nil {
			run.SaveErr = err
			log.Error("could not save search run", zap.Error(err))
		} else {
			run.ID = id
			log.Info("search run saved", zap.Int64("run_id", id))
		}
	}
	return run, nil
}

// scrapeSite is the single-site boundary. It never panics and never returns
// a nil slice; any failure comes back as a SiteFailure and no products.
func (s *Scraper) scrapeSite(ctx context.Context, d site.Descriptor, term string, timeout time.Duration) (products []models.Product, failure *SiteFailure) {
	rawURL := d.SearchURL(term)
	defer func() {
		if r := recover(); r != nil {
			products = []models.Product{}
			failure = &SiteFailure{Site: d.ID, URL: rawURL, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	page, err := s.fetcher.Fetch(ctx, rawURL, timeout)
	if err != nil {
		f := &SiteFailure{Site: d.ID, URL: rawURL, Kind: fetch.KindOf(err), Err: err}
		var fe *fetch.Error
		if errors.As(err, &fe) {
			f.StatusCode = fe.StatusCode
		}
		return []models.Product{}, f
	}
	if page.Block != fetch.BlockNone {
		s.log.Warn("site served a challenge page",
			zap.String("site", d.ID),
			zap.String("url", page.URL),
			zap.String("block", string(page.Block)))
	}

	products, err = extract.ExtractBytes(page.Body, d.ID, d.Rule)
	if err != nil {
		return []models.Product{}, &SiteFailure{Site: d.ID, URL: rawURL, StatusCode: page.StatusCode, Err: err}
	}
	return products, nil
}

func (s *Scraper) wait(ctx context.Context, d time.Duration) error {
	if d > 0 {
		return s.delay.WaitFor(ctx, d)
	}
	return s.delay.Wait(ctx)
}

func (s *Scraper) dumpSite(id string, products []models.Product) {
	if s.dumper == nil {
		return
	}
	if err := s.dumper.DumpSite(id, products); err != nil {
		s.log.Warn("could not write site results", zap.String("site", id), zap.Error(err))
	}
}
