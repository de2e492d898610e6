package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FranksOps/bizcrawl/internal/directory"
	"github.com/FranksOps/bizcrawl/internal/metrics"
	"github.com/FranksOps/bizcrawl/internal/scraper"
	"github.com/FranksOps/bizcrawl/internal/storage"
	"github.com/google/uuid"
)

// Engine delivers responses for requests and feeds follow-ups back in.
// *scraper.Engine satisfies it.
type Engine interface {
	Run(ctx context.Context, seeds []*scraper.Request, handle scraper.Handler) error
}

// RunnerConfig wires a Controller to a fetch engine and an output sink.
type RunnerConfig struct {
	Controller *Controller
	Engine     Engine
	Sink       storage.Backend
	// RunID tags every saved record. A random id is generated when empty.
	RunID  string
	Logger *slog.Logger
	// Now stamps saved records. Defaults to time.Now.
	Now func() time.Time
}

// Stats summarizes one run.
type Stats struct {
	RunID     string
	Pages     int
	Listings  int
	Emitted   int
	Failed    map[Stage]int
	Malformed int
	// Unsaved counts completed records the sink rejected.
	Unsaved int
}

// Runner drives the controller over the engine until every chain has
// completed or failed.
type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewRunner fills defaults on cfg.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runner{
		cfg:    cfg,
		logger: logger.With("run_id", cfg.RunID),
	}
}

// Run crawls from the first search page. Chain failures are counted and
// logged, never returned; the error is non-nil only when the engine stops
// early, in which case the partial stats are still returned.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.cfg.Controller == nil || r.cfg.Engine == nil || r.cfg.Sink == nil {
		return Stats{}, errors.New("pipeline: runner needs a controller, an engine and a sink")
	}

	r.mu.Lock()
	r.stats = Stats{RunID: r.cfg.RunID, Failed: make(map[Stage]int)}
	r.mu.Unlock()

	seed := toScraper(r.cfg.Controller.Start())
	err := r.cfg.Engine.Run(ctx, []*scraper.Request{seed}, r.handle)

	r.mu.Lock()
	stats := r.stats
	stats.Failed = make(map[Stage]int, len(r.stats.Failed))
	for k, v := range r.stats.Failed {
		stats.Failed[k] = v
	}
	r.mu.Unlock()

	r.logger.Info("crawl finished",
		"pages", stats.Pages,
		"listings", stats.Listings,
		"emitted", stats.Emitted,
		"failed_search", stats.Failed[StageSearch],
		"failed_reviews", stats.Failed[StageReviews],
		"failed_website", stats.Failed[StageWebsite],
		"malformed", stats.Malformed,
	)

	if err != nil {
		return stats, fmt.Errorf("pipeline: crawl interrupted: %w", err)
	}
	return stats, nil
}

func (r *Runner) handle(ctx context.Context, resp *scraper.Response) []*scraper.Request {
	corr, ok := resp.Request.Meta.(Correlation)
	if !ok {
		r.logger.Error("response without correlation", "url", resp.Request.URL)
		return nil
	}

	step := r.cfg.Controller.Advance(Response{
		Correlation: corr,
		URL:         resp.Request.URL,
		StatusCode:  resp.StatusCode,
		Body:        resp.Body,
		Err:         resp.Err,
	})

	if p := step.Pagination; p != nil {
		metrics.SearchPagesTotal.Inc()
		r.count(func(s *Stats) {
			s.Pages++
			s.Listings += step.Listings
		})
		r.logger.Debug("search page accepted",
			"start", p.StartResult, "per_page", p.ResultsPerPage, "total", p.TotalResults,
			"listings", step.Listings)
	}

	for _, err := range step.Errs {
		r.fail(err)
	}

	if step.Record != nil {
		r.save(ctx, step)
	}

	next := make([]*scraper.Request, 0, len(step.Requests))
	for _, req := range step.Requests {
		next = append(next, toScraper(req))
	}
	return next
}

func (r *Runner) fail(err error) {
	var ffe *FetchFailedError
	if !errors.As(err, &ffe) {
		r.logger.Error("pipeline error", "err", err)
		return
	}

	var mpe *directory.MalformedPageError
	malformed := errors.As(err, &mpe)

	metrics.RecordChainFailure(ffe.Stage.String())
	r.count(func(s *Stats) {
		s.Failed[ffe.Stage]++
		if malformed {
			s.Malformed++
		}
	})

	if ffe.Stage == StageSearch && ffe.BusinessID == "" && malformed {
		r.logger.Error("search page rejected", "stage", ffe.Stage.String(), "err", ffe.Cause)
		return
	}
	r.logger.Warn("chain failed", "stage", ffe.Stage.String(), "business_id", ffe.BusinessID, "err", ffe.Cause)
}

func (r *Runner) save(ctx context.Context, step Step) {
	rec := &storage.Record{
		ID:        uuid.NewString(),
		RunID:     r.cfg.RunID,
		CreatedAt: r.cfg.Now().UTC(),
		Record:    *step.Record,
	}

	if err := r.cfg.Sink.Save(ctx, rec); err != nil {
		r.logger.Error("failed to save record", "name", rec.Name, "url", rec.URL, "err", err)
		r.count(func(s *Stats) { s.Unsaved++ })
		return
	}

	metrics.RecordsEmittedTotal.Inc()
	r.count(func(s *Stats) { s.Emitted++ })
	r.logger.Debug("record emitted", "name", rec.Name, "url", rec.URL, "reviews", len(rec.Reviews))
}

func (r *Runner) count(update func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	update(&r.stats)
}

func toScraper(req Request) *scraper.Request {
	return &scraper.Request{
		Method: req.Method,
		URL:    req.URL,
		Params: req.Params,
		Label:  req.Stage.String(),
		Meta:   req.Correlation,
	}
}
