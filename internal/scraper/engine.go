package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/FranksOps/bizcrawl/internal/metrics"
	"github.com/FranksOps/bizcrawl/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

// Handler consumes one delivered response and returns the requests that
// follow from it. It is called concurrently from the engine's workers.
type Handler func(ctx context.Context, resp *Response) []*Request

// EngineConfig provides parameters for the Engine.
type EngineConfig struct {
	Concurrency int
	// RespectRobots specifies whether to check robots.txt before fetching
	RespectRobots bool
	// RequestsPerSecond limits the fetch rate (0 = unlimited)
	RequestsPerSecond float64
	// Jitter applies randomness to the rate limiter (0.0 to 1.0)
	Jitter float64
	// QueueSize limits the depth of the pending request queue (0 = default 10000)
	QueueSize int
}

// Engine schedules requests over a pool of workers and hands every
// response, success or failure, to a Handler exactly once. A request
// identical to one already scheduled during the same Run is dropped.
type Engine struct {
	cfg     EngineConfig
	fetcher *Fetcher
	logger  *slog.Logger
	robots  *RobotsPolicy
	limiter *ratelimit.Limiter

	// Track scheduled requests to prevent repeat fetches
	visitedMu sync.Mutex
	visited   map[string]struct{}
}

// NewEngine creates a new Engine.
func NewEngine(cfg EngineConfig, fetcher *Fetcher, logger *slog.Logger) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}

	var robots *RobotsPolicy
	if cfg.RespectRobots {
		robots = NewRobotsPolicy(fetcher, logger)
	}

	return &Engine{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		robots:  robots,
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Jitter),
	}
}

// Run fetches seeds and every request the handler derives from them, and
// returns once nothing is queued or in flight, or ctx is done.
func (e *Engine) Run(ctx context.Context, seeds []*Request, handle Handler) error {
	queue := make(chan *Request, e.cfg.QueueSize)

	e.visitedMu.Lock()
	e.visited = make(map[string]struct{})
	e.visitedMu.Unlock()

	unique := make([]*Request, 0, len(seeds))
	for _, seed := range seeds {
		if e.markVisited(seed) {
			unique = append(unique, seed)
		}
	}
	seeds = unique

	// Follow-up requests are added to the WaitGroup before their parent's
	// Done, so the count cannot reach zero while work remains.
	var pending sync.WaitGroup
	pending.Add(len(seeds))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	for range e.cfg.Concurrency {
		g.Go(func() error {
			for {
				select {
				case <-gCtx.Done():
					return nil
				case req := <-queue:
					e.process(gCtx, req, handle, queue, &pending)
					pending.Done()
				}
			}
		})
	}

	for i, seed := range seeds {
		select {
		case queue <- seed:
			continue
		case <-gCtx.Done():
			pending.Add(-(len(seeds) - i))
		}
		break
	}

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}

	cancel()
	_ = g.Wait()

	return ctx.Err()
}

func (e *Engine) process(ctx context.Context, req *Request, handle Handler, queue chan<- *Request, pending *sync.WaitGroup) {
	resp := e.fetch(ctx, req)

	metrics.RecordFetch(req.Label, resp.StatusCode, resp.Err, resp.Duration, len(resp.Body))

	for _, next := range handle(ctx, resp) {
		if !e.markVisited(next) {
			e.logger.Debug("dropping duplicate request", "url", next.URL, "label", next.Label)
			continue
		}
		pending.Add(1)
		select {
		case queue <- next:
		case <-ctx.Done():
			pending.Done()
		}
	}
}

// markVisited records req and reports whether it was new. Requests are keyed
// on method, URL and encoded params, so search pages differing only in their
// offset are distinct.
func (e *Engine) markVisited(req *Request) bool {
	key := requestKey(req)

	e.visitedMu.Lock()
	defer e.visitedMu.Unlock()

	if _, seen := e.visited[key]; seen {
		return false
	}
	e.visited[key] = struct{}{}
	return true
}

func requestKey(req *Request) string {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	return method + " " + req.URL + "?" + req.Params.Encode()
}

func (e *Engine) fetch(ctx context.Context, req *Request) *Response {
	if e.robots != nil {
		allowed, err := e.robots.Allows(ctx, req.URL, e.fetcher.UserAgent())
		if err != nil {
			e.logger.Warn("robots.txt check failed", "url", req.URL, "err", err)
		} else if !allowed {
			e.logger.Debug("refused by robots.txt", "url", req.URL, "label", req.Label)
			return &Response{Request: req, Err: ErrDisallowed}
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return &Response{Request: req, Err: err}
	}

	e.logger.Debug("fetching", "url", req.URL, "label", req.Label)
	return e.fetcher.Do(ctx, req)
}
