package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/FranksOps/bizcrawl/internal/business"
	"github.com/FranksOps/bizcrawl/internal/directory"
	"github.com/FranksOps/bizcrawl/pkg/httpclient"
)

// Correlation travels with a request through the fetch collaborator and
// comes back on its response. It is either a SearchQuery or a StageContext.
type Correlation interface {
	isCorrelation()
}

// SearchQuery identifies one search page request. Page is the 1-based count
// of search pages requested so far, this one included.
type SearchQuery struct {
	Category string
	Location string
	Offset   int
	Page     int
}

func (SearchQuery) isCorrelation() {}

// Request is a fetch the controller wants issued.
type Request struct {
	Stage       Stage
	Method      string
	URL         string
	Params      url.Values
	Correlation Correlation
}

// Response is what the fetch collaborator delivered for a Request. Err is
// set when no response arrived at all.
type Response struct {
	Correlation Correlation
	URL         string
	StatusCode  int
	Body        []byte
	Err         error
}

// Step is the outcome of folding one response into the pipeline.
type Step struct {
	// Requests are the follow-up fetches: one reviews fetch per listing,
	// then the next search page if any, or a single website fetch.
	Requests []Request
	// Record is set when a chain completed.
	Record *business.Record
	// Pagination and Listings describe an accepted search page.
	Pagination *directory.PaginationInfo
	Listings   int
	// Errs holds one *FetchFailedError per chain that ended here.
	Errs []error
}

// Config is the static crawl configuration.
type Config struct {
	BaseURL     string
	Category    string
	Location    string
	MaxPages    int
	ReviewCount int
}

// Controller decides which request comes next and folds responses into
// stage contexts. It performs no I/O and holds no per-business state, so
// Advance may be called from several goroutines at once.
type Controller struct {
	cfg  Config
	site *directory.Site
}

// NewController validates cfg and builds a Controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Category == "" {
		return nil, errors.New("pipeline: category is required")
	}
	if cfg.Location == "" {
		return nil, errors.New("pipeline: location is required")
	}
	if cfg.MaxPages < 1 {
		return nil, fmt.Errorf("pipeline: max pages must be at least 1, got %d", cfg.MaxPages)
	}
	if cfg.ReviewCount < 0 {
		return nil, fmt.Errorf("pipeline: review count must not be negative, got %d", cfg.ReviewCount)
	}

	site, err := directory.NewSite(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	return &Controller{cfg: cfg, site: site}, nil
}

// Start returns the first search page request.
func (c *Controller) Start() Request {
	return c.searchRequest(SearchQuery{
		Category: c.cfg.Category,
		Location: c.cfg.Location,
		Offset:   0,
		Page:     1,
	})
}

// Advance folds one response into the pipeline.
func (c *Controller) Advance(resp Response) Step {
	switch corr := resp.Correlation.(type) {
	case SearchQuery:
		return c.advanceSearch(corr, resp)
	case StageContext:
		switch corr.State() {
		case AwaitingReviews:
			return c.advanceReviews(corr, resp)
		case AwaitingWebsite:
			return c.advanceWebsite(corr, resp)
		default:
			return failed(StageWebsite, corr.BusinessID(), errors.New("chain already complete"))
		}
	default:
		return Step{Errs: []error{fmt.Errorf("pipeline: unknown correlation %T", resp.Correlation)}}
	}
}

func (c *Controller) advanceSearch(q SearchQuery, resp Response) Step {
	if err := checkResponse(resp); err != nil {
		return failed(StageSearch, "", err)
	}

	page, err := directory.ParseSearchPage(resp.Body)
	if err != nil {
		return failed(StageSearch, "", err)
	}

	step := Step{Pagination: &page.Pagination, Listings: len(page.Listings)}
	for _, l := range page.Listings {
		canonical, err := c.site.CanonicalURL(l.RelativeURL)
		if err != nil {
			step.Errs = append(step.Errs, &FetchFailedError{Stage: StageSearch, BusinessID: l.ID, Cause: err})
			continue
		}
		sc := NewStageContext(l, canonical)
		step.Requests = append(step.Requests, Request{
			Stage:       StageReviews,
			Method:      http.MethodGet,
			URL:         c.site.ReviewsURL(l.ID),
			Params:      c.site.ReviewParams(),
			Correlation: sc,
		})
	}

	if directory.HasMore(page.Pagination, q.Page, c.cfg.MaxPages) {
		next := q
		next.Offset = directory.NextOffset(page.Pagination)
		next.Page = q.Page + 1
		step.Requests = append(step.Requests, c.searchRequest(next))
	}

	return step
}

func (c *Controller) advanceReviews(sc StageContext, resp Response) Step {
	if err := checkResponse(resp); err != nil {
		return failed(StageReviews, sc.BusinessID(), err)
	}

	reviews, err := directory.ParseReviews(resp.Body, c.cfg.ReviewCount)
	if err != nil {
		return failed(StageReviews, sc.BusinessID(), err)
	}

	next := sc.WithReviews(reviews)
	return Step{Requests: []Request{{
		Stage:       StageWebsite,
		Method:      http.MethodGet,
		URL:         next.URL(),
		Correlation: next,
	}}}
}

func (c *Controller) advanceWebsite(sc StageContext, resp Response) Step {
	if err := checkResponse(resp); err != nil {
		return failed(StageWebsite, sc.BusinessID(), err)
	}

	website, err := directory.ExtractWebsite(resp.Body)
	if err != nil {
		return failed(StageWebsite, sc.BusinessID(), err)
	}

	rec, err := sc.WithWebsite(website).Record()
	if err != nil {
		return failed(StageWebsite, sc.BusinessID(), err)
	}
	return Step{Record: &rec}
}

func (c *Controller) searchRequest(q SearchQuery) Request {
	return Request{
		Stage:       StageSearch,
		Method:      http.MethodGet,
		URL:         c.site.SearchURL(),
		Params:      c.site.SearchParams(q.Category, q.Location, q.Offset),
		Correlation: q,
	}
}

func checkResponse(resp Response) error {
	if resp.Err != nil {
		return resp.Err
	}
	return httpclient.CheckStatus(resp.StatusCode, resp.URL)
}

func failed(stage Stage, businessID string, cause error) Step {
	return Step{Errs: []error{&FetchFailedError{Stage: stage, BusinessID: businessID, Cause: cause}}}
}
