package pipeline

import (
	"slices"

	"github.com/FranksOps/bizcrawl/internal/business"
)

// State is the position of one business in its chain.
type State int

const (
	AwaitingReviews State = iota
	AwaitingWebsite
	Complete
)

func (s State) String() string {
	switch s {
	case AwaitingReviews:
		return "awaiting_reviews"
	case AwaitingWebsite:
		return "awaiting_website"
	default:
		return "complete"
	}
}

// StageContext accumulates one business's fields as its chain advances.
// It is a value type: every With method returns an updated copy and leaves
// the receiver untouched, so a context never aliases another chain's data.
type StageContext struct {
	businessID   string
	name         string
	url          string
	rating       float64
	reviewCount  int
	phone        string
	reviews      []business.Review
	website      *string
	websiteKnown bool
}

// NewStageContext seeds a context from a search listing.
func NewStageContext(l business.Listing, canonicalURL string) StageContext {
	return StageContext{
		businessID:  l.ID,
		name:        l.Name,
		url:         canonicalURL,
		rating:      l.Rating,
		reviewCount: l.ReviewCount,
		phone:       l.Phone,
	}
}

func (c StageContext) BusinessID() string { return c.businessID }
func (c StageContext) URL() string        { return c.url }

// Reviews is nil until the reviews stage has run.
func (c StageContext) Reviews() []business.Review { return c.reviews }

// Website reports the resolved website and whether the website stage has run.
func (c StageContext) Website() (*string, bool) { return c.website, c.websiteKnown }

// State derives the chain position from which fields are populated.
func (c StageContext) State() State {
	switch {
	case c.reviews == nil:
		return AwaitingReviews
	case !c.websiteKnown:
		return AwaitingWebsite
	default:
		return Complete
	}
}

// WithReviews returns a copy holding reviews. A nil slice is stored as empty
// so that zero reviews still counts as the stage having run.
func (c StageContext) WithReviews(reviews []business.Review) StageContext {
	if reviews == nil {
		c.reviews = []business.Review{}
	} else {
		c.reviews = slices.Clone(reviews)
	}
	return c
}

// WithWebsite returns a copy with the website stage resolved. A nil website
// means the business lists none.
func (c StageContext) WithWebsite(website *string) StageContext {
	if website != nil {
		w := *website
		c.website = &w
	} else {
		c.website = nil
	}
	c.websiteKnown = true
	return c
}

// Record projects a complete context into its output record. The business
// id is not part of the record.
func (c StageContext) Record() (business.Record, error) {
	if c.State() != Complete {
		return business.Record{}, ErrIncomplete
	}
	rec := business.Record{
		Name:        c.name,
		URL:         c.url,
		Rating:      c.rating,
		ReviewCount: c.reviewCount,
		Phone:       c.phone,
		Reviews:     slices.Clone(c.reviews),
	}
	if c.website != nil {
		w := *c.website
		rec.Website = &w
	}
	return rec, nil
}

func (StageContext) isCorrelation() {}
