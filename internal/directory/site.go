package directory

import (
	"fmt"
	"net/url"
	"strconv"
)

// DefaultBaseURL is the origin every relative directory path is resolved against.
const DefaultBaseURL = "https://www.yelp.com"

const searchPath = "/search/snippet"

// Site builds request URLs for one directory origin.
type Site struct {
	base *url.URL
}

// NewSite parses the base origin. An empty string selects DefaultBaseURL.
func NewSite(baseURL string) (*Site, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	return &Site{base: u}, nil
}

// Base returns the origin as a string.
func (s *Site) Base() string { return s.base.String() }

// SearchURL is the paginated search endpoint.
func (s *Site) SearchURL() string {
	return s.base.ResolveReference(&url.URL{Path: searchPath}).String()
}

// SearchParams encodes one search page request.
func (s *Site) SearchParams(category, location string, start int) url.Values {
	return url.Values{
		"find_desc": {category},
		"find_loc":  {location},
		"start":     {strconv.Itoa(start)},
	}
}

// ReviewsURL is the review feed of one business.
func (s *Site) ReviewsURL(businessID string) string {
	ref := &url.URL{Path: "/biz/" + businessID + "/review_feed"}
	return s.base.ResolveReference(ref).String()
}

// ReviewParams are the fixed review feed parameters.
func (s *Site) ReviewParams() url.Values {
	return url.Values{
		"rl":      {"en"},
		"sort_by": {"relevance_desc"},
	}
}

// CanonicalURL resolves a listing's relative URL against the origin. Absolute
// and protocol-relative inputs keep their own host.
func (s *Site) CanonicalURL(rel string) (string, error) {
	ref, err := url.Parse(rel)
	if err != nil {
		return "", fmt.Errorf("parse listing url %q: %w", rel, err)
	}
	return s.base.ResolveReference(ref).String(), nil
}
