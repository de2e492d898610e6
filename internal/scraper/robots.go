package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// ErrDisallowed is delivered for requests refused by the host's robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// RobotsPolicy answers whether the crawler may request a URL. Each origin's
// robots.txt is fetched once, through the same Fetcher as the crawl itself,
// and kept for the policy's lifetime.
type RobotsPolicy struct {
	fetcher *Fetcher
	logger  *slog.Logger

	mu      sync.Mutex
	origins map[string]*originRules
}

// originRules holds one origin's parsed rules. data stays nil when the file
// is missing or unusable, which permits everything.
type originRules struct {
	once sync.Once
	data *robotstxt.RobotsData
}

func NewRobotsPolicy(fetcher *Fetcher, logger *slog.Logger) *RobotsPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsPolicy{
		fetcher: fetcher,
		logger:  logger,
		origins: make(map[string]*originRules),
	}
}

// Allows reports whether agent may fetch target. Only an unparseable target
// is an error.
func (p *RobotsPolicy) Allows(ctx context.Context, target, agent string) (bool, error) {
	u, err := url.Parse(target)
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", target, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return false, fmt.Errorf("parse %q: not an absolute url", target)
	}

	rules := p.rulesFor(ctx, u.Scheme+"://"+u.Host)
	if rules == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.FindGroup(agent).Test(path), nil
}

// rulesFor returns origin's rules, loading them on first use. Workers
// hitting a new origin concurrently wait on a single fetch while other
// origins stay unblocked.
func (p *RobotsPolicy) rulesFor(ctx context.Context, origin string) *robotstxt.RobotsData {
	p.mu.Lock()
	entry, ok := p.origins[origin]
	if !ok {
		entry = &originRules{}
		p.origins[origin] = entry
	}
	p.mu.Unlock()

	entry.once.Do(func() {
		entry.data = p.load(ctx, origin)
	})
	return entry.data
}

func (p *RobotsPolicy) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	resp := p.fetcher.Do(ctx, &Request{URL: origin + "/robots.txt", Label: "robots"})
	switch {
	case resp.Err != nil:
		p.logger.Warn("robots.txt unavailable, crawling unrestricted", "origin", origin, "err", resp.Err)
		return nil
	case resp.StatusCode >= 400:
		p.logger.Debug("no robots.txt", "origin", origin, "status", resp.StatusCode)
		return nil
	}

	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		p.logger.Warn("robots.txt unparseable, crawling unrestricted", "origin", origin, "err", err)
		return nil
	}
	return data
}
