package useragent

import (
	"strings"
	"sync/atomic"
)

// Default identifies the crawler when no User-Agent is configured.
const Default = "bizcrawl/1.0 (+https://github.com/FranksOps/bizcrawl)"

// Pool hands out configured User-Agent strings round-robin.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a pool from uas, dropping blank entries. An empty result
// falls back to Default.
func NewPool(uas []string) *Pool {
	copied := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua = strings.TrimSpace(ua); ua != "" {
			copied = append(copied, ua)
		}
	}
	if len(copied) == 0 {
		copied = []string{Default}
	}
	return &Pool{uas: copied}
}

// Next returns the next User-Agent in round-robin order. It is safe for
// concurrent use.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Primary is the first configured User-Agent, used for robots.txt group
// matching.
func (p *Pool) Primary() string {
	if len(p.uas) == 0 {
		return ""
	}
	return p.uas[0]
}

// All returns a copy of every User-Agent in the pool.
func (p *Pool) All() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
