package storage

import (
	"context"
	"time"

	"github.com/FranksOps/bizcrawl/internal/business"
)

// Record is one emitted business as persisted by a Backend.
type Record struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	business.Record
}

// Filter allows querying for specific Records.
type Filter struct {
	RunID      string
	HasWebsite *bool
	Since      *time.Time
	Limit      int
	Offset     int
}

// Match reports whether r passes every field set on f. Limit and Offset are
// ignored.
func (f Filter) Match(r *Record) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.HasWebsite != nil && (r.Website != nil) != *f.HasWebsite {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page orders records newest first and applies Offset and Limit. It is used
// by backends that filter in memory.
func (f Filter) Page(records []*Record) []*Record {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*Record{}
		}
		records = records[f.Offset:]
	}

	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}

	return records
}

// Backend defines the interface for storing and querying emitted records.
type Backend interface {
	Save(ctx context.Context, record *Record) error
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Close() error
}
