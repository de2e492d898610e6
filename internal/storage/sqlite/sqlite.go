package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/bizcrawl/internal/business"
	"github.com/FranksOps/bizcrawl/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS businesses (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	rating REAL NOT NULL,
	review_count INTEGER NOT NULL,
	phone TEXT NOT NULL,
	website TEXT,
	reviews TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS businesses_run_id ON businesses (run_id);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.Record) error {
	reviews := record.Reviews
	if reviews == nil {
		reviews = []business.Review{}
	}
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("sqlite: marshal reviews: %w", err)
	}

	var website sql.NullString
	if record.Website != nil {
		website = sql.NullString{String: *record.Website, Valid: true}
	}

	query := `
	INSERT INTO businesses (
		id, run_id, name, url, rating, review_count, phone, website, reviews, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		record.ID,
		record.RunID,
		record.Name,
		record.URL,
		record.Rating,
		record.ReviewCount,
		record.Phone,
		website,
		string(reviewsJSON),
		record.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert %s: %w", record.ID, err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT id, run_id, name, url, rating, review_count, phone, website, reviews, created_at FROM businesses WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.HasWebsite != nil {
		if *filter.HasWebsite {
			query += ` AND website IS NOT NULL`
		} else {
			query += ` AND website IS NULL`
		}
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC`

	// SQLite only accepts OFFSET after a LIMIT clause; -1 means no limit.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	results := []*storage.Record{}
	for rows.Next() {
		var r storage.Record
		var website sql.NullString
		var reviewsJSON string

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Name, &r.URL, &r.Rating, &r.ReviewCount,
			&r.Phone, &website, &reviewsJSON, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}

		if website.Valid {
			w := website.String
			r.Website = &w
		}
		r.Reviews = []business.Review{}
		if err := json.Unmarshal([]byte(reviewsJSON), &r.Reviews); err != nil {
			return nil, fmt.Errorf("sqlite: decode reviews for %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
