package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/bizcrawl/internal/business"
	"github.com/FranksOps/bizcrawl/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS businesses (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	rating DOUBLE PRECISION NOT NULL,
	review_count INTEGER NOT NULL,
	phone TEXT NOT NULL,
	website TEXT,
	reviews JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS businesses_run_id ON businesses (run_id);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	_, err = pool.Exec(ctx, schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.Record) error {
	reviews := record.Reviews
	if reviews == nil {
		reviews = []business.Review{}
	}
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("postgres: marshal reviews: %w", err)
	}

	query := `
	INSERT INTO businesses (
		id, run_id, name, url, rating, review_count, phone, website, reviews, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = b.pool.Exec(ctx, query,
		record.ID,
		record.RunID,
		record.Name,
		record.URL,
		record.Rating,
		record.ReviewCount,
		record.Phone,
		record.Website,
		reviewsJSON,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", record.ID, err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT id, run_id, name, url, rating, review_count, phone, website, reviews, created_at FROM businesses WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.HasWebsite != nil {
		if *filter.HasWebsite {
			query += ` AND website IS NOT NULL`
		} else {
			query += ` AND website IS NULL`
		}
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	results := []*storage.Record{}
	for rows.Next() {
		var r storage.Record
		var reviewsJSON []byte

		err := rows.Scan(
			&r.ID, &r.RunID, &r.Name, &r.URL, &r.Rating, &r.ReviewCount,
			&r.Phone, &r.Website, &reviewsJSON, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}

		r.Reviews = []business.Review{}
		if err := json.Unmarshal(reviewsJSON, &r.Reviews); err != nil {
			return nil, fmt.Errorf("postgres: decode reviews for %s: %w", r.ID, err)
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
