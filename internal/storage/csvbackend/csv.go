package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/bizcrawl/internal/business"
	"github.com/FranksOps/bizcrawl/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order. An empty website cell means the
// business lists no website.
var headers = []string{
	"id",
	"run_id",
	"created_at",
	"name",
	"url",
	"rating",
	"review_count",
	"phone",
	"website",
	"reviews_json",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *storage.Record) error {
	reviews := record.Reviews
	if reviews == nil {
		reviews = []business.Review{}
	}
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("csvbackend: marshal reviews: %w", err)
	}

	website := ""
	if record.Website != nil {
		website = *record.Website
	}

	row := []string{
		record.ID,
		record.RunID,
		record.CreatedAt.Format(time.RFC3339Nano),
		record.Name,
		record.URL,
		strconv.FormatFloat(record.Rating, 'f', -1, 64),
		strconv.Itoa(record.ReviewCount),
		record.Phone,
		website,
		string(reviewsJSON),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("csvbackend: write: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: flush: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.Record{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read header: %w", err)
	}

	var matched []*storage.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: read: %w", err)
		}

		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		rec := parseRow(row)
		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	return filter.Page(matched), nil
}

func parseRow(row []string) *storage.Record {
	createdAt, _ := time.Parse(time.RFC3339Nano, row[2])
	rating, _ := strconv.ParseFloat(row[5], 64)
	reviewCount, _ := strconv.Atoi(row[6])

	var website *string
	if row[8] != "" {
		w := row[8]
		website = &w
	}

	reviews := []business.Review{}
	if err := json.Unmarshal([]byte(row[9]), &reviews); err != nil {
		reviews = []business.Review{}
	}

	return &storage.Record{
		ID:        row[0],
		RunID:     row[1],
		CreatedAt: createdAt,
		Record: business.Record{
			Name:        row[3],
			URL:         row[4],
			Rating:      rating,
			ReviewCount: reviewCount,
			Phone:       row[7],
			Website:     website,
			Reviews:     reviews,
		},
	}
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
