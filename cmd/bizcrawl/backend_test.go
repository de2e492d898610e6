package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/bizcrawl/internal/business"
	"github.com/FranksOps/bizcrawl/internal/config"
	"github.com/FranksOps/bizcrawl/internal/storage"
)

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		backend string
		path    string
	}{
		{"json", filepath.Join(dir, "out.jsonl")},
		{"csv", filepath.Join(dir, "out.csv")},
		{"sqlite", filepath.Join(dir, "out.db")},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			b, err := openBackend(ctx, config.OutputConfig{Backend: tt.backend, Path: tt.path})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer b.Close()

			rec := &storage.Record{
				ID:        "r1",
				RunID:     "run",
				CreatedAt: time.Now().UTC(),
				Record:    business.Record{Name: "Acme", URL: "https://www.yelp.com/biz/acme", Reviews: []business.Review{}},
			}
			if err := b.Save(ctx, rec); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := b.Query(ctx, storage.Filter{RunID: "run"})
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(got) != 1 || got[0].Name != "Acme" {
				t.Errorf("unexpected records %+v", got)
			}
		})
	}

	if _, err := openBackend(ctx, config.OutputConfig{Backend: "mongo", Path: "x"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
