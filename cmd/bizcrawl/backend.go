package main

import (
	"context"
	"fmt"

	"github.com/FranksOps/bizcrawl/internal/config"
	"github.com/FranksOps/bizcrawl/internal/storage"
	"github.com/FranksOps/bizcrawl/internal/storage/csvbackend"
	"github.com/FranksOps/bizcrawl/internal/storage/jsonbackend"
	"github.com/FranksOps/bizcrawl/internal/storage/postgres"
	"github.com/FranksOps/bizcrawl/internal/storage/sqlite"
)

// openBackend opens the record sink named by out.
func openBackend(ctx context.Context, out config.OutputConfig) (storage.Backend, error) {
	switch out.Backend {
	case "json":
		return jsonbackend.New(out.Path)
	case "csv":
		return csvbackend.New(out.Path)
	case "sqlite":
		return sqlite.New(out.Path)
	case "postgres":
		return postgres.New(ctx, out.Path)
	default:
		return nil, fmt.Errorf("unknown output backend %q", out.Backend)
	}
}
