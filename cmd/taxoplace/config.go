package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"taxoplace/internal/seqstore"
	"taxoplace/internal/seqstore/fs"
	"taxoplace/internal/seqstore/memory"
	"taxoplace/internal/seqstore/s3"
	"taxoplace/internal/taxrepo/sqlite"
	"taxoplace/pkg/placement"
)

// Environment variables, with flags taking precedence when set:
//
//	TAXOPLACE_EXCLUDE_ALIGNMENTS_FACTOR: exclude_factor, default 0.9
//	TAXOPLACE_REEVAL_BANDWIDTH: reeval_bandwidth, default 0.1
//	TAXOPLACE_SEQSTORE_DRIVER: fs|s3|memory, default fs
//	TAXOPLACE_SEQSTORE_FS_ROOT: directory root when driver=fs
//	TAXOPLACE_TAXREPO_DSN: SQLite database path, default taxoplace.db

func envFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func placementConfig(excludeFactor, reevalBandwidth float64) placement.Config {
	if excludeFactor == 0 {
		excludeFactor = envFloat("TAXOPLACE_EXCLUDE_ALIGNMENTS_FACTOR", 0.9)
	}
	if reevalBandwidth == 0 {
		reevalBandwidth = envFloat("TAXOPLACE_REEVAL_BANDWIDTH", 0.1)
	}
	return placement.Config{
		ExcludeAlignmentsFactor: excludeFactor,
		ReevalBandwidth:         reevalBandwidth,
	}
}

// openSequenceStore selects a sequence-storage backend by driver name.
func openSequenceStore(ctx context.Context, driver string) (*seqstore.Store, error) {
	if driver == "" {
		driver = envOr("TAXOPLACE_SEQSTORE_DRIVER", "fs")
	}
	switch driver {
	case "fs":
		f, err := fs.New(os.Getenv("TAXOPLACE_SEQSTORE_FS_ROOT"))
		if err != nil {
			return nil, err
		}
		return f.Store(), nil
	case "s3":
		f, err := s3.OpenFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return seqstore.New(f), nil
	case "memory":
		return memory.New().Store(), nil
	default:
		return nil, fmt.Errorf("unknown sequence storage driver %q", driver)
	}
}

// openSQLiteTaxrepo opens the SQLite taxonomy repository, which the CLI
// uses for both snapshot storage and the identifier-to-taxon-id lookup
// table, since the two live as sibling tables in one file. Postgres
// (internal/taxrepo/postgres) is a standalone snapshot backend for
// deployments centralizing snapshots in a shared database; it has no
// identifier table, so it is not wired into this single-file CLI flow.
func openSQLiteTaxrepo(dsn string) (*sqlite.Store, error) {
	if dsn == "" {
		dsn = envOr("TAXOPLACE_TAXREPO_DSN", "taxoplace.db")
	}
	return sqlite.Open(dsn)
}
