package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jonp69/DL-Homework-Garden/internal/repository"
	"github.com/jonp69/DL-Homework-Garden/pkg/config"
	"github.com/jonp69/DL-Homework-Garden/pkg/database"
	appErrors "github.com/jonp69/DL-Homework-Garden/pkg/errors"
)

type result struct {
	Collection string
	Bytes      int
	Skipped    bool
	Verified   bool
	Err        error
}

func main() {
	var (
		from     string
		to       string
		fromPath string
		toPath   string
	)

	flag.StringVar(&from, "from", config.StoreBackendFile, "Source backend: file, sqlite or postgres")
	flag.StringVar(&to, "to", config.StoreBackendSQLite, "Target backend: file, sqlite or postgres")
	flag.StringVar(&fromPath, "from-path", "", "Source data directory (file) or database file (sqlite)")
	flag.StringVar(&toPath, "to-path", "", "Target data directory (file) or database file (sqlite)")
	flag.Parse()

	if from == to && fromPath == toPath {
		log.Fatalf("source and target are the same backend, nothing to do")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	src, closeSrc, err := openBackend(ctx, cfg, from, fromPath)
	if err != nil {
		log.Fatalf("failed to open source %s: %v", from, err)
	}
	defer closeSrc()

	dst, closeDst, err := openBackend(ctx, cfg, to, toPath)
	if err != nil {
		log.Fatalf("failed to open target %s: %v", to, err)
	}
	defer closeDst()

	collections := []string{
		repository.CollectionLinks,
		repository.CollectionFilters,
		repository.CollectionBatches,
	}

	failed := 0
	results := make([]result, 0, len(collections))
	for _, col := range collections {
		res := migrate(ctx, src, dst, col)
		if res.Err != nil {
			failed++
		}
		results = append(results, res)
	}

	printReport(from, to, results)
	if failed > 0 {
		os.Exit(1)
	}
}

func migrate(ctx context.Context, src, dst repository.Snapshots, collection string) result {
	res := result{Collection: collection}

	data, err := src.Load(ctx, collection)
	if err != nil {
		if errors.Is(err, appErrors.ErrSnapshotNotFound) {
			res.Skipped = true
			return res
		}
		res.Err = fmt.Errorf("load: %w", err)
		return res
	}
	res.Bytes = len(data)

	if err := dst.Save(ctx, collection, data); err != nil {
		res.Err = fmt.Errorf("save: %w", err)
		return res
	}

	// Round-trip the target so a silent write failure cannot pass as done.
	written, err := dst.Load(ctx, collection)
	if err != nil {
		res.Err = fmt.Errorf("verify load: %w", err)
		return res
	}
	if !bytes.Equal(data, written) {
		res.Err = fmt.Errorf("verify: target document differs from source")
		return res
	}
	res.Verified = true
	return res
}

func openBackend(ctx context.Context, cfg *config.Config, backend, path string) (repository.Snapshots, func(), error) {
	switch backend {
	case config.StoreBackendFile:
		if path == "" {
			path = cfg.Store.DataDir
		}
		snaps, err := repository.NewFileSnapshots(path)
		if err != nil {
			return nil, nil, err
		}
		return snaps, func() {}, nil
	case config.StoreBackendSQLite:
		if path == "" {
			path = cfg.Store.SQLitePath
		}
		db, err := database.NewSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		snaps, err := repository.NewSQLiteSnapshots(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return snaps, func() { _ = db.Close() }, nil
	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		snaps, err := repository.NewPostgresSnapshots(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return snaps, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func printReport(from, to string, results []result) {
	fmt.Printf("Snapshot Migration %s -> %s\n", from, to)
	fmt.Println("===============================")
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Printf("[ERROR] %s: %v\n", res.Collection, res.Err)
		case res.Skipped:
			fmt.Printf("[SKIP]  %s: no document in source\n", res.Collection)
		default:
			fmt.Printf("[OK]    %s: %d bytes, verified\n", res.Collection, res.Bytes)
		}
	}
}
