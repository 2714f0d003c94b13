// Command seed clears the catalog and inserts the courses of a YAML seed
// document. Without -file it uses SEED_FILE, then the built-in catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classify/catalog/internal/app"
	"github.com/classify/catalog/internal/config"
	"github.com/classify/catalog/internal/seed"
	"github.com/classify/catalog/internal/service"
	"github.com/classify/catalog/pkg/logger"
)

func main() {
	file := flag.String("file", "", "seed document (defaults to SEED_FILE, then the built-in catalog)")
	dryRun := flag.Bool("dry-run", false, "parse and print the document without writing")
	timeout := flag.Duration("timeout", time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(config.ServiceName+"-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	if err := run(ctx, cfg, *file, *dryRun, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file string, dryRun bool, log *slog.Logger) error {
	if file == "" {
		file = cfg.SeedFile
	}

	doc, err := load(file)
	if err != nil {
		return err
	}

	if dryRun {
		for _, g := range doc.Groups {
			fmt.Printf("%s: %d courses\n", g.Name, len(g.Courses))
		}
		return nil
	}

	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("memory storage is discarded when the seed tool exits; set STORAGE_DRIVER=postgres")
	}

	storage, err := app.OpenStorage(ctx, cfg, nil, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Warn("storage close error", slog.String("error", err.Error()))
		}
	}()

	catalog := service.NewCatalogService(storage.Repo, log)
	res, err := catalog.Seed(ctx, doc.Drafts())
	if err != nil {
		return err
	}

	log.Info("seed complete",
		slog.String("source", source(file)),
		slog.Int("groups", len(doc.Groups)),
		slog.Int("removed", res.Removed),
		slog.Int("inserted", res.Inserted),
	)
	return nil
}

func load(file string) (*seed.Document, error) {
	if file == "" {
		return seed.Default()
	}
	return seed.LoadFile(file)
}

func source(file string) string {
	if file == "" {
		return "built-in"
	}
	return file
}
