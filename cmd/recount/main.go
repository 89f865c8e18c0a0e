package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/quietharbor/harbormind/internal/db"
	"github.com/quietharbor/harbormind/internal/feed"
	"github.com/quietharbor/harbormind/internal/models"
	"github.com/quietharbor/harbormind/internal/store"
	"github.com/quietharbor/harbormind/pkg/config"
	"github.com/quietharbor/harbormind/pkg/logging"
)

// recount walks every entry and rebuilds the denormalized counters from
// the ground truth: reaction_count from the reaction records, twin_count
// from a fresh twin query. Partial reaction failures repaired by
// compensating writes can leave counters drifted; this closes the gap.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Harbormind counter recount")

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	backend := store.NewSQL(database.DB)
	matcher := feed.NewMatcher(backend, cfg.Feed.TwinLimit)

	ctx := context.Background()
	var scanned, fixed int

	err = backend.ForEachEntry(ctx, 200, func(entry *models.Entry) error {
		scanned++

		reactions, err := backend.CountReactions(ctx, entry.ID)
		if err != nil {
			return err
		}

		// Legacy rows can carry a level outside the valid band; they have
		// no twin set, only their reaction counter gets repaired.
		var twinCount int64
		if entry.Level >= models.LevelMin && entry.Level <= models.LevelMax {
			twins, err := matcher.FindTwins(ctx, entry.ID, entry.Tags, entry.Level)
			if err != nil {
				return err
			}
			twinCount = int64(len(twins))
		}

		if reactions == entry.ReactionCount && twinCount == entry.TwinCount {
			return nil
		}

		if err := backend.SetEntryCounts(ctx, entry.ID, reactions, twinCount); err != nil {
			return err
		}
		fixed++
		logger.Info("Repaired entry counters",
			zap.String("entry_id", entry.ID),
			zap.Int64("reaction_count", reactions),
			zap.Int64("twin_count", twinCount),
		)
		return nil
	})
	if err != nil {
		logger.Fatal("Recount failed", zap.Error(err))
	}

	logger.Info("Recount finished", zap.Int("scanned", scanned), zap.Int("fixed", fixed))
}
