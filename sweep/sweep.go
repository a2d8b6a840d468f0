// Package sweep repairs blob storage debris left by partial failures.
//
// Deleting a blob is two bulk operations that the backing store cannot
// make atomic: when the metadata delete lands but the chunk delete does
// not, the chunks are orphaned. The sweeper finds chunk documents whose
// parent metadata no longer exists and removes them in bulk.
package sweep

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/jacentio/strata/store"
)

// Sweeper scans a collection for orphaned chunk documents.
type Sweeper struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates a new Sweeper.
func New(s *store.Store, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  s,
		logger: logger,
	}
}

// Report summarizes one sweep pass.
type Report struct {
	// Parents is the number of distinct chunk parent ids seen.
	Parents int

	// Orphans is the number of parents with no surviving metadata.
	Orphans int

	// ChunksDeleted is the number of chunk documents removed.
	ChunksDeleted int64
}

// Run sweeps one collection. It is idempotent; re-running after a partial
// sweep simply finds fewer orphans. Designed to be invoked from a cron or
// admin task.
func (sw *Sweeper) Run(ctx context.Context, database, collection string) (Report, error) {
	var report Report

	coll, err := sw.store.Collection(ctx, database, collection)
	if err != nil {
		return report, fmt.Errorf("resolve collection: %w", err)
	}

	parents, err := coll.Distinct(ctx, "parentId", bson.M{"kind": store.KindChunk})
	if err != nil {
		return report, fmt.Errorf("list chunk parents: %w", err)
	}
	report.Parents = len(parents)

	for _, parent := range parents {
		count, err := coll.CountDocuments(ctx, bson.M{
			"parentId": parent,
			"kind":     store.KindMetadata,
		})
		if err != nil {
			return report, fmt.Errorf("check metadata for %v: %w", parent, err)
		}
		if count > 0 {
			continue
		}

		res, err := coll.DeleteMany(ctx, bson.M{
			"parentId": parent,
			"kind":     store.KindChunk,
		})
		if err != nil {
			sw.logger.Warn("failed to delete orphaned chunks",
				"parentId", parent,
				"error", err,
			)
			// Continue - idempotent, the next sweep retries.
			continue
		}
		report.Orphans++
		report.ChunksDeleted += res.DeletedCount
		sw.logger.Info("removed orphaned chunks",
			"parentId", parent,
			"deleted", res.DeletedCount,
		)
	}

	sw.logger.Info("sweep completed",
		"parents", report.Parents,
		"orphans", report.Orphans,
		"chunksDeleted", report.ChunksDeleted,
	)
	return report, nil
}
