// Package reconcile repairs derived stores from the primary store.
// Because mirror and search writes are best effort, they can fall
// behind after an outage; a periodic reconcile pass re-upserts every
// article so the replicas converge.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
)

// Reconciler re-propagates articles from the primary store into the
// derived stores.
type Reconciler struct {
	primary pressroom.PrimaryStore
	mirror  pressroom.MirrorStore
	index   pressroom.SearchIndex
	logger  *slog.Logger
}

// Options configures the Reconciler.
type Options struct {
	// Mirror is the document replica to repair (optional)
	Mirror pressroom.MirrorStore

	// Index is the search index to repair (optional)
	Index pressroom.SearchIndex

	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// Result contains statistics about a reconcile pass.
type Result struct {
	// TotalFound is the number of articles read from the primary store
	TotalFound int64

	// TotalRepaired is the number of articles pushed to every derived store
	TotalRepaired int64

	// TotalFailed is the number of articles where at least one derived write failed
	TotalFailed int64

	// FailedIDs contains the ids of articles that failed
	FailedIDs []string
}

// New creates a Reconciler over the given primary store.
func New(primary pressroom.PrimaryStore, opts Options) (*Reconciler, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary store is required")
	}
	if opts.Mirror == nil && opts.Index == nil {
		return nil, fmt.Errorf("at least one derived store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		primary: primary,
		mirror:  opts.Mirror,
		index:   opts.Index,
		logger:  logger,
	}, nil
}

// Run performs one reconcile pass over the given tenants. A failing
// article is recorded and the pass continues with the next one.
func (r *Reconciler) Run(ctx context.Context, tenantIDs []string) (*Result, error) {
	result := &Result{}

	for _, tenantID := range tenantIDs {
		articles, err := r.primary.ListArticles(ctx, tenantID)
		if err != nil {
			return result, fmt.Errorf("failed to list articles for tenant %s: %w", tenantID, err)
		}

		result.TotalFound += int64(len(articles))
		for _, article := range articles {
			if err := r.repair(ctx, article); err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, article.ID.String())
				r.logger.Warn("reconcile failed",
					"tenant_id", tenantID, "article_id", article.ID, "error", err)
				continue
			}
			result.TotalRepaired++
		}
	}

	return result, nil
}

func (r *Reconciler) repair(ctx context.Context, article *pressroom.Article) error {
	if r.mirror != nil {
		if err := r.mirror.Upsert(ctx, article); err != nil {
			return fmt.Errorf("mirror upsert: %w", err)
		}
	}
	if r.index != nil {
		if err := r.index.Upsert(ctx, article); err != nil {
			return fmt.Errorf("index upsert: %w", err)
		}
	}
	return nil
}

// Start runs reconcile passes on a fixed interval until ctx is
// cancelled. Errors are logged, never fatal.
func (r *Reconciler) Start(ctx context.Context, tenantIDs []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := r.Run(ctx, tenantIDs)
			if err != nil {
				r.logger.Error("reconcile pass failed", "error", err)
				continue
			}
			r.logger.Info("reconcile pass complete",
				"found", result.TotalFound,
				"repaired", result.TotalRepaired,
				"failed", result.TotalFailed)
		}
	}
}
