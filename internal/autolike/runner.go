// Package autolike runs the periodic job that registers a throwaway user
// and has it like a random published post.
package autolike

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pavuchara/nextgen/internal/blog"
	"github.com/pavuchara/nextgen/internal/metrics"
	"github.com/pavuchara/nextgen/internal/models"
)

// Run outcomes, also used as metric labels.
const (
	StatusLiked   = "liked"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Liker performs one autolike.
type Liker interface {
	Autolike(ctx context.Context) (uuid.UUID, models.VoteResult, error)
}

// Runner calls a Liker on a fixed interval.
type Runner struct {
	liker    Liker
	interval time.Duration
}

// NewRunner returns a Runner liking every interval.
func NewRunner(liker Liker, interval time.Duration) *Runner {
	return &Runner{liker: liker, interval: interval}
}

// RunOnce performs a single autolike and reports its status. Failures are
// logged and counted, not returned.
func (r *Runner) RunOnce(ctx context.Context) string {
	postID, res, err := r.liker.Autolike(ctx)
	switch {
	case errors.Is(err, blog.ErrNothingToLike):
		slog.Debug("autolike skipped, nothing published")
		metrics.AutolikeRuns.WithLabelValues(StatusSkipped).Inc()
		return StatusSkipped
	case err != nil:
		slog.Error("autolike failed", "error", err)
		metrics.AutolikeRuns.WithLabelValues(StatusFailed).Inc()
		return StatusFailed
	}

	slog.Info("autolike", "post_id", postID, "status", res.Outcome, "rating_sum", res.Sum)
	metrics.AutolikeRuns.WithLabelValues(StatusLiked).Inc()
	return StatusLiked
}

// Run likes once per interval until ctx is cancelled. The first run
// happens one interval after the call.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("autolike runner started", "interval", r.interval.String())
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("autolike runner stopped")
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}
