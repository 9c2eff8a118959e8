package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pavuchara/nextgen/internal/metrics"
	"github.com/pavuchara/nextgen/internal/models"
)

// Deleter removes a stored asset.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// AssetQueue is a Valkey list of asset paths waiting to be removed from
// storage. Producers push after their transaction commits; a single
// drainer pops and deletes. Paths whose deletion fails are parked on a
// companion list (<key>:failed) for Requeue.
type AssetQueue struct {
	client *redis.Client
	key    string
}

// NewAssetQueue returns a queue stored under key.
func NewAssetQueue(client *redis.Client, key string) *AssetQueue {
	return &AssetQueue{client: client, key: key}
}

func (q *AssetQueue) failedKey() string {
	return q.key + ":failed"
}

// Enqueue schedules path for deletion. Default assets are shared and are
// silently ignored.
func (q *AssetQueue) Enqueue(ctx context.Context, path string) error {
	if models.IsDefaultAsset(path) {
		return nil
	}
	if err := q.client.LPush(ctx, q.key, path).Err(); err != nil {
		return fmt.Errorf("enqueue asset %s: %w", path, err)
	}
	metrics.AssetCleanup.WithLabelValues("queued").Inc()
	slog.Debug("asset queued for cleanup", "path", path)
	return nil
}

// Pending returns the number of queued and parked paths.
func (q *AssetQueue) Pending(ctx context.Context) (queued, failed int64, err error) {
	if queued, err = q.client.LLen(ctx, q.key).Result(); err != nil {
		return 0, 0, fmt.Errorf("asset queue length: %w", err)
	}
	if failed, err = q.client.LLen(ctx, q.failedKey()).Result(); err != nil {
		return 0, 0, fmt.Errorf("failed asset queue length: %w", err)
	}
	return queued, failed, nil
}

// Drain pops paths oldest first and deletes them until ctx is canceled.
// Each pop blocks for at most wait. A failed deletion parks the path on
// the failed list and draining continues.
func (q *AssetQueue) Drain(ctx context.Context, d Deleter, wait time.Duration) error {
	slog.Info("asset cleanup worker started", "queue", q.key)
	defer slog.Info("asset cleanup worker stopped", "queue", q.key)

	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := q.client.BRPop(ctx, wait, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("pop asset: %w", err)
		}

		// BRPOP replies with [key, value].
		q.delete(ctx, d, res[1])
	}
}

func (q *AssetQueue) delete(ctx context.Context, d Deleter, path string) {
	if err := d.Delete(ctx, path); err != nil {
		metrics.AssetCleanup.WithLabelValues("failed").Inc()
		slog.Warn("asset cleanup failed", "path", path, "error", err)
		if err := q.client.LPush(context.WithoutCancel(ctx), q.failedKey(), path).Err(); err != nil {
			slog.Error("park failed asset", "path", path, "error", err)
		}
		return
	}
	metrics.AssetCleanup.WithLabelValues("deleted").Inc()
	slog.Info("asset deleted", "path", path)
}

// Requeue moves every parked path back onto the queue and returns how
// many were moved.
func (q *AssetQueue) Requeue(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.failedKey(), q.key, "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("requeue assets: %w", err)
		}
		moved++
	}
}
