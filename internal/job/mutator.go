package job

import (
	"context"
	"log/slog"

	"jobctl/internal/apperrors"
	"jobctl/pkg/backoff"
)

// mutation issues one versioned RPC attempt and returns the entity version
// the service advanced to. Delete returns an empty version.
type mutation func(ctx context.Context, version string) (string, error)

// mutate executes a versioned mutation with optimistic concurrency control.
//
// Effective version per attempt: the caller's explicit version if supplied,
// else the cached version, else a fresh one from the job status. On a
// version conflict with no explicit version, the current version is
// re-fetched and the call retried; conflicts are expected to be transient
// so there is no retry cap, only the ctx check between attempts. An
// explicit version is strict: its conflict propagates with zero retries.
// Any non-conflict failure propagates immediately.
//
// On success the cached entity version is advanced to the returned one.
func (c *Controller) mutate(ctx context.Context, op Operation, explicitVersion string, call mutation) (string, error) {
	version := explicitVersion
	if version == "" {
		version = c.version
	}
	if version == "" {
		status, err := c.GetStatus(ctx)
		if err != nil {
			return "", err
		}
		version = status.Version
	}

	logger := slog.With("jobId", c.jobID, "op", string(op))
	for attempt := 1; ; attempt++ {
		next, err := call(ctx, version)
		if err == nil {
			if next != "" {
				c.version = next
			}
			logger.Info("mutation applied", "version", next, "attempts", attempt)
			if c.opts.Metrics != nil {
				c.opts.Metrics.RecordMutation(ctx, string(op))
			}
			return next, nil
		}

		// An explicitly pinned version makes the conflict the caller's
		// to handle.
		if explicitVersion != "" || !apperrors.IsVersionConflict(err) {
			return "", err
		}

		logger.Info("entity version conflict, refreshing", "staleVersion", version, "attempt", attempt)
		if c.opts.Metrics != nil {
			c.opts.Metrics.RecordConflictRetry(ctx, string(op))
		}

		if c.opts.ConflictBackoff > 0 {
			delay := backoff.Exponential(attempt, &backoff.Config{Initial: c.opts.ConflictBackoff})
			if err := backoff.Sleep(ctx, delay); err != nil {
				return "", err
			}
		} else if err := ctx.Err(); err != nil {
			return "", err
		}

		status, err := c.GetStatus(ctx)
		if err != nil {
			return "", err
		}
		version = status.Version
	}
}
