// Package workers holds the periodic maintenance jobs run by cmd/worker.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"qrlink/internal/engine/analytics"
	"qrlink/internal/engine/assets"
)

type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// PruneAnalytics drops analytics days older than keepDays.
func PruneAnalytics(tracker *analytics.Service, keepDays int) Job {
	return Job{
		Name: "analytics_prune",
		Run: func(ctx context.Context) error {
			removed, err := tracker.Prune(keepDays)
			if err != nil {
				return err
			}
			log.Info().Int("removed_days", removed).Int("keep_days", keepDays).Msg("Worker: analytics pruned")
			return nil
		},
	}
}

// CleanUploads removes partial upload files left behind by interrupted requests.
func CleanUploads(store *assets.Store, olderThan time.Duration) Job {
	return Job{
		Name: "upload_cleanup",
		Run: func(ctx context.Context) error {
			removed, err := store.RemoveStaleTemp(olderThan)
			if err != nil {
				return err
			}
			if removed > 0 {
				log.Info().Int("removed", removed).Msg("Worker: stale uploads removed")
			}
			return nil
		},
	}
}

// NextDaily returns the next time after now at hour:00 in now's location.
func NextDaily(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// RunDaily runs job once a day at hour:00 in loc until ctx is done.
func RunDaily(ctx context.Context, loc *time.Location, hour int, job Job) error {
	for {
		now := time.Now().In(loc)
		wait := NextDaily(now, hour).Sub(now)
		log.Debug().Str("job", job.Name).Dur("sleep", wait).Msg("Worker sleeping")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		runOnce(ctx, job)
	}
}

// RunEvery runs job immediately and then every interval until ctx is done.
func RunEvery(ctx context.Context, interval time.Duration, job Job) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			runOnce(ctx, job)
		}
	}
}

// runOnce logs job failures instead of returning them so one bad run does not stop the schedule.
func runOnce(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("job", job.Name).Interface("panic", r).Msg("Worker: recovered from panic")
		}
	}()
	if err := job.Run(ctx); err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("Worker: job failed")
	}
}
