package services

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	UsageSummarization  = "summarization"
	UsageCategorization = "categorization"
	UsageSentiment      = "sentiment"
)

// RecordTimeout bounds how long a response waits on the usage store.
const RecordTimeout = 500 * time.Millisecond

var ErrUsageDisabled = errors.New("usage tracking is not configured")

// UsageStore persists per-task counters. clients.ValkeyClient implements it.
type UsageStore interface {
	Increment(ctx context.Context, task string) error
	Counts(ctx context.Context, tasks ...string) (map[string]int64, error)
}

// UsageTracker counts successful inferences. A nil tracker or a tracker
// without a store records nothing.
type UsageTracker struct {
	store UsageStore
}

func NewUsageTracker(store UsageStore) *UsageTracker {
	return &UsageTracker{store: store}
}

// Record never fails the caller; store errors are only logged. The increment
// outlives a cancelled request but never takes longer than RecordTimeout.
func (u *UsageTracker) Record(ctx context.Context, task string) {
	if u == nil || u.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RecordTimeout)
	defer cancel()

	if err := u.store.Increment(ctx, task); err != nil {
		slog.Warn("[UsageTracker] Failed to record usage",
			slog.String("task", task),
			slog.String("error", err.Error()))
	}
}

func (u *UsageTracker) Snapshot(ctx context.Context) (map[string]int64, error) {
	if u == nil || u.store == nil {
		return nil, ErrUsageDisabled
	}
	return u.store.Counts(ctx, UsageSummarization, UsageCategorization, UsageSentiment)
}
