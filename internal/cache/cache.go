// Package cache holds computed reports between ledger mutations.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache stores values under a key scoped to a workspace.
type Cache[T any] interface {
	Get(workspace, key string) (T, bool)
	Set(workspace, key string, data T)
	// Invalidate drops every entry of workspace.
	Invalidate(workspace string)
	Size() int
}

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically removes expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
	done   chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches, done: make(chan struct{})}
}

// Run sweeps every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range j.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", cleaned)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run returns.
func (j *Janitor) Done() <-chan struct{} {
	return j.done
}
