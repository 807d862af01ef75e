package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Enriquefft/acs-eventhandler/internal/eventgrid"
)

// Merge fans in multiple Sources with envelope-ID deduplication.
type Merge struct {
	Sources []Source
	Logger  zerolog.Logger
	seen    sync.Map
}

// Run starts all sources concurrently, deduplicates by Envelope.ID, and
// forwards unique envelopes to out. Envelopes without an ID are never
// deduplicated. It closes out and returns when all sources have finished.
func (m *Merge) Run(ctx context.Context, out chan<- eventgrid.Envelope) error {
	ch := make(chan eventgrid.Envelope, 64)

	var wg sync.WaitGroup
	for _, src := range m.Sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			if err := s.Run(ctx, ch); err != nil && ctx.Err() == nil {
				m.Logger.Error().Err(err).Msg("source error")
			}
		}(src)
	}

	// Close ch when all sources are done.
	go func() {
		wg.Wait()
		close(ch)
	}()

	defer close(out)
	for env := range ch {
		if env.ID != "" {
			if _, loaded := m.seen.LoadOrStore(env.ID, struct{}{}); loaded {
				m.Logger.Debug().Str("id", env.ID).Msg("merge: skipping duplicate event")
				continue
			}
		}
		select {
		case out <- env:
		case <-ctx.Done():
		}
	}
	return nil
}

// StartCleanup periodically clears the dedup set to bound memory usage.
func (m *Merge) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.seen.Range(func(key, _ any) bool {
				m.seen.Delete(key)
				return true
			})
		}
	}
}
