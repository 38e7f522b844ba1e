package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/adamancini/upkeep/internal/update"
)

// DownloadManager runs at most one feed download at a time.
type DownloadManager struct {
	feed   Feed
	active atomic.Bool
}

// NewDownloadManager creates a manager over feed.
func NewDownloadManager(feed Feed) *DownloadManager {
	return &DownloadManager{feed: feed}
}

// Active reports whether a download is running.
func (m *DownloadManager) Active() bool {
	return m.active.Load()
}

// Start downloads info's artifact and blocks until it is staged.
// onProgress sees fractions clamped to [0,1] that never decrease.
// Failures wrap ErrDownloadFailed; a concurrent call returns
// ErrDownloadInProgress.
func (m *DownloadManager) Start(ctx context.Context, info *update.Info, onProgress func(float64)) error {
	if !m.active.CompareAndSwap(false, true) {
		return ErrDownloadInProgress
	}
	defer m.active.Store(false)

	var (
		mu       sync.Mutex
		high     float64
		reported bool
	)
	report := func(fraction float64) {
		if math.IsNaN(fraction) {
			return
		}
		fraction = math.Max(0, math.Min(1, fraction))

		mu.Lock()
		defer mu.Unlock()
		if fraction < high || (reported && fraction == high) {
			return
		}
		high, reported = fraction, true
		if onProgress != nil {
			onProgress(fraction)
		}
	}

	if err := m.feed.DownloadUpdate(ctx, info, report); err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	return nil
}
