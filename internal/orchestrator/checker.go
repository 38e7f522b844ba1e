package orchestrator

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/upkeep/internal/update"
)

// Checker queries the feed and classifies its failures.
type Checker struct {
	feed Feed
}

// NewChecker creates a checker over feed.
func NewChecker(feed Feed) *Checker {
	return &Checker{feed: feed}
}

// Check returns the newer release, or nil when none exists. Every error
// wraps update.ErrFeedUnreachable or update.ErrFeedMalformed.
func (c *Checker) Check(ctx context.Context) (*update.Info, error) {
	info, err := c.feed.CheckForUpdate(ctx)
	if err != nil {
		if errors.Is(err, update.ErrFeedUnreachable) || errors.Is(err, update.ErrFeedMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", update.ErrFeedUnreachable, err)
	}
	if info == nil {
		return nil, nil
	}
	if info.Version.IsZero() {
		return nil, fmt.Errorf("%w: update without a version", update.ErrFeedMalformed)
	}

	log.Debugf("feed offers %s (current %s)", info.Version, info.CurrentVersion)
	return info, nil
}
