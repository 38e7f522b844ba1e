package notes

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/upkeep/internal/update"
)

// DefaultTimeout bounds each fallback source.
const DefaultTimeout = 5 * time.Second

// ErrNotesUnavailable marks a source that could not supply notes.
// It never escapes Resolve.
var ErrNotesUnavailable = errors.New("release notes unavailable")

// Source supplies bullets for a version.
type Source interface {
	Name() string
	Bullets(ctx context.Context, version update.Version) ([]string, error)
}

// Resolver turns an update into at most MaxBullets display lines.
type Resolver struct {
	sources []Source
	timeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSources sets the fallback chain consulted when the feed's own notes are empty.
func WithSources(sources ...Source) Option {
	return func(r *Resolver) {
		r.sources = sources
	}
}

// WithTimeout sets the per-source timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns bullets for info: its raw notes first, then each source
// in order. The first non-empty result wins. It never fails; when nothing
// yields bullets the result is empty.
func (r *Resolver) Resolve(ctx context.Context, info *update.Info) []string {
	if info == nil {
		return []string{}
	}
	if bullets := Normalize(info.RawReleaseNotes); len(bullets) > 0 {
		return bullets
	}
	return r.Lookup(ctx, info.Version)
}

// Lookup consults only the fallback sources for version.
func (r *Resolver) Lookup(ctx context.Context, version update.Version) []string {
	for _, src := range r.sources {
		bullets, err := r.fetch(ctx, src, version)
		if err != nil {
			log.Debugf("release notes from %s: %v", src.Name(), err)
			continue
		}
		if len(bullets) > 0 {
			log.Debugf("release notes for %s resolved from %s", version.Tag(), src.Name())
			return bullets
		}
	}
	return []string{}
}

func (r *Resolver) fetch(ctx context.Context, src Source, version update.Version) (bullets []string, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			bullets, err = nil, errors.Join(ErrNotesUnavailable, errors.New("source panicked"))
			log.Debugf("release notes source %s panicked: %v", src.Name(), p)
		}
	}()

	bullets, err = src.Bullets(ctx, version)
	if len(bullets) > MaxBullets {
		bullets = bullets[:MaxBullets]
	}
	return bullets, err
}
