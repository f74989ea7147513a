package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/actor"
	"github.com/gogpu/sprite/internal/cache"
)

// ErrNotFound is returned by a Fetcher that has no image for an id.
var ErrNotFound = errors.New("provider: image not found")

// Fetcher loads one image. Implementations must honour ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*sprite.Image, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id string) (*sprite.Image, error)

// Fetch calls f(ctx, id).
func (f FetcherFunc) Fetch(ctx context.Context, id string) (*sprite.Image, error) {
	return f(ctx, id)
}

// Config holds Provider configuration.
type Config struct {
	// MaxConcurrent bounds fetches running at the same time.
	// Default: 8
	MaxConcurrent int64

	// FetchesPerSecond limits the fetch rate. Zero means unlimited.
	// Default: 0
	FetchesPerSecond float64

	// Burst is the number of fetches allowed at once under the rate limit.
	// Default: 1
	Burst int

	// CacheBytes bounds the fetched-image cache. Zero disables caching.
	// Default: 8 MiB
	CacheBytes int64

	// PixelRatio resamples fetched images to this ratio, keeping their
	// display size. Zero keeps the ratio the fetcher returned.
	// Default: 0
	PixelRatio float32
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 8,
		Burst:         1,
		CacheBytes:    8 << 20,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxConcurrent < 1 {
		return &sprite.ConfigError{Field: "MaxConcurrent", Reason: "must be at least 1"}
	}
	if c.FetchesPerSecond < 0 {
		return &sprite.ConfigError{Field: "FetchesPerSecond", Reason: "must be non-negative"}
	}
	if c.FetchesPerSecond > 0 && c.Burst < 1 {
		return &sprite.ConfigError{Field: "Burst", Reason: "must be at least 1 when rate limited"}
	}
	if c.CacheBytes < 0 {
		return &sprite.ConfigError{Field: "CacheBytes", Reason: "must be non-negative"}
	}
	if c.PixelRatio < 0 {
		return &sprite.ConfigError{Field: "PixelRatio", Reason: "must be non-negative"}
	}
	return nil
}

// Provider is a sprite.Observer backed by a Fetcher.
//
// The Observer methods are called on the manager's goroutine and never block.
// Results reach the manager through its actor reference; once the actor is
// gone they are dropped.
type Provider struct {
	fetcher Fetcher
	target  actor.Ref[sprite.Manager]

	group   singleflight.Group
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	cache   *cache.Cache[string, *sprite.Image]
	ratio   float32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a provider delivering into target.
func New(f Fetcher, target actor.Ref[sprite.Manager], cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.FetchesPerSecond > 0 {
		limit = rate.Limit(cfg.FetchesPerSecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		fetcher: f,
		target:  target,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		ratio:   cfg.PixelRatio,
		ctx:     ctx,
		cancel:  cancel,
	}
	if cfg.CacheBytes > 0 {
		p.cache = cache.New[string, *sprite.Image](cfg.CacheBytes)
	}
	return p, nil
}

// OnStyleImageMissing starts fetching id. The image is added and done is
// called from a message on the manager's actor.
func (p *Provider) OnStyleImageMissing(id string, done func()) {
	if p.ctx.Err() != nil {
		done()
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		img, err := p.fetch(p.ctx, id)
		if err != nil {
			sprite.Logger().Warn("provider: fetch failed", "id", id, "err", err)
		}
		p.target.Invoke(func(m *sprite.Manager) {
			if img != nil {
				p.store(m, img)
			}
			done()
		})
	}()
}

// OnRemoveUnusedStyleImages removes the offered images that are still
// unused when the removal reaches the manager. Removed images stay in the
// fetch cache.
func (p *Provider) OnRemoveUnusedStyleImages(ids []string) {
	ids = append([]string(nil), ids...)
	p.target.Invoke(func(m *sprite.Manager) {
		for _, id := range ids {
			if m.InUse(id) {
				continue
			}
			m.RemoveImage(id)
		}
	})
}

// Close cancels in-flight fetches and waits for their goroutines.
// Notifications completed by cancelled fetches still reach the manager if it
// is alive.
func (p *Provider) Close() {
	p.cancel()
	p.wg.Wait()
}

// CacheStats returns statistics of the fetched-image cache.
func (p *Provider) CacheStats() cache.Stats {
	if p.cache == nil {
		return cache.Stats{}
	}
	return p.cache.Stats()
}

func (p *Provider) fetch(ctx context.Context, id string) (*sprite.Image, error) {
	if p.cache != nil {
		if img, ok := p.cache.Get(id); ok {
			sprite.Logger().Debug("provider: cache hit", "id", id)
			return img, nil
		}
	}

	v, err, _ := p.group.Do(id, func() (any, error) {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer p.sem.Release(1)

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		img, err := p.fetcher.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := img.Validate(); err != nil {
			return nil, err
		}
		if img.ID != id {
			renamed := *img
			renamed.ID = id
			img = &renamed
		}
		if p.ratio > 0 && img.PixelRatio != p.ratio {
			if img, err = img.Rescaled(p.ratio); err != nil {
				return nil, err
			}
		}

		if p.cache != nil && !p.cache.Set(id, img, int64(img.Bytes())) {
			sprite.Logger().Debug("provider: image too large to cache",
				"id", id, "size", humanize.IBytes(uint64(img.Bytes())))
		}
		return img, nil
	})
	if err != nil {
		return nil, fmt.Errorf("provider: fetch %q: %w", id, err)
	}
	return v.(*sprite.Image), nil
}

// store adds img unless an image with the same id appeared meanwhile.
func (p *Provider) store(m *sprite.Manager, img *sprite.Image) {
	err := m.AddImage(img)
	switch {
	case errors.Is(err, sprite.ErrDuplicateImage):
		sprite.Logger().Debug("provider: image added elsewhere", "id", img.ID)
	case err != nil:
		sprite.Logger().Warn("provider: store failed", "id", img.ID, "err", err)
	}
}
