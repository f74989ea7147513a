// Command spritedemo drives a sprite.Manager with concurrent requestors and
// a synthetic image provider, then writes the packed atlas to a PNG file.
package main

import (
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/actor"
	"github.com/gogpu/sprite/atlas"
	"github.com/gogpu/sprite/provider"
)

func main() {
	var (
		requestors = flag.Int("requestors", 8, "number of concurrent requestors")
		images     = flag.Int("images", 40, "number of distinct on-demand images")
		perRequest = flag.Int("per-request", 6, "images per dependency set")
		styleCount = flag.Int("style", 4, "number of style images added up front")
		workers    = flag.Int("workers", 4, "delivery worker goroutines")
		softLimit  = flag.Int64("soft-limit", sprite.DefaultSoftLimitBytes, "soft memory limit in bytes")
		output     = flag.String("output", "atlas.png", "output file")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	sprite.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*requestors, *images, *perRequest, *styleCount, *workers, *softLimit, *output); err != nil {
		log.Fatalf("spritedemo: %v", err)
	}
}

func run(requestors, images, perRequest, styleCount, workers int, softLimit int64, output string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	loop := actor.NewRunLoop()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()
	defer func() {
		loop.Stop()
		<-loopDone
	}()

	pool := actor.NewThreadPool(workers, actor.WithName("deliveries"))
	defer pool.Close()

	cfg := sprite.DefaultConfig()
	cfg.SoftLimitBytes = softLimit
	metrics := sprite.NewMetricsCollector()
	m, err := sprite.NewManager(sprite.WithConfig(cfg), sprite.WithScheduler(loop), sprite.WithMetrics(metrics))
	if err != nil {
		return err
	}
	mgr := actor.New(loop, m)
	defer mgr.Close()

	p, err := provider.New(provider.FetcherFunc(synthesize), mgr.Self(), provider.DefaultConfig())
	if err != nil {
		return err
	}
	defer p.Close()

	if err := call(mgr, func(m *sprite.Manager) error {
		m.SetObserver(p)
		for i := 0; i < styleCount; i++ {
			img, err := synthesize(ctx, fmt.Sprintf("style-%d", i))
			if err != nil {
				return err
			}
			if err := m.AddImage(img); err != nil {
				return err
			}
		}
		m.SetLoaded(true)
		return nil
	}); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(1, uint64(requestors)))
	sets := make([]sprite.ImageDependencies, requestors)
	for i := range sets {
		deps := make(sprite.ImageDependencies, perRequest)
		for len(deps) < min(perRequest, images) {
			id := fmt.Sprintf("icon-%d", rng.IntN(images))
			typ := sprite.ImageTypeIcon
			if rng.IntN(4) == 0 {
				typ = sprite.ImageTypePattern
			}
			deps[id] = typ
		}
		deps[fmt.Sprintf("style-%d", i%max(styleCount, 1))] = sprite.ImageTypeIcon
		sets[i] = deps
	}

	start := time.Now()
	reqs := make([]*sprite.Requestor, requestors)
	g, gctx := errgroup.WithContext(ctx)
	for i, deps := range sets {
		g.Go(func() error {
			delivered := make(chan int, 1)
			consumer := sprite.ConsumerFunc(func(icons, patterns sprite.ImageMap, _ sprite.VersionMap, _ uint64) {
				delivered <- len(icons) + len(patterns)
			})
			if !mgr.Self().Invoke(func(m *sprite.Manager) {
				reqs[i] = m.NewRequestor(consumer, sprite.WithDelivery(pool))
				m.GetImages(reqs[i], sprite.ImageRequest{Dependencies: deps, CorrelationID: uint64(i + 1)})
			}) {
				return fmt.Errorf("requestor %d: manager is gone", i)
			}

			select {
			case n := <-delivered:
				if n != len(deps) {
					return fmt.Errorf("requestor %d: got %d of %d images", i, n, len(deps))
				}
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	sprite.Logger().Info("all requestors satisfied", "requestors", requestors, "elapsed", time.Since(start).Round(time.Millisecond))

	// Release half of the requestors and reclaim their on-demand images.
	var snapshot *atlas.Bitmap
	var available int
	if err := call(mgr, func(m *sprite.Manager) error {
		before := len(m.AvailableImages())
		for _, r := range reqs[:len(reqs)/2] {
			r.Close()
		}
		m.ReduceMemoryUse()
		m.DumpDebugLogs()
		sprite.Logger().Info("images before eviction", "count", before)
		return nil
	}); err != nil {
		return err
	}
	if err := call(mgr, func(m *sprite.Manager) error {
		for _, r := range reqs[len(reqs)/2:] {
			r.Close()
		}
		available = len(m.AvailableImages())
		snapshot = m.Snapshot()
		return nil
	}); err != nil {
		return err
	}

	if err := writePNG(output, snapshot); err != nil {
		return err
	}
	stats := p.CacheStats()
	fmt.Printf("atlas %dx%d (%s), %d images, provider cache %s (%.0f%% hits), saved to %s\n",
		snapshot.Width, snapshot.Height, humanize.IBytes(uint64(snapshot.Bytes())),
		available, humanize.IBytes(uint64(stats.Cost)), stats.HitRate()*100, output)
	return nil
}

// call runs fn on the manager's actor and waits for its result.
func call(a *actor.Actor[sprite.Manager], fn func(m *sprite.Manager) error) error {
	err, ok := <-actor.Ask(a.Self(), fn)
	if !ok {
		return fmt.Errorf("manager is gone")
	}
	return err
}

// synthesize renders a deterministic colored square for id.
func synthesize(_ context.Context, id string) (*sprite.Image, error) {
	h := fnv.New32a()
	h.Write([]byte(id))
	sum := h.Sum32()

	size := 8 + int(sum%25)
	src := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := color.NRGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 160 + uint8(sum>>24)%96}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x == 0 || y == 0 || x == size-1 || y == size-1 {
				src.SetNRGBA(x, y, color.NRGBA{A: 255})
				continue
			}
			src.SetNRGBA(x, y, c)
		}
	}

	bm, err := atlas.BitmapFromImage(src)
	if err != nil {
		return nil, err
	}
	img := sprite.NewImage(id, bm, 1)
	img.Content = &sprite.Content{Left: 1, Top: 1, Right: float32(size - 1), Bottom: float32(size - 1)}
	return img, nil
}

func writePNG(path string, bm *atlas.Bitmap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, bm.RGBA()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
