package sprite

import (
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
)

// CheckCacheSizeReduceMemoryUse offers unused on-demand images to the
// observer if stored bitmaps exceed the soft limit.
func (m *Manager) CheckCacheSizeReduceMemoryUse() {
	if m.bytes <= m.opts.config.SoftLimitBytes {
		return
	}
	Logger().Debug("sprite: soft limit exceeded",
		"used", humanize.IBytes(uint64(m.bytes)),
		"limit", humanize.IBytes(uint64(m.opts.config.SoftLimitBytes)))
	m.ReduceMemoryUse()
}

// ReduceMemoryUse offers every unused on-demand image to the observer,
// regardless of the soft limit.
//
// An image is unused when it was stored in answer to a missing-image
// notification and no live dependency set includes it. Images added
// independently (the style's own images) are never offered.
func (m *Manager) ReduceMemoryUse() {
	unused := m.unusedImages()
	if len(unused) == 0 {
		return
	}

	var size int64
	for _, id := range unused {
		size += int64(m.images[id].image.Bytes())
	}
	Logger().Info("sprite: offering unused images for removal",
		"count", len(unused),
		"size", humanize.IBytes(uint64(size)))
	m.opts.metrics.evictable(len(unused))

	m.enter()
	defer m.leave()
	m.opts.observer.OnRemoveUnusedStyleImages(unused)
}

// InUse reports whether a live dependency set depends on the on-demand
// image id. Images added outside the missing-image flow are never in use.
func (m *Manager) InUse(id string) bool {
	bm, ok := m.requested[id]
	return ok && !bm.IsEmpty()
}

func (m *Manager) unusedImages() []string {
	var unused []string
	for _, id := range slices.Sorted(maps.Keys(m.requested)) {
		if !m.requested[id].IsEmpty() {
			continue
		}
		if _, ok := m.images[id]; ok {
			unused = append(unused, id)
		}
	}
	return unused
}
