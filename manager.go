package sprite

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dustin/go-humanize"

	"github.com/gogpu/sprite/actor"
	"github.com/gogpu/sprite/atlas"
)

// Manager stores images in a packed atlas and resolves requestors'
// dependency sets against it.
//
// Manager is not safe for concurrent use. It belongs to one goroutine, for
// example a RunLoop or the mailbox of an actor.Actor[Manager]; every method,
// including Requestor.Close, must be called from there. Callbacks to the
// Observer and to Consumers run on that goroutine and may call back into the
// Manager.
type Manager struct {
	opts  options
	atlas *atlas.Atlas

	images map[string]*entry
	bytes  int64 // total bitmap bytes of stored images
	loaded bool

	requestors    map[uint32]*Requestor
	nextRequestor uint32

	// deferred holds requests made before the initial load that could not
	// be answered from the store.
	deferred map[uint32]ImageRequest

	// waiting holds requests blocked on provider callbacks.
	waiting map[uint32]ImageRequest

	// requested maps ids that went through the missing-image flow to the
	// requestors currently depending on them.
	requested map[string]*roaring.Bitmap

	// inflight maps ids with an outstanding provider call to the requestors
	// waiting on it.
	inflight map[string]*missingCall
	nextCall uint64

	// depth counts nested manager dispatches. Automatic re-checks only run
	// at depth zero.
	depth int
}

// NewManager creates an empty, not yet loaded Manager.
func NewManager(opts ...Option) (*Manager, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	a, err := atlas.New(o.config.Atlas)
	if err != nil {
		return nil, fmt.Errorf("sprite: create atlas: %w", err)
	}

	m := &Manager{
		opts:       o,
		atlas:      a,
		images:     make(map[string]*entry),
		requestors: make(map[uint32]*Requestor),
		deferred:   make(map[uint32]ImageRequest),
		waiting:    make(map[uint32]ImageRequest),
		requested:  make(map[string]*roaring.Bitmap),
		inflight:   make(map[string]*missingCall),
	}
	m.updateStoreMetrics()
	return m, nil
}

// SetObserver replaces the observer. A nil observer restores NopObserver.
func (m *Manager) SetObserver(obs Observer) {
	WithObserver(obs)(&m.opts)
}

// AddImage stores a new image and packs it into the atlas.
//
// Pending requests are re-checked afterwards unless AddImage is called from
// an observer or consumer callback, in which case the outer call decides.
func (m *Manager) AddImage(img *Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	if _, ok := m.images[img.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateImage, img.ID)
	}

	w, h := m.atlas.Size()
	r, err := m.atlas.Add(img.Bitmap, img.Type == ImageTypePattern)
	if err != nil {
		return fmt.Errorf("sprite: pack %q: %w", img.ID, err)
	}
	if nw, nh := m.atlas.Size(); nw != w || nh != h {
		Logger().Debug("sprite: atlas grew", "from", fmt.Sprintf("%dx%d", w, h), "to", fmt.Sprintf("%dx%d", nw, nh))
	}

	m.images[img.ID] = &entry{image: img, region: r, version: 1}
	m.bytes += int64(img.Bytes())
	m.updateStoreMetrics()
	m.recheck()
	return nil
}

// UpdateImage replaces a stored image and bumps its version.
//
// If the new bitmap has the same size the pixels are overwritten in place,
// otherwise the image is repacked. If repacking fails the image is removed.
func (m *Manager) UpdateImage(img *Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	e, ok := m.images[img.ID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownImage, img.ID)
	}

	r, err := m.atlas.Replace(e.region, img.Bitmap, img.Type == ImageTypePattern)
	if err != nil {
		m.bytes -= int64(e.image.Bytes())
		delete(m.images, img.ID)
		delete(m.requested, img.ID)
		m.updateStoreMetrics()
		return fmt.Errorf("sprite: repack %q: %w", img.ID, err)
	}

	m.bytes += int64(img.Bytes()) - int64(e.image.Bytes())
	e.image = img
	e.region = r
	e.version++
	m.updateStoreMetrics()
	m.recheck()
	return nil
}

// RemoveImage deletes an image and frees its atlas region. Removing an
// unknown id does nothing.
func (m *Manager) RemoveImage(id string) {
	delete(m.requested, id)

	e, ok := m.images[id]
	if !ok {
		return
	}
	m.atlas.Remove(e.region)
	m.bytes -= int64(e.image.Bytes())
	delete(m.images, id)
	m.updateStoreMetrics()
}

// Image returns the stored image, or nil.
func (m *Manager) Image(id string) *Image {
	if e, ok := m.images[id]; ok {
		return e.image
	}
	return nil
}

// Position returns where the image is packed in the atlas.
func (m *Manager) Position(id string) (ImagePosition, bool) {
	e, ok := m.images[id]
	if !ok {
		return ImagePosition{}, false
	}
	return e.position(), true
}

// AvailableImages returns the sorted ids of all stored images.
func (m *Manager) AvailableImages() []string {
	return slices.Sorted(maps.Keys(m.images))
}

// PixelSize returns the atlas dimensions in pixels.
func (m *Manager) PixelSize() (width, height int) {
	return m.atlas.Size()
}

// PackedImage returns the atlas buffer. It is owned by the Manager, must not
// be modified and is only valid until the next mutating call.
func (m *Manager) PackedImage() *atlas.Bitmap {
	return m.atlas.Image()
}

// Snapshot returns a copy of the atlas buffer that may be handed to another
// goroutine.
func (m *Manager) Snapshot() *atlas.Bitmap {
	return m.atlas.Snapshot()
}

// Upload returns the atlas descriptor and reports whether the buffer changed
// since the last MarkUploaded.
func (m *Manager) Upload() (atlas.UploadDescriptor, bool) {
	return m.atlas.Descriptor(), m.atlas.IsDirty()
}

// MarkUploaded records that the current atlas buffer reached the GPU.
func (m *Manager) MarkUploaded() {
	m.atlas.MarkClean()
}

// SetLoaded marks the initial image load as complete (or, with false, as
// restarted). Requests deferred while not loaded are processed: satisfied
// ones are delivered, the rest raise missing-image notifications.
func (m *Manager) SetLoaded(loaded bool) {
	if m.loaded == loaded {
		return
	}
	m.loaded = loaded
	if !loaded {
		return
	}

	m.enter()
	defer m.leave()
	for _, id := range slices.Sorted(maps.Keys(m.deferred)) {
		req, ok := m.deferred[id]
		if !ok {
			continue
		}
		delete(m.deferred, id)
		if r, ok := m.requestors[id]; ok {
			m.checkMissingAndNotify(r, req)
		}
	}
}

// IsLoaded reports whether SetLoaded(true) has been called.
func (m *Manager) IsLoaded() bool {
	return m.loaded
}

// GetImages submits a dependency set for r, superseding r's previous one.
//
// If every dependency is stored the consumer is notified before GetImages
// returns. Before the initial load, unmet sets wait for SetLoaded. After it,
// each absent id is reported to the observer once, and the set is delivered
// by a later re-check once all of them are resolved.
func (m *Manager) GetImages(r *Requestor, req ImageRequest) {
	if r.closed.Load() || r.m != m {
		return
	}

	m.enter()
	defer m.leave()

	m.dropRequests(r)
	r.latest.Store(req.CorrelationID)

	if !m.loaded && !m.hasAll(req.Dependencies) {
		m.deferred[r.id] = req
		return
	}
	m.checkMissingAndNotify(r, req)
}

// NotifyIfMissingImageAdded delivers every waiting request whose missing
// images have all been resolved by the observer.
func (m *Manager) NotifyIfMissingImageAdded() {
	m.enter()
	defer m.leave()

	for _, id := range slices.Sorted(maps.Keys(m.waiting)) {
		req, ok := m.waiting[id]
		if !ok {
			continue
		}
		r, ok := m.requestors[id]
		if ok && len(r.pending) > 0 {
			continue
		}
		delete(m.waiting, id)
		if ok {
			m.deliver(r, req)
		}
	}
}

func (m *Manager) hasAll(deps ImageDependencies) bool {
	for id := range deps {
		if _, ok := m.images[id]; !ok {
			return false
		}
	}
	return true
}

func (m *Manager) checkMissingAndNotify(r *Requestor, req ImageRequest) {
	ids := slices.Sorted(maps.Keys(req.Dependencies))

	var missing []string
	for _, id := range ids {
		if _, ok := m.images[id]; ok {
			// Keep on-demand images alive while this requestor uses them.
			if _, requested := m.requested[id]; requested {
				m.associate(r, id)
			}
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		m.deliver(r, req)
		return
	}

	m.waiting[r.id] = req
	epoch := r.epoch
	for _, id := range missing {
		// A callback may close r or replace its set.
		if r.closed.Load() || r.epoch != epoch {
			return
		}
		m.associate(r, id)
		r.pending[id] = struct{}{}

		if call, ok := m.inflight[id]; ok && !call.waiters.IsEmpty() {
			// Still waiting for the observer's answer to an earlier request.
			call.waiters.Add(r.id)
			continue
		}
		m.nextCall++
		call := &missingCall{gen: m.nextCall, waiters: roaring.New()}
		call.waiters.Add(r.id)
		m.inflight[id] = call

		m.opts.metrics.missing()
		m.opts.observer.OnStyleImageMissing(id, m.doneFunc(id, call.gen))
	}
}

// missingCall is an outstanding missing-image notification.
type missingCall struct {
	gen     uint64
	waiters *roaring.Bitmap
}

// doneFunc returns the completion callback for a missing-image notification.
// Only the first call has an effect, and none once a newer notification for
// id has replaced it.
func (m *Manager) doneFunc(id string, gen uint64) func() {
	var once sync.Once
	fn := func() {
		once.Do(func() { m.missingDone(id, gen) })
	}
	if s := m.opts.scheduler; s != nil {
		return actor.Bind(s, fn)
	}
	return fn
}

func (m *Manager) missingDone(id string, gen uint64) {
	call, ok := m.inflight[id]
	if !ok || call.gen != gen {
		return
	}
	delete(m.inflight, id)

	it := call.waiters.Iterator()
	for it.HasNext() {
		if r, ok := m.requestors[it.Next()]; ok {
			delete(r.pending, id)
		}
	}
	m.recheck()
}

func (m *Manager) associate(r *Requestor, id string) {
	bm, ok := m.requested[id]
	if !ok {
		bm = roaring.New()
		m.requested[id] = bm
	}
	bm.Add(r.id)
	r.associated[id] = struct{}{}
}

// deliver hands the present subset of req to r's consumer.
func (m *Manager) deliver(r *Requestor, req ImageRequest) {
	icons := make(ImageMap)
	patterns := make(ImageMap)
	versions := make(VersionMap)
	for id, typ := range req.Dependencies {
		e, ok := m.images[id]
		if !ok {
			continue
		}
		if typ == ImageTypePattern {
			patterns[id] = e.image
		} else {
			icons[id] = e.image
		}
		versions[id] = e.version
	}
	r.deliver(icons, patterns, versions, req.CorrelationID)
}

// dropRequests forgets every request of r. The requestor stays registered.
func (m *Manager) dropRequests(r *Requestor) {
	r.epoch++
	delete(m.deferred, r.id)
	delete(m.waiting, r.id)
	for id := range r.associated {
		if bm, ok := m.requested[id]; ok {
			bm.Remove(r.id)
		}
	}
	clear(r.associated)
	for id := range r.pending {
		if call, ok := m.inflight[id]; ok {
			call.waiters.Remove(r.id)
		}
	}
	clear(r.pending)
}

func (m *Manager) recheck() {
	if m.depth == 0 {
		m.NotifyIfMissingImageAdded()
	}
}

func (m *Manager) enter() { m.depth++ }
func (m *Manager) leave() { m.depth-- }

func (m *Manager) updateStoreMetrics() {
	m.opts.metrics.setStore(len(m.images), m.bytes, m.atlas.Bytes())
}

// DumpDebugLogs writes the manager state to the logger at Info level.
func (m *Manager) DumpDebugLogs() {
	w, h := m.atlas.Size()
	Logger().Info("sprite: manager state",
		"loaded", m.loaded,
		"images", len(m.images),
		"imageBytes", humanize.IBytes(uint64(max(m.bytes, 0))),
		"atlas", fmt.Sprintf("%dx%d", w, h),
		"atlasBytes", humanize.IBytes(uint64(m.atlas.Bytes())),
		"utilization", fmt.Sprintf("%.1f%%", m.atlas.Utilization()*100),
		"requestors", len(m.requestors),
		"deferred", len(m.deferred),
		"waiting", len(m.waiting),
		"inflight", len(m.inflight),
	)
	for _, id := range slices.Sorted(maps.Keys(m.requested)) {
		Logger().Info("sprite: requested image", "id", id, "requestors", m.requested[id].GetCardinality())
	}
}
