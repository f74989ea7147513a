package atlas

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Config holds atlas configuration.
type Config struct {
	// InitialWidth and InitialHeight are the buffer size before any growth.
	// Default: 64x64
	InitialWidth  int
	InitialHeight int

	// MaxSize limits growth in either dimension.
	// Default: 8192
	MaxSize int

	// Padding around every packed bitmap to prevent filtering bleed.
	// Default: 1
	Padding int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		InitialWidth:  64,
		InitialHeight: 64,
		MaxSize:       8192,
		Padding:       1,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.InitialWidth < 1 {
		return &ConfigError{Field: "InitialWidth", Reason: "must be at least 1"}
	}
	if c.InitialHeight < 1 {
		return &ConfigError{Field: "InitialHeight", Reason: "must be at least 1"}
	}
	if c.MaxSize < c.InitialWidth || c.MaxSize < c.InitialHeight {
		return &ConfigError{Field: "MaxSize", Reason: "must be at least the initial size"}
	}
	if c.MaxSize > 16384 {
		return &ConfigError{Field: "MaxSize", Reason: "must be at most 16384"}
	}
	if c.Padding < 0 {
		return &ConfigError{Field: "Padding", Reason: "must be non-negative"}
	}
	return nil
}

// Atlas is a growable premultiplied RGBA buffer holding packed bitmaps.
//
// Atlas never keeps a reference to the bitmaps it stores; pixels are copied
// into the buffer and callers keep the returned Region as the handle.
type Atlas struct {
	config Config
	packer *ShelfPacker
	image  *Bitmap

	// version increments on every mutation of the buffer.
	version uint64

	// dirty marks if atlas needs GPU upload.
	dirty bool
}

// New creates an empty atlas.
func New(config Config) (*Atlas, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	img, err := NewBitmap(config.InitialWidth, config.InitialHeight)
	if err != nil {
		return nil, err
	}
	return &Atlas{
		config: config,
		packer: NewShelfPacker(config.InitialWidth, config.InitialHeight, config.MaxSize),
		image:  img,
	}, nil
}

// Add packs src into the atlas and copies its pixels.
//
// If wrap is true the padding border repeats the opposite edge of the bitmap,
// which keeps repeated pattern sampling seamless. Otherwise the border is
// transparent.
func (a *Atlas) Add(src *Bitmap, wrap bool) (Region, error) {
	if src.IsEmpty() {
		return Region{}, ErrInvalidDimensions
	}

	pad := a.config.Padding
	w, h := src.Width+2*pad, src.Height+2*pad
	x, y, err := a.packer.Pack(w, h)
	if err != nil {
		return Region{}, err
	}
	if err := a.resizeToPacker(); err != nil {
		a.packer.Free(x, y, w, h)
		return Region{}, err
	}

	r := Region{X: x, Y: y, Width: w, Height: h, Padding: pad}
	a.write(r, src, wrap)
	return r, nil
}

// Replace stores src in place of the bitmap in r.
//
// When src has the same size as the region's content the pixels are
// overwritten in place and r is returned unchanged. Otherwise r is freed and
// src is packed anew. On error r has already been released.
func (a *Atlas) Replace(r Region, src *Bitmap, wrap bool) (Region, error) {
	if src.IsEmpty() {
		return Region{}, ErrInvalidDimensions
	}
	if cw, ch := r.ContentSize(); cw == src.Width && ch == src.Height {
		a.write(r, src, wrap)
		return r, nil
	}
	a.Remove(r)
	return a.Add(src, wrap)
}

// Remove frees r and clears its pixels. Other regions are not touched.
func (a *Atlas) Remove(r Region) {
	if !r.IsValid() {
		return
	}
	clearRect(a.image, r.X, r.Y, r.Width, r.Height)
	a.packer.Free(r.X, r.Y, r.Width, r.Height)
	a.touch()
}

// write copies src into r, filling the padding border.
func (a *Atlas) write(r Region, src *Bitmap, wrap bool) {
	clearRect(a.image, r.X, r.Y, r.Width, r.Height)
	x, y := r.TL()
	w, h := src.Width, src.Height
	copyRect(a.image, x, y, src, 0, 0, w, h)

	if wrap && r.Padding > 0 {
		copyRect(a.image, x, y-1, src, 0, h-1, w, 1) // top <- last row
		copyRect(a.image, x, y+h, src, 0, 0, w, 1)   // bottom <- first row
		copyRect(a.image, x-1, y, src, w-1, 0, 1, h) // left <- last column
		copyRect(a.image, x+w, y, src, 0, 0, 1, h)   // right <- first column
	}
	a.touch()
}

// resizeToPacker grows the pixel buffer after the packer grew.
func (a *Atlas) resizeToPacker() error {
	pw, ph := a.packer.Size()
	if pw == a.image.Width && ph == a.image.Height {
		return nil
	}
	img, err := NewBitmap(pw, ph)
	if err != nil {
		return fmt.Errorf("atlas: resize to %dx%d: %w", pw, ph, err)
	}
	copyRect(img, 0, 0, a.image, 0, 0, min(a.image.Width, pw), min(a.image.Height, ph))
	a.image = img
	a.touch()
	return nil
}

func (a *Atlas) touch() {
	a.version++
	a.dirty = true
}

// Image returns the packed buffer. The bitmap is owned by the atlas and is
// only valid until the next mutating call; it must not be modified.
func (a *Atlas) Image() *Bitmap {
	return a.image
}

// Snapshot returns a copy of the packed buffer that is safe to hand to
// another goroutine.
func (a *Atlas) Snapshot() *Bitmap {
	return a.image.Clone()
}

// Size returns the buffer dimensions in pixels.
func (a *Atlas) Size() (width, height int) {
	return a.image.Width, a.image.Height
}

// Bytes returns the size of the packed buffer in bytes.
func (a *Atlas) Bytes() int {
	return a.image.Bytes()
}

// Count returns the number of packed bitmaps.
func (a *Atlas) Count() int {
	return a.packer.Count()
}

// Utilization returns the percentage of atlas space used.
func (a *Atlas) Utilization() float64 {
	return a.packer.Utilization()
}

// Version returns a counter that changes whenever the buffer changes.
func (a *Atlas) Version() uint64 {
	return a.version
}

// IsDirty returns true if the atlas has been modified since last upload.
func (a *Atlas) IsDirty() bool {
	return a.dirty
}

// MarkClean records that the current buffer has been uploaded.
func (a *Atlas) MarkClean() {
	a.dirty = false
}

// Format returns the texture format matching the buffer layout.
func (a *Atlas) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// UploadDescriptor describes the buffer for a texture upload.
type UploadDescriptor struct {
	Width   uint32
	Height  uint32
	Format  gputypes.TextureFormat
	Version uint64
}

// Descriptor returns the current upload descriptor.
func (a *Atlas) Descriptor() UploadDescriptor {
	return UploadDescriptor{
		Width:   uint32(a.image.Width),
		Height:  uint32(a.image.Height),
		Format:  a.Format(),
		Version: a.version,
	}
}
