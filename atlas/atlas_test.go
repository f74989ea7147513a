package atlas

import (
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/gogpu/gputypes"
)

func filled(t *testing.T, w, h int, v byte) *Bitmap {
	t.Helper()
	bm, err := NewBitmap(w, h)
	if err != nil {
		t.Fatalf("NewBitmap(%d,%d) error = %v", w, h, err)
	}
	bm.Fill(v)
	return bm
}

func pixel(b *Bitmap, x, y int) [4]byte {
	o := (y*b.Width + x) * BytesPerPixel
	return [4]byte{b.Pix[o], b.Pix[o+1], b.Pix[o+2], b.Pix[o+3]}
}

func newTestAtlas(t *testing.T) *Atlas {
	t.Helper()
	a, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"default", func(*Config) {}, ""},
		{"zero width", func(c *Config) { c.InitialWidth = 0 }, "InitialWidth"},
		{"zero height", func(c *Config) { c.InitialHeight = 0 }, "InitialHeight"},
		{"max below initial", func(c *Config) { c.MaxSize = 32 }, "MaxSize"},
		{"max too large", func(c *Config) { c.MaxSize = 1 << 20 }, "MaxSize"},
		{"negative padding", func(c *Config) { c.Padding = -1 }, "Padding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestAtlas_AddPadding(t *testing.T) {
	a := newTestAtlas(t)

	r, err := a.Add(filled(t, 16, 16, 255), false)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if x, y := r.TL(); x != 1 || y != 1 {
		t.Errorf("TL() = (%d,%d), want (1,1)", x, y)
	}
	if x, y := r.BR(); x != 17 || y != 17 {
		t.Errorf("BR() = (%d,%d), want (17,17)", x, y)
	}
	if w, h := r.ContentSize(); w != 16 || h != 16 {
		t.Errorf("ContentSize() = %dx%d, want 16x16", w, h)
	}

	img := a.Image()
	if got := pixel(img, 1, 1); got != [4]byte{255, 255, 255, 255} {
		t.Errorf("content pixel = %v, want opaque white", got)
	}
	if got := pixel(img, 0, 0); got != [4]byte{} {
		t.Errorf("padding pixel = %v, want transparent", got)
	}
	if got := pixel(img, 17, 5); got != [4]byte{} {
		t.Errorf("right padding pixel = %v, want transparent", got)
	}
	if !a.IsDirty() {
		t.Error("atlas should be dirty after Add")
	}
}

func TestAtlas_ReplaceResizes(t *testing.T) {
	a := newTestAtlas(t)

	r, _ := a.Add(filled(t, 16, 12, 255), false)
	if x, y := r.BR(); x != 17 || y != 13 {
		t.Fatalf("BR() = (%d,%d), want (17,13)", x, y)
	}

	r2, err := a.Replace(r, filled(t, 5, 5, 200), false)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if x, y := r2.TL(); x != 1 || y != 1 {
		t.Errorf("TL() = (%d,%d), want (1,1)", x, y)
	}
	if x, y := r2.BR(); x != 6 || y != 6 {
		t.Errorf("BR() = (%d,%d), want (6,6)", x, y)
	}
	if got := pixel(a.Image(), 10, 10); got != [4]byte{} {
		t.Errorf("stale pixel at (10,10) = %v, want cleared", got)
	}
	if a.Count() != 1 {
		t.Errorf("Count() = %d, want 1", a.Count())
	}
}

func TestAtlas_ReplaceInPlace(t *testing.T) {
	a := newTestAtlas(t)

	r, _ := a.Add(filled(t, 8, 8, 10), false)
	v := a.Version()

	r2, err := a.Replace(r, filled(t, 8, 8, 99), false)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if r2 != r {
		t.Errorf("Replace() moved region %v -> %v", r, r2)
	}
	if got := pixel(a.Image(), 1, 1); got[0] != 99 {
		t.Errorf("pixel = %v, want 99", got)
	}
	if a.Version() == v {
		t.Error("Version() did not change after Replace")
	}
}

func TestAtlas_RemoveReusesRegion(t *testing.T) {
	a := newTestAtlas(t)

	a.Add(filled(t, 32, 32, 1), false)
	mid, _ := a.Add(filled(t, 32, 32, 2), false)
	a.Add(filled(t, 32, 32, 3), false)

	w, h := a.Size()
	a.Remove(mid)

	for _, size := range []int{32, 20} {
		r, err := a.Add(filled(t, size, size, 4), false)
		if err != nil {
			t.Fatalf("Add(%d) error = %v", size, err)
		}
		if size == 32 && r.Y != mid.Y {
			t.Errorf("Add(%d) placed at y=%d, want freed shelf y=%d", size, r.Y, mid.Y)
		}
		if nw, nh := a.Size(); nw != w || nh != h {
			t.Errorf("atlas grew from %dx%d to %dx%d", w, h, nw, nh)
		}
		a.Remove(r)
	}
}

func TestAtlas_RemoveKeepsNeighbours(t *testing.T) {
	a := newTestAtlas(t)

	left, _ := a.Add(filled(t, 4, 4, 7), false)
	right, _ := a.Add(filled(t, 4, 4, 9), false)

	a.Remove(left)

	x, y := right.TL()
	if got := pixel(a.Image(), x, y); got[0] != 9 {
		t.Errorf("neighbour pixel = %v, want 9", got)
	}
	lx, ly := left.TL()
	if got := pixel(a.Image(), lx, ly); got != [4]byte{} {
		t.Errorf("removed pixel = %v, want cleared", got)
	}
}

func TestAtlas_GrowPreservesPixels(t *testing.T) {
	a := newTestAtlas(t)

	first, _ := a.Add(filled(t, 10, 10, 42), false)
	if _, err := a.Add(filled(t, 100, 100, 1), false); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	w, h := a.Size()
	if w < 114 || h < 102 {
		t.Errorf("Size() = %dx%d, too small for contents", w, h)
	}
	x, y := first.TL()
	if got := pixel(a.Image(), x, y); got[0] != 42 {
		t.Errorf("pixel after grow = %v, want 42", got)
	}
	if a.Bytes() != w*h*BytesPerPixel {
		t.Errorf("Bytes() = %d, want %d", a.Bytes(), w*h*BytesPerPixel)
	}
}

func TestAtlas_PatternWrap(t *testing.T) {
	a := newTestAtlas(t)

	src, _ := NewBitmap(2, 2)
	copy(src.Pix, []byte{
		1, 1, 1, 255, 2, 2, 2, 255,
		3, 3, 3, 255, 4, 4, 4, 255,
	})

	r, err := a.Add(src, true)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	x, y := r.TL()
	img := a.Image()

	tests := []struct {
		name string
		x, y int
		want byte
	}{
		{"top left", x, y - 1, 3},
		{"top right", x + 1, y - 1, 4},
		{"bottom left", x, y + 2, 1},
		{"left top", x - 1, y, 2},
		{"right bottom", x + 2, y + 1, 3},
	}
	for _, tt := range tests {
		if got := pixel(img, tt.x, tt.y)[0]; got != tt.want {
			t.Errorf("%s padding = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestAtlas_InvalidBitmap(t *testing.T) {
	a := newTestAtlas(t)
	if _, err := a.Add(&Bitmap{}, false); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Add(empty) error = %v, want ErrInvalidDimensions", err)
	}
}

func TestAtlas_Full(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 64
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := a.Add(filled(t, 64, 64, 1), false); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Add(64x64 + padding) error = %v, want ErrAtlasFull", err)
	}
}

func TestAtlas_SnapshotIsCopy(t *testing.T) {
	a := newTestAtlas(t)
	r, _ := a.Add(filled(t, 4, 4, 5), false)

	snap := a.Snapshot()
	a.Remove(r)

	x, y := r.TL()
	if got := pixel(snap, x, y); got[0] != 5 {
		t.Errorf("snapshot pixel = %v, want 5", got)
	}
}

func TestAtlas_Descriptor(t *testing.T) {
	a := newTestAtlas(t)
	d := a.Descriptor()

	if d.Width != 64 || d.Height != 64 {
		t.Errorf("Descriptor size = %dx%d, want 64x64", d.Width, d.Height)
	}
	if d.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Descriptor format = %v, want RGBA8Unorm", d.Format)
	}

	a.MarkClean()
	if a.IsDirty() {
		t.Error("IsDirty() = true after MarkClean")
	}
}

func TestAtlas_RandomNoOverlap(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	a := newTestAtlas(t)
	live := map[int]Region{}

	for i := 0; i < 1000; i++ {
		switch op := rng.IntN(4); {
		case op == 0 && len(live) > 0:
			for k, r := range live {
				a.Remove(r)
				delete(live, k)
				break
			}
		case op == 1 && len(live) > 0:
			for k, r := range live {
				nr, err := a.Replace(r, filled(t, 1+rng.IntN(24), 1+rng.IntN(24), 1), k%2 == 0)
				if err != nil {
					t.Fatalf("Replace() error = %v", err)
				}
				live[k] = nr
				break
			}
		default:
			r, err := a.Add(filled(t, 1+rng.IntN(24), 1+rng.IntN(24), 1), false)
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			live[i] = r
		}

		for k1, r1 := range live {
			for k2, r2 := range live {
				if k1 != k2 && r1.Overlaps(r2) {
					t.Fatalf("step %d: %v overlaps %v", i, r1, r2)
				}
			}
		}
	}
}

func TestBitmapFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 12, 11))
	src.SetNRGBA(10, 10, color.NRGBA{R: 255, A: 128})
	src.SetNRGBA(11, 10, color.NRGBA{G: 255, A: 255})

	bm, err := BitmapFromImage(src)
	if err != nil {
		t.Fatalf("BitmapFromImage() error = %v", err)
	}
	if bm.Width != 2 || bm.Height != 1 {
		t.Fatalf("size = %dx%d, want 2x1", bm.Width, bm.Height)
	}
	// Premultiplied: red scaled by alpha.
	if got := pixel(bm, 0, 0); got[0] != 128 || got[3] != 128 {
		t.Errorf("pixel(0,0) = %v, want premultiplied {128,0,0,128}", got)
	}
	if got := pixel(bm, 1, 0); got != [4]byte{0, 255, 0, 255} {
		t.Errorf("pixel(1,0) = %v, want opaque green", got)
	}
}

func TestBitmap_Scaled(t *testing.T) {
	bm := filled(t, 8, 8, 200)

	half, err := bm.Scaled(4, 4)
	if err != nil {
		t.Fatalf("Scaled() error = %v", err)
	}
	if half.Width != 4 || half.Height != 4 {
		t.Errorf("size = %dx%d, want 4x4", half.Width, half.Height)
	}
	if got := pixel(half, 2, 2); got[0] < 199 || got[0] > 201 {
		t.Errorf("uniform scale pixel = %v, want 200", got)
	}

	if _, err := bm.Scaled(0, 4); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Scaled(0,4) error = %v, want ErrInvalidDimensions", err)
	}
}

func TestBitmapFromPix(t *testing.T) {
	if _, err := BitmapFromPix(2, 2, make([]byte, 15)); !errors.Is(err, ErrDataTooSmall) {
		t.Errorf("BitmapFromPix(short) error = %v, want ErrDataTooSmall", err)
	}
	bm, err := BitmapFromPix(2, 2, make([]byte, 20))
	if err != nil {
		t.Fatalf("BitmapFromPix() error = %v", err)
	}
	if len(bm.Pix) != 16 || bm.Bytes() != 16 {
		t.Errorf("len(Pix) = %d, Bytes() = %d, want 16", len(bm.Pix), bm.Bytes())
	}
}

func TestAtlas_ResizeError(t *testing.T) {
	a := newTestAtlas(t)
	before := a.Image()
	a.packer = NewShelfPacker(0, 64, 64)

	if err := a.resizeToPacker(); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("resizeToPacker() error = %v, want ErrInvalidDimensions", err)
	}
	if a.Image() != before {
		t.Error("buffer replaced after failed resize")
	}
}
