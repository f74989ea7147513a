package atlas

import (
	"errors"
	"math/rand/v2"
	"testing"
)

type rect struct{ x, y, w, h int }

func (r rect) overlaps(o rect) bool {
	return r.x < o.x+o.w && o.x < r.x+r.w && r.y < o.y+o.h && o.y < r.y+r.h
}

func TestShelfPacker_Basic(t *testing.T) {
	p := NewShelfPacker(100, 100, 100)

	x, y, err := p.Pack(20, 20)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if x != 0 || y != 0 {
		t.Errorf("expected (0,0), got (%d,%d)", x, y)
	}

	x, y, err = p.Pack(20, 10)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if x != 20 || y != 0 {
		t.Errorf("expected (20,0), got (%d,%d)", x, y)
	}

	if p.Count() != 2 {
		t.Errorf("Count() = %d, want 2", p.Count())
	}
	if p.UsedArea() != 600 {
		t.Errorf("UsedArea() = %d, want 600", p.UsedArea())
	}
}

func TestShelfPacker_NewShelf(t *testing.T) {
	p := NewShelfPacker(50, 100, 100)

	_, y1, _ := p.Pack(20, 20)
	_, y2, _ := p.Pack(20, 20)
	if y2 != y1 {
		t.Errorf("expected same shelf, got y1=%d, y2=%d", y1, y2)
	}

	x3, y3, err := p.Pack(20, 20)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if y3 != 20 || x3 != 0 {
		t.Errorf("expected new shelf at (0,20), got (%d,%d)", x3, y3)
	}
	if p.ShelfCount() != 2 {
		t.Errorf("ShelfCount() = %d, want 2", p.ShelfCount())
	}
}

func TestShelfPacker_FirstFit(t *testing.T) {
	p := NewShelfPacker(40, 100, 100)

	p.Pack(30, 30) // shelf 0, height 30
	p.Pack(30, 10) // shelf 1, height 10

	// A short item fits the first (taller) shelf's remaining width.
	x, y, _ := p.Pack(10, 10)
	if x != 30 || y != 0 {
		t.Errorf("expected first-fit at (30,0), got (%d,%d)", x, y)
	}
}

func TestShelfPacker_ExtendLastShelf(t *testing.T) {
	p := NewShelfPacker(100, 100, 100)

	p.Pack(10, 10)
	x, y, _ := p.Pack(10, 30)
	if x != 10 || y != 0 {
		t.Errorf("expected last shelf to grow, got (%d,%d)", x, y)
	}

	_, y, _ = p.Pack(10, 10)
	if y != 0 {
		t.Errorf("expected item on extended shelf, got y=%d", y)
	}
	_, y, _ = p.Pack(100, 5)
	if y != 30 {
		t.Errorf("expected new shelf below extended shelf at 30, got %d", y)
	}
}

func TestShelfPacker_FreeReuse(t *testing.T) {
	p := NewShelfPacker(64, 64, 64)

	p.Pack(20, 20)
	x, y, _ := p.Pack(20, 20)
	p.Pack(20, 20)

	p.Free(x, y, 20, 20)

	nx, ny, err := p.Pack(18, 18)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if nx != x || ny != y {
		t.Errorf("expected freed span (%d,%d) to be reused, got (%d,%d)", x, y, nx, ny)
	}
}

func TestShelfPacker_FreeMergesSpans(t *testing.T) {
	p := NewShelfPacker(64, 64, 64)

	a, _, _ := p.Pack(10, 10)
	b, _, _ := p.Pack(10, 10)
	p.Pack(10, 10)

	p.Free(a, 0, 10, 10)
	p.Free(b, 0, 10, 10)

	x, y, _ := p.Pack(20, 10)
	if x != 0 || y != 0 {
		t.Errorf("expected merged span at (0,0), got (%d,%d)", x, y)
	}
}

func TestShelfPacker_FreeDropsTrailingShelf(t *testing.T) {
	p := NewShelfPacker(64, 64, 64)

	p.Pack(64, 10)
	x, y, _ := p.Pack(10, 30)
	if p.ShelfCount() != 2 {
		t.Fatalf("ShelfCount() = %d, want 2", p.ShelfCount())
	}

	p.Free(x, y, 10, 30)
	if p.ShelfCount() != 1 {
		t.Errorf("ShelfCount() after free = %d, want 1", p.ShelfCount())
	}
	if p.Count() != 1 {
		t.Errorf("Count() = %d, want 1", p.Count())
	}
}

func TestShelfPacker_Grow(t *testing.T) {
	p := NewShelfPacker(64, 64, 1024)

	if _, _, err := p.Pack(100, 10); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	w, h := p.Size()
	if w != 128 || h != 64 {
		t.Errorf("Size() = %dx%d, want 128x64", w, h)
	}

	// Too wide for the first shelf and too tall for a new one at 64.
	if _, _, err := p.Pack(128, 60); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	w, h = p.Size()
	if w != 128 || h != 128 {
		t.Errorf("Size() = %dx%d, want 128x128", w, h)
	}
}

func TestShelfPacker_Full(t *testing.T) {
	p := NewShelfPacker(32, 32, 64)

	count := 0
	for {
		_, _, err := p.Pack(32, 32)
		if err != nil {
			if !errors.Is(err, ErrAtlasFull) {
				t.Fatalf("Pack() error = %v, want ErrAtlasFull", err)
			}
			break
		}
		count++
		if count > 100 {
			t.Fatal("packer never filled up")
		}
	}
	if count != 4 {
		t.Errorf("packed %d items, want 4", count)
	}

	if _, _, err := p.Pack(65, 1); !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Pack(65,1) error = %v, want ErrAtlasFull", err)
	}
}

func TestShelfPacker_InvalidSize(t *testing.T) {
	p := NewShelfPacker(32, 32, 32)
	if _, _, err := p.Pack(0, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Pack(0,10) error = %v, want ErrInvalidDimensions", err)
	}
}

func TestShelfPacker_Reset(t *testing.T) {
	p := NewShelfPacker(64, 64, 64)
	p.Pack(10, 10)
	p.Pack(10, 10)

	p.Reset()
	if p.Count() != 0 || p.UsedArea() != 0 || p.ShelfCount() != 0 {
		t.Errorf("Reset() left count=%d area=%d shelves=%d", p.Count(), p.UsedArea(), p.ShelfCount())
	}
	if p.Utilization() != 0 {
		t.Errorf("Utilization() = %v, want 0", p.Utilization())
	}
}

func TestShelfPacker_RandomNoOverlap(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p := NewShelfPacker(64, 64, 4096)
	live := make([]rect, 0, 256)

	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rng.IntN(3) == 0 {
			k := rng.IntN(len(live))
			r := live[k]
			p.Free(r.x, r.y, r.w, r.h)
			live = append(live[:k], live[k+1:]...)
			continue
		}

		w, h := 1+rng.IntN(40), 1+rng.IntN(40)
		x, y, err := p.Pack(w, h)
		if err != nil {
			t.Fatalf("Pack(%d,%d) error = %v", w, h, err)
		}
		nr := rect{x, y, w, h}
		pw, ph := p.Size()
		if x < 0 || y < 0 || x+w > pw || y+h > ph {
			t.Fatalf("rect %+v outside %dx%d", nr, pw, ph)
		}
		for _, r := range live {
			if r.overlaps(nr) {
				t.Fatalf("rect %+v overlaps %+v", nr, r)
			}
		}
		live = append(live, nr)
	}

	if p.Count() != len(live) {
		t.Errorf("Count() = %d, want %d", p.Count(), len(live))
	}
}
