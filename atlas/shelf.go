package atlas

import (
	"slices"
	"sort"
)

// ShelfPacker implements shelf-based rectangle packing with reuse of freed space.
//
// The packer organizes rectangles in horizontal "shelves". Each shelf has a
// height fixed by the tallest item placed when it was opened (the last shelf
// may still grow taller). Items are placed left-to-right; removing an item
// returns its horizontal span to the shelf's free list, where it can be reused
// by any item of equal or smaller size.
//
// Placement is first-fit over shelves in top-to-bottom order. This bounds the
// search to O(shelves + free spans) at the cost of some fragmentation.
//
// When no shelf fits, a new shelf is opened below the last one. If the new
// shelf does not fit either, the packer grows: the height doubles first, then
// the width, never beyond maxSize.
type ShelfPacker struct {
	width   int
	height  int
	maxSize int
	shelves []shelf

	// Tracking for utilization
	usedArea int
	count    int
}

// shelf represents a horizontal strip in the atlas.
type shelf struct {
	y      int    // Y position of shelf top
	height int    // Height of the shelf
	x      int    // End of the allocated run (next free slot at the end)
	free   []span // Freed spans below x, sorted by x, never adjacent
}

// span is a free horizontal interval on a shelf.
type span struct {
	x int
	w int
}

// NewShelfPacker creates a packer for a width x height area that may grow up
// to maxSize in either dimension.
func NewShelfPacker(width, height, maxSize int) *ShelfPacker {
	if maxSize < width {
		maxSize = width
	}
	if maxSize < height {
		maxSize = height
	}
	return &ShelfPacker{
		width:   width,
		height:  height,
		maxSize: maxSize,
		shelves: make([]shelf, 0, 16),
	}
}

// Pack reserves a w x h rectangle and returns its top-left corner.
// The packer may grow to make room; callers detect growth through Size.
// Returns ErrAtlasFull if the rectangle cannot be placed within maxSize.
func (p *ShelfPacker) Pack(w, h int) (x, y int, err error) {
	if w <= 0 || h <= 0 {
		return -1, -1, ErrInvalidDimensions
	}
	if w > p.maxSize || h > p.maxSize {
		return -1, -1, ErrAtlasFull
	}

	for {
		if x, y, ok := p.place(w, h); ok {
			p.usedArea += w * h
			p.count++
			return x, y, nil
		}
		if !p.grow(w) {
			return -1, -1, ErrAtlasFull
		}
	}
}

// place tries to fit the rectangle without growing.
func (p *ShelfPacker) place(w, h int) (x, y int, ok bool) {
	for i := range p.shelves {
		s := &p.shelves[i]

		if h > s.height {
			// Only the last shelf can become taller: nothing sits below it.
			if i == len(p.shelves)-1 && s.y+h <= p.height && s.x+w <= p.width {
				s.height = h
				x = s.x
				s.x += w
				return x, s.y, true
			}
			continue
		}

		for j := range s.free {
			sp := &s.free[j]
			if sp.w < w {
				continue
			}
			x = sp.x
			sp.x += w
			sp.w -= w
			if sp.w == 0 {
				s.free = slices.Delete(s.free, j, j+1)
			}
			return x, s.y, true
		}

		if s.x+w <= p.width {
			x = s.x
			s.x += w
			return x, s.y, true
		}
	}

	// No existing shelf works - try to open a new one
	y = p.bottom()
	if y+h > p.height || w > p.width {
		return -1, -1, false
	}
	p.shelves = append(p.shelves, shelf{y: y, height: h, x: w})
	return 0, y, true
}

// grow enlarges the packing area. Returns false once both dimensions are at
// maxSize.
func (p *ShelfPacker) grow(w int) bool {
	if w > p.width {
		nw := p.width
		for nw < w {
			nw *= 2
		}
		p.width = min(nw, p.maxSize)
		return true
	}
	if p.height < p.maxSize {
		p.height = min(p.height*2, p.maxSize)
		return true
	}
	if p.width < p.maxSize {
		p.width = min(p.width*2, p.maxSize)
		return true
	}
	return false
}

// bottom returns the Y coordinate below the last shelf.
func (p *ShelfPacker) bottom() int {
	if len(p.shelves) == 0 {
		return 0
	}
	last := p.shelves[len(p.shelves)-1]
	return last.y + last.height
}

// Free returns a previously packed rectangle to its shelf.
// Freeing a rectangle that was never packed corrupts the packer.
func (p *ShelfPacker) Free(x, y, w, h int) {
	i := sort.Search(len(p.shelves), func(k int) bool { return p.shelves[k].y >= y })
	if i == len(p.shelves) || p.shelves[i].y != y {
		return
	}

	p.shelves[i].release(x, w)
	p.usedArea -= w * h
	p.count--

	// Drop empty trailing shelves so their height can be reused.
	for n := len(p.shelves); n > 0 && p.shelves[n-1].x == 0; n = len(p.shelves) {
		p.shelves = p.shelves[:n-1]
	}
}

// release inserts [x, x+w) into the free list, merging neighbours.
func (s *shelf) release(x, w int) {
	j := sort.Search(len(s.free), func(k int) bool { return s.free[k].x > x })
	s.free = slices.Insert(s.free, j, span{x: x, w: w})

	if j+1 < len(s.free) && s.free[j].x+s.free[j].w == s.free[j+1].x {
		s.free[j].w += s.free[j+1].w
		s.free = slices.Delete(s.free, j+1, j+2)
	}
	if j > 0 && s.free[j-1].x+s.free[j-1].w == s.free[j].x {
		s.free[j-1].w += s.free[j].w
		s.free = slices.Delete(s.free, j, j+1)
	}

	// A span touching the end of the run shortens the run instead.
	if n := len(s.free); n > 0 && s.free[n-1].x+s.free[n-1].w == s.x {
		s.x = s.free[n-1].x
		s.free = s.free[:n-1]
	}
}

// Reset clears all allocations, allowing the packer to be reused.
// The current size is kept.
func (p *ShelfPacker) Reset() {
	p.shelves = p.shelves[:0] // Keep capacity
	p.usedArea = 0
	p.count = 0
}

// Size returns the current packing area.
func (p *ShelfPacker) Size() (width, height int) {
	return p.width, p.height
}

// MaxSize returns the largest dimension the packer may grow to.
func (p *ShelfPacker) MaxSize() int {
	return p.maxSize
}

// Utilization returns the percentage of area used (0.0 to 1.0).
func (p *ShelfPacker) Utilization() float64 {
	total := p.width * p.height
	if total <= 0 {
		return 0
	}
	return float64(p.usedArea) / float64(total)
}

// UsedArea returns the total area of packed rectangles.
func (p *ShelfPacker) UsedArea() int {
	return p.usedArea
}

// Count returns the number of packed rectangles.
func (p *ShelfPacker) Count() int {
	return p.count
}

// ShelfCount returns the number of shelves currently in use.
func (p *ShelfPacker) ShelfCount() int {
	return len(p.shelves)
}
