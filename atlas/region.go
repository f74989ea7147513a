package atlas

import "fmt"

// Region describes a packed rectangle in the atlas, padding included.
//
// X, Y, Width and Height cover the padded rectangle. The bitmap itself occupies
// the inner rectangle [TL, BR).
type Region struct {
	X       int
	Y       int
	Width   int
	Height  int
	Padding int
}

// IsValid returns true if the region has valid dimensions.
func (r Region) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// TL returns the top-left corner of the bitmap inside the region.
func (r Region) TL() (x, y int) {
	return r.X + r.Padding, r.Y + r.Padding
}

// BR returns the bottom-right corner (exclusive) of the bitmap inside the region.
func (r Region) BR() (x, y int) {
	return r.X + r.Width - r.Padding, r.Y + r.Height - r.Padding
}

// ContentSize returns the size of the bitmap stored in the region.
func (r Region) ContentSize() (w, h int) {
	return r.Width - 2*r.Padding, r.Height - 2*r.Padding
}

// Overlaps reports whether the padded rectangles of r and o intersect.
func (r Region) Overlaps(o Region) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d pad=%d)", r.X, r.Y, r.Width, r.Height, r.Padding)
}
