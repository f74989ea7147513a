package sprite

import (
	"fmt"
	"math"

	"github.com/gogpu/sprite/atlas"
)

// ImageType is the role an image plays in a dependency set.
type ImageType uint8

const (
	// ImageTypeIcon is a standalone image drawn once.
	ImageTypeIcon ImageType = iota

	// ImageTypePattern is an image repeated as a fill. Patterns are packed
	// with a wrapped border so tiling does not show seams.
	ImageTypePattern
)

// String returns the type name.
func (t ImageType) String() string {
	switch t {
	case ImageTypeIcon:
		return "icon"
	case ImageTypePattern:
		return "pattern"
	default:
		return fmt.Sprintf("ImageType(%d)", t)
	}
}

// Stretch is a horizontal or vertical range, in bitmap pixels, that may be
// stretched when the image is scaled to fit content.
type Stretch struct {
	From float32
	To   float32
}

// Content is the area, in bitmap pixels, where content placed on top of a
// stretchable image goes.
type Content struct {
	Left, Top, Right, Bottom float32
}

// Image is an immutable bitmap with its metadata.
//
// Once passed to a Manager, an Image and its Bitmap must not be modified.
// Updating an image means storing a new Image under the same ID.
type Image struct {
	ID         string
	Bitmap     *atlas.Bitmap
	PixelRatio float32
	Type       ImageType
	SDF        bool

	StretchX []Stretch
	StretchY []Stretch
	Content  *Content
}

// NewImage creates an icon image with no stretch metadata.
func NewImage(id string, bm *atlas.Bitmap, pixelRatio float32) *Image {
	return &Image{ID: id, Bitmap: bm, PixelRatio: pixelRatio}
}

// Validate checks if the image can be stored.
func (img *Image) Validate() error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if img.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidImage)
	}
	if img.Bitmap.IsEmpty() {
		return fmt.Errorf("%w: %q has no pixels", ErrInvalidImage, img.ID)
	}
	if !(img.PixelRatio > 0) {
		return fmt.Errorf("%w: %q pixel ratio %v", ErrInvalidImage, img.ID, img.PixelRatio)
	}

	w, h := float32(img.Bitmap.Width), float32(img.Bitmap.Height)
	for _, s := range img.StretchX {
		if s.From < 0 || s.To > w || s.From > s.To {
			return fmt.Errorf("%w: %q stretchX [%v, %v] outside width %v", ErrInvalidImage, img.ID, s.From, s.To, w)
		}
	}
	for _, s := range img.StretchY {
		if s.From < 0 || s.To > h || s.From > s.To {
			return fmt.Errorf("%w: %q stretchY [%v, %v] outside height %v", ErrInvalidImage, img.ID, s.From, s.To, h)
		}
	}
	if c := img.Content; c != nil {
		if c.Left < 0 || c.Top < 0 || c.Right > w || c.Bottom > h || c.Left > c.Right || c.Top > c.Bottom {
			return fmt.Errorf("%w: %q content box outside bitmap", ErrInvalidImage, img.ID)
		}
	}
	return nil
}

// Bytes returns the size of the image's pixel data.
func (img *Image) Bytes() int {
	return img.Bitmap.Bytes()
}

// Rescaled returns a copy of img resampled to pixelRatio. The display size
// is kept, and stretch and content metadata are scaled along. img is
// returned unchanged if it already has that ratio.
func (img *Image) Rescaled(pixelRatio float32) (*Image, error) {
	if !(pixelRatio > 0) {
		return nil, fmt.Errorf("%w: target pixel ratio %v", ErrInvalidImage, pixelRatio)
	}
	if img.PixelRatio == pixelRatio {
		return img, nil
	}

	f := pixelRatio / img.PixelRatio
	w := max(int(math.Round(float64(float32(img.Bitmap.Width)*f))), 1)
	h := max(int(math.Round(float64(float32(img.Bitmap.Height)*f))), 1)
	bm, err := img.Bitmap.Scaled(w, h)
	if err != nil {
		return nil, fmt.Errorf("sprite: rescale %q: %w", img.ID, err)
	}
	fx := float32(w) / float32(img.Bitmap.Width)
	fy := float32(h) / float32(img.Bitmap.Height)

	out := *img
	out.Bitmap = bm
	out.PixelRatio = pixelRatio
	out.StretchX = scaleStretches(img.StretchX, fx)
	out.StretchY = scaleStretches(img.StretchY, fy)
	if c := img.Content; c != nil {
		out.Content = &Content{Left: c.Left * fx, Top: c.Top * fy, Right: c.Right * fx, Bottom: c.Bottom * fy}
	}
	return &out, nil
}

func scaleStretches(in []Stretch, f float32) []Stretch {
	if in == nil {
		return nil
	}
	out := make([]Stretch, len(in))
	for i, s := range in {
		out[i] = Stretch{From: s.From * f, To: s.To * f}
	}
	return out
}

// ImageMap maps image ids to images.
type ImageMap map[string]*Image

// VersionMap maps image ids to their version in the store.
type VersionMap map[string]uint32

// ImageDependencies is the set of images a requestor needs, with the role
// each one plays.
type ImageDependencies map[string]ImageType

// ImageRequest is one submission of a dependency set.
type ImageRequest struct {
	Dependencies  ImageDependencies
	CorrelationID uint64
}

// ImagePosition locates a stored image in the packed atlas.
type ImagePosition struct {
	// TL and BR bound the bitmap inside the atlas, padding excluded.
	// BR is exclusive.
	TL [2]int
	BR [2]int

	PixelRatio float32
	Version    uint32

	StretchX []Stretch
	StretchY []Stretch
	Content  *Content
}

// DisplaySize returns the image size in logical units.
func (p ImagePosition) DisplaySize() [2]float32 {
	return [2]float32{
		float32(p.BR[0]-p.TL[0]) / p.PixelRatio,
		float32(p.BR[1]-p.TL[1]) / p.PixelRatio,
	}
}

// entry is a stored image with its packing state.
type entry struct {
	image   *Image
	region  atlas.Region
	version uint32
}

func (e *entry) position() ImagePosition {
	tlx, tly := e.region.TL()
	brx, bry := e.region.BR()
	return ImagePosition{
		TL:         [2]int{tlx, tly},
		BR:         [2]int{brx, bry},
		PixelRatio: e.image.PixelRatio,
		Version:    e.version,
		StretchX:   e.image.StretchX,
		StretchY:   e.image.StretchY,
		Content:    e.image.Content,
	}
}
