package atlas

import (
	"image"

	"golang.org/x/image/draw"
)

// BytesPerPixel is the size of one premultiplied RGBA pixel.
const BytesPerPixel = 4

// Bitmap is a premultiplied RGBA pixel buffer.
//
// Rows are tightly packed: the stride is always Width*4. The layout matches
// [image.RGBA], so a Bitmap can be handed to the standard image packages
// without copying via [Bitmap.RGBA].
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// NewBitmap creates a transparent bitmap of the given size.
func NewBitmap(width, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Bitmap{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}, nil
}

// BitmapFromPix wraps existing premultiplied RGBA data without copying.
// The caller must not modify data afterwards.
func BitmapFromPix(width, height int, data []byte) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	n := width * height * BytesPerPixel
	if len(data) < n {
		return nil, ErrDataTooSmall
	}
	return &Bitmap{Width: width, Height: height, Pix: data[:n]}, nil
}

// BitmapFromImage converts any image into a premultiplied bitmap.
// The bounds origin of src is mapped to (0, 0).
func BitmapFromImage(src image.Image) (*Bitmap, error) {
	b := src.Bounds()
	bm, err := NewBitmap(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	// image.RGBA is premultiplied, so Src compositing yields premultiplied
	// pixels regardless of the source color model.
	draw.Draw(bm.RGBA(), bm.RGBA().Bounds(), src, b.Min, draw.Src)
	return bm, nil
}

// RGBA returns an image.RGBA view sharing the bitmap's pixels.
func (b *Bitmap) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Bytes returns the size of the pixel data in bytes.
func (b *Bitmap) Bytes() int {
	if b == nil {
		return 0
	}
	return b.Width * b.Height * BytesPerPixel
}

// IsEmpty reports whether the bitmap has no pixels.
func (b *Bitmap) IsEmpty() bool {
	return b == nil || b.Width <= 0 || b.Height <= 0 || len(b.Pix) < b.Bytes()
}

// Fill sets every byte of the bitmap to v.
func (b *Bitmap) Fill(v byte) {
	for i := range b.Pix {
		b.Pix[i] = v
	}
}

// Clone creates a deep copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap {
	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)
	return &Bitmap{Width: b.Width, Height: b.Height, Pix: pix}
}

// Scaled returns a copy resampled to width x height.
// Downscaling uses Catmull-Rom, upscaling uses approximate bilinear filtering.
func (b *Bitmap) Scaled(width, height int) (*Bitmap, error) {
	dst, err := NewBitmap(width, height)
	if err != nil {
		return nil, err
	}
	var scaler draw.Scaler = draw.CatmullRom
	if width > b.Width || height > b.Height {
		scaler = draw.ApproxBiLinear
	}
	src := b.RGBA()
	scaler.Scale(dst.RGBA(), dst.RGBA().Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// copyRect copies a w x h block from src at (sx, sy) to dst at (dx, dy).
// Both rectangles must be inside their bitmaps.
func copyRect(dst *Bitmap, dx, dy int, src *Bitmap, sx, sy, w, h int) {
	rowBytes := w * BytesPerPixel
	for row := 0; row < h; row++ {
		so := ((sy+row)*src.Width + sx) * BytesPerPixel
		do := ((dy+row)*dst.Width + dx) * BytesPerPixel
		copy(dst.Pix[do:do+rowBytes], src.Pix[so:so+rowBytes])
	}
}

// clearRect zeroes a w x h block of b at (x, y).
func clearRect(b *Bitmap, x, y, w, h int) {
	rowBytes := w * BytesPerPixel
	for row := 0; row < h; row++ {
		o := ((y+row)*b.Width + x) * BytesPerPixel
		clear(b.Pix[o : o+rowBytes])
	}
}
