// Package atlas packs premultiplied bitmaps into a single growable pixel buffer.
//
// # Overview
//
// An [Atlas] owns one RGBA buffer and a [ShelfPacker] that assigns every stored
// bitmap a non-overlapping [Region]. Each region carries a padding border
// (1 pixel by default) so that texture filtering never samples a neighbouring
// image.
//
// The packer organizes the buffer in horizontal shelves. A new rectangle goes
// into the first shelf that is tall enough and has room, either in a span freed
// by an earlier removal or at the end of the shelf. When nothing fits, a new
// shelf is opened below the last one and the buffer doubles in height (or width)
// as needed, up to [Config.MaxSize].
//
//	a, _ := atlas.New(atlas.DefaultConfig())
//	bm, _ := atlas.NewBitmap(16, 16)
//	r, _ := a.Add(bm, false)
//	x, y := r.TL() // (1, 1)
//
// # Thread Safety
//
// Atlas and ShelfPacker are not safe for concurrent use. They are owned by a
// single goroutine; other goroutines read the pixels through [Atlas.Snapshot].
package atlas
