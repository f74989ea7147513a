// Package cache provides a thread-safe LRU cache bounded by the total cost of
// its entries.
//
//	c := cache.New[string, *atlas.Bitmap](4 << 20)
//	c.Set("marker", bm, bm.Bytes())
//	bm, ok := c.Get("marker")
//
// Each entry carries a caller-supplied cost (bytes for bitmaps). When the total
// exceeds the limit, least recently used entries are dropped until it fits
// again. An entry whose cost alone exceeds the limit is not stored.
package cache
