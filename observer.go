package sprite

// Observer is the external collaborator that supplies missing images and
// decides which unused images to drop.
type Observer interface {
	// OnStyleImageMissing is called at most once per id while a provider
	// request for it is outstanding. The observer may add the image with
	// AddImage and must eventually call done, with or without the image.
	OnStyleImageMissing(id string, done func())

	// OnRemoveUnusedStyleImages offers on-demand images no requestor
	// depends on. The observer removes any subset with RemoveImage.
	OnRemoveUnusedStyleImages(ids []string)
}

// NopObserver supplies nothing and keeps everything.
type NopObserver struct{}

// OnStyleImageMissing calls done immediately.
func (NopObserver) OnStyleImageMissing(_ string, done func()) { done() }

// OnRemoveUnusedStyleImages does nothing.
func (NopObserver) OnRemoveUnusedStyleImages([]string) {}

// Consumer receives resolved dependency sets.
type Consumer interface {
	// OnImagesAvailable delivers the images of a satisfied request. Only
	// images present in the store are included; icons and patterns are split
	// by the type requested for each id.
	OnImagesAvailable(icons, patterns ImageMap, versions VersionMap, correlationID uint64)
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(icons, patterns ImageMap, versions VersionMap, correlationID uint64)

// OnImagesAvailable calls f.
func (f ConsumerFunc) OnImagesAvailable(icons, patterns ImageMap, versions VersionMap, correlationID uint64) {
	f(icons, patterns, versions, correlationID)
}
