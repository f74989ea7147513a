// Package sprite manages images shared by a rendering pipeline: it packs
// them into a single texture atlas, resolves which images each consumer
// needs, asks an external provider for missing ones, and releases on-demand
// images under memory pressure.
//
// # Overview
//
// A [Manager] owns an image store and the packed [atlas.Atlas] behind it.
// Consumers register as a [Requestor] and submit dependency sets with
// [Manager.GetImages]. A set that can be answered from the store is delivered
// at once. Otherwise each absent image is reported to the [Observer], which
// may add it with [Manager.AddImage] and then calls the done callback it was
// given. Once every image of a set has been resolved the set is delivered to
// the consumer, containing the images that are present.
//
//	m, _ := sprite.NewManager(sprite.WithObserver(obs))
//	r := m.NewRequestor(sprite.ConsumerFunc(func(icons, patterns sprite.ImageMap, v sprite.VersionMap, id uint64) {
//	    // draw with icons and patterns
//	}))
//	defer r.Close()
//
//	m.SetLoaded(true)
//	m.GetImages(r, sprite.ImageRequest{
//	    Dependencies:  sprite.ImageDependencies{"marker": sprite.ImageTypeIcon},
//	    CorrelationID: 1,
//	})
//
// # Correlation IDs
//
// Every submission carries a correlation id. A new submission supersedes the
// previous one of the same requestor, and deliveries scheduled for an older
// id are dropped. There is no cancellation beyond that and no timeout: a set
// stays pending until resolved, superseded, or its requestor is closed.
//
// # Memory Pressure
//
// Images added in answer to a missing-image notification are on-demand
// images. [Manager.CheckCacheSizeReduceMemoryUse] offers the unused ones to
// the observer once stored bitmaps exceed the configured soft limit;
// [Manager.ReduceMemoryUse] does so unconditionally. Images still part of a
// live dependency set are never offered.
//
// # Threading
//
// A Manager is confined to one goroutine. The [actor] package provides the
// mailboxes and schedulers used to reach it from others: run the manager on
// an [actor.RunLoop] or inside an [actor.Actor], and configure
// [WithScheduler] so done callbacks called from provider goroutines post
// back to it.
//
// # Logging
//
// sprite produces no log output by default. Call [SetLogger] to enable it.
package sprite
