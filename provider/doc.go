// Package provider supplies missing images to a sprite.Manager from an
// asynchronous source.
//
// A [Provider] implements [sprite.Observer]. When the manager reports a
// missing image, the provider fetches it on its own goroutine and posts the
// result back to the manager's actor, then completes the notification. Fetches
// of the same id are collapsed, bounded in concurrency and rate limited, and
// fetched images are kept in a byte-bounded cache so an evicted image can come
// back without another fetch.
//
//	loop := actor.NewRunLoop()
//	m, _ := sprite.NewManager()
//	mgr := actor.New(loop, m)
//
//	p, _ := provider.New(fetcher, mgr.Self(), provider.DefaultConfig())
//	defer p.Close()
//	m.SetObserver(p)
package provider
