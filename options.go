package sprite

import "github.com/gogpu/sprite/actor"

// Option configures a Manager during creation.
//
// Example:
//
//	m, err := sprite.NewManager(
//	    sprite.WithObserver(p),
//	    sprite.WithScheduler(loop),
//	)
type Option func(*options)

// options holds optional configuration for Manager creation.
type options struct {
	config    Config
	observer  Observer
	scheduler actor.Scheduler
	metrics   *Collector
}

// defaultOptions returns the default manager options.
func defaultOptions() options {
	return options{
		config:   DefaultConfig(),
		observer: NopObserver{},
	}
}

// WithConfig replaces the default configuration.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithObserver sets the collaborator notified of missing and unused images.
// A nil observer restores NopObserver.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs == nil {
			obs = NopObserver{}
		}
		o.observer = obs
	}
}

// WithScheduler sets the scheduler that owns the Manager.
//
// The done callbacks handed to the observer then post back to s instead of
// mutating the Manager on the caller's goroutine, so an observer may call
// them from any goroutine.
func WithScheduler(s actor.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithMetrics records manager activity in c.
func WithMetrics(c *Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}
