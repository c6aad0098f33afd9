// Package termination implements the process-wide cooperative stop flag.
// Workers read it with a lock-free atomic load on each iteration, never
// under the search mutex; a read that misses a concurrent Set delays
// stop by at most one iteration, which is acceptable. Writes happen at
// most once per process lifetime.
package termination

import "sync/atomic"

// Controller holds the global terminate flag. The zero value is ready to
// use (not set).
type Controller struct {
	flag atomic.Bool
}

// New returns a fresh, unset Controller.
func New() *Controller {
	return &Controller{}
}

// Set raises the terminate flag. Idempotent; safe to call more than once,
// though the spec's model assumes it happens at most once per run.
func (c *Controller) Set() {
	c.flag.Store(true)
}

// Terminated reports whether Set has been called.
func (c *Controller) Terminated() bool {
	return c.flag.Load()
}
