// Package draft holds an in-memory field map for one open form and flushes
// the whole map to a Flusher once edits go quiet.
package draft

import (
	"context"
	"sync"
	"time"

	"ipurpose/api/internal/forms"
	"ipurpose/api/internal/logger"
)

const (
	DefaultQuietPeriod  = 700 * time.Millisecond
	DefaultFlushTimeout = 10 * time.Second
)

// Flusher persists a complete field map.
type Flusher interface {
	Flush(ctx context.Context, fields forms.FieldMap) error
}

// FlushFunc adapts a function to Flusher.
type FlushFunc func(ctx context.Context, fields forms.FieldMap) error

func (f FlushFunc) Flush(ctx context.Context, fields forms.FieldMap) error {
	return f(ctx, fields)
}

type Option func(*Controller)

func WithQuietPeriod(d time.Duration) Option {
	return func(c *Controller) { c.quiet = d }
}

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithFlushTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithOnFlush registers a hook called after every flush attempt with the
// payload that was sent and the flush error, if any.
func WithOnFlush(fn func(fields forms.FieldMap, err error)) Option {
	return func(c *Controller) { c.onFlush = fn }
}

// WithForm labels log lines with the form key.
func WithForm(key string) Option {
	return func(c *Controller) { c.form = key }
}

// Controller is the per-form draft state. Create one when a form opens and
// Close it when the form is left.
type Controller struct {
	mu         sync.Mutex
	fields     forms.FieldMap
	timer      Timer
	generation uint64
	closed     bool

	// flushMu keeps flushes in issue order when one is slower than the
	// quiet period.
	flushMu sync.Mutex

	flusher Flusher
	clock   Clock
	quiet   time.Duration
	timeout time.Duration
	onFlush func(forms.FieldMap, error)
	form    string
}

func New(flusher Flusher, opts ...Option) *Controller {
	c := &Controller{
		fields:  forms.FieldMap{},
		flusher: flusher,
		clock:   realClock{},
		quiet:   DefaultQuietPeriod,
		timeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the map with server state without scheduling a flush.
func (c *Controller) Load(fields forms.FieldMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields = clone(fields)
}

// SetField replaces one value and restarts the quiet period. Calls after
// Close are ignored.
func (c *Controller) SetField(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.fields[key] = value
	if c.timer != nil {
		c.timer.Stop()
	}
	c.generation++
	gen := c.generation
	c.timer = c.clock.AfterFunc(c.quiet, func() { c.fire(gen) })
}

// Value returns the current value of one key.
func (c *Controller) Value(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields[key]
}

// Snapshot returns a copy of the current map.
func (c *Controller) Snapshot() forms.FieldMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.fields)
}

// Pending reports whether an edit is waiting for its quiet period.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Close cancels any pending flush. An edit still inside its quiet period
// is dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		logger.Debug("draft closed with pending edit", "form", c.form)
	}
	c.generation++
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	payload := clone(c.fields)
	c.mu.Unlock()

	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	err := c.flusher.Flush(ctx, payload)
	if err != nil {
		logger.Warn("draft flush failed", "form", c.form, "keys", len(payload), "err", err)
	} else {
		logger.Debug("draft flushed", "form", c.form, "keys", len(payload))
	}
	if c.onFlush != nil {
		c.onFlush(payload, err)
	}
}

func clone(fields forms.FieldMap) forms.FieldMap {
	out := make(forms.FieldMap, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
