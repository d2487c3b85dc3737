package errors

import (
	"time"

	"github.com/google/uuid"
)

// Context describes the call site that produced an error. It is created
// fresh per call site and never mutated after construction; metadata keeps
// insertion order so log output stays deterministic.
type Context struct {
	// Component is the subsystem making the call.
	Component string `json:"component"`
	// Operation is the logical operation being performed.
	Operation string `json:"operation"`
	// Timestamp is when the context was created.
	Timestamp time.Time `json:"timestamp"`
	// CorrelationID ties related calls together. Generated if not supplied.
	CorrelationID string `json:"correlation_id,omitempty"`
	// SubjectID identifies the subject of the call (a ticker, a request id).
	SubjectID string `json:"subject_id,omitempty"`

	meta []metaField
}

type metaField struct {
	key   string
	value any
}

// NewContext creates a context for a call site with a fresh correlation ID.
func NewContext(component, operation string) *Context {
	return &Context{
		Component:     component,
		Operation:     operation,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}
}

// WithCorrelationID replaces the generated correlation ID and returns the receiver.
func (c *Context) WithCorrelationID(id string) *Context {
	c.CorrelationID = id
	return c
}

// WithSubject sets the subject ID and returns the receiver.
func (c *Context) WithSubject(id string) *Context {
	c.SubjectID = id
	return c
}

// WithMeta appends a metadata entry and returns the receiver. Entries keep
// insertion order.
func (c *Context) WithMeta(key string, value any) *Context {
	c.meta = append(c.meta, metaField{key: key, value: value})
	return c
}

// Meta returns the metadata value for key and whether it was set.
func (c *Context) Meta(key string) (any, bool) {
	for _, f := range c.meta {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

// RangeMeta calls fn for each metadata entry in insertion order.
func (c *Context) RangeMeta(fn func(key string, value any)) {
	for _, f := range c.meta {
		fn(f.key, f.value)
	}
}

// Metadata returns a copy of the metadata as a map for sinks that take one.
func (c *Context) Metadata() map[string]any {
	if len(c.meta) == 0 {
		return nil
	}
	m := make(map[string]any, len(c.meta))
	for _, f := range c.meta {
		m[f.key] = f.value
	}
	return m
}
