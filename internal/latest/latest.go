// Package latest provides a single-slot "most recent value" cell shared by
// one writer and many readers.
//
// Writers publish a whole new snapshot and readers copy the current one out;
// neither side ever blocks the other.
package latest

import (
	"sync/atomic"
	"time"
)

type snapshot[T any] struct {
	value     T
	version   uint64
	updatedAt time.Time
}

// Cell holds the latest published value of T. The zero value is an empty
// cell ready for use. T should be a value type so Load hands out copies.
type Cell[T any] struct {
	current atomic.Pointer[snapshot[T]]
	version atomic.Uint64
	now     func() time.Time
}

// New returns an empty cell.
func New[T any]() *Cell[T] {
	return &Cell[T]{}
}

// Store replaces the current value wholesale.
func (c *Cell[T]) Store(v T) {
	c.current.Store(&snapshot[T]{
		value:     v,
		version:   c.version.Add(1),
		updatedAt: c.clock(),
	})
}

// Load returns a copy of the current value, or false when nothing has been
// published yet.
func (c *Cell[T]) Load() (T, bool) {
	s := c.current.Load()
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Version returns the number of Stores so far; 0 means empty.
func (c *Cell[T]) Version() uint64 {
	s := c.current.Load()
	if s == nil {
		return 0
	}
	return s.version
}

// UpdatedAt returns when the current value was stored, or the zero time.
func (c *Cell[T]) UpdatedAt() time.Time {
	s := c.current.Load()
	if s == nil {
		return time.Time{}
	}
	return s.updatedAt
}

// Age returns how long ago the current value was stored and false when the
// cell is empty.
func (c *Cell[T]) Age() (time.Duration, bool) {
	s := c.current.Load()
	if s == nil {
		return 0, false
	}
	return c.clock().Sub(s.updatedAt), true
}

func (c *Cell[T]) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}
