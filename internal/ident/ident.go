// Package ident generates the time-derived record identifiers used across
// all collections. Ids are unix-millisecond timestamps, bumped forward when
// two records are minted inside the same millisecond so they stay unique
// and strictly increasing within a process.
package ident

import (
	"sync"
	"time"
)

type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock returns a generator with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Next returns the next unique id.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
