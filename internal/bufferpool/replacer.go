package bufferpool

import (
	"fmt"

	"github.com/tuannm99/novastore/internal/storage"
	"github.com/tuannm99/novastore/pkg/clockx"
	"github.com/tuannm99/novastore/pkg/lrux"
)

// Replacer chooses a victim among frames whose pin count is zero.
// The pool calls RecordAccess every time a frame's pin count drops to zero,
// so "access" order is unpin order.
type Replacer interface {
	RecordAccess(frameID storage.FrameID)
	SetEvictable(frameID storage.FrameID, evictable bool)
	Evict() (frameID storage.FrameID, ok bool)
	Remove(frameID storage.FrameID)
	Size() int
}

const (
	ReplacerLRU   = "lru"
	ReplacerClock = "clock"
)

// NewReplacer builds a replacer by policy name. An empty name means LRU.
func NewReplacer(policy string, capacity int) (Replacer, error) {
	switch policy {
	case "", ReplacerLRU:
		return newLRUAdapter(capacity), nil
	case ReplacerClock:
		return newClockAdapter(capacity), nil
	default:
		return nil, fmt.Errorf("bufferpool: unknown replacer %q", policy)
	}
}

type lruAdapter struct {
	l *lrux.LRU
}

func newLRUAdapter(capacity int) Replacer {
	return &lruAdapter{l: lrux.New(capacity)}
}

func (a *lruAdapter) RecordAccess(frameID storage.FrameID) {
	a.l.Touch(int(frameID))
}

func (a *lruAdapter) SetEvictable(frameID storage.FrameID, e bool) {
	a.l.SetEvictable(int(frameID), e)
}

func (a *lruAdapter) Evict() (storage.FrameID, bool) {
	id, ok := a.l.Evict()
	return storage.FrameID(id), ok
}

func (a *lruAdapter) Remove(frameID storage.FrameID) {
	a.l.Remove(int(frameID))
}

func (a *lruAdapter) Size() int {
	return a.l.Size()
}

type clockAdapter struct {
	c *clockx.Clock
}

func newClockAdapter(capacity int) Replacer {
	return &clockAdapter{c: clockx.New(capacity)}
}

func (a *clockAdapter) RecordAccess(frameID storage.FrameID) {
	a.c.Touch(int(frameID))
}

func (a *clockAdapter) SetEvictable(frameID storage.FrameID, e bool) {
	a.c.SetEvictable(int(frameID), e)
}

func (a *clockAdapter) Evict() (storage.FrameID, bool) {
	id, ok := a.c.Evict()
	return storage.FrameID(id), ok
}

func (a *clockAdapter) Remove(frameID storage.FrameID) {
	a.c.Remove(int(frameID))
}

func (a *clockAdapter) Size() int {
	return a.c.Size()
}
