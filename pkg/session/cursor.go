package session

import (
	"container/list"
	"sync"

	"github.com/maksgranko/selkies/pkg/protocol"
)

// CursorEvent is delivered when the remote changes its cursor shape.
// Data is the base64 PNG of the rendered cursor, resolved through the
// cache when the server sends a bare handle.
type CursorEvent struct {
	Handle   int
	Data     string
	HotspotX int
	HotspotY int
	Override string
}

// cursorCache is an LRU of cursor handle to rendered cursor. Distinct
// cursor shapes over a long session are finite but not zero-growth, so
// the cache is bounded with least-recently-used eviction.
type cursorCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recent, values are cursorEntry
	entries  map[int]*list.Element
}

type cursorEntry struct {
	handle int
	event  CursorEvent
}

func newCursorCache(capacity int) *cursorCache {
	if capacity <= 0 {
		capacity = 32
	}
	return &cursorCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[int]*list.Element),
	}
}

// Resolve turns a cursor payload into an event, consulting the cache when
// the server sent only a handle and inserting when it sent image data.
func (c *cursorCache) Resolve(data protocol.CursorData) (CursorEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data.Curdata == "" {
		elem, ok := c.entries[data.Handle]
		if !ok {
			return CursorEvent{Handle: data.Handle}, false
		}
		c.order.MoveToFront(elem)
		return elem.Value.(cursorEntry).event, true
	}

	event := CursorEvent{
		Handle:   data.Handle,
		Data:     data.Curdata,
		HotspotX: data.Hotspot.X,
		HotspotY: data.Hotspot.Y,
		Override: data.Override,
	}
	if elem, ok := c.entries[data.Handle]; ok {
		elem.Value = cursorEntry{handle: data.Handle, event: event}
		c.order.MoveToFront(elem)
		return event, true
	}

	c.entries[data.Handle] = c.order.PushFront(cursorEntry{handle: data.Handle, event: event})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(cursorEntry).handle)
	}
	return event, true
}

// Len returns the number of cached cursors.
func (c *cursorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops all cached cursors.
func (c *cursorCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[int]*list.Element)
}
