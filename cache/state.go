// Package cache implements the LRU file cache MSU of spec.md §4.8: a
// bounded path->contents cache with an LRU eviction order, exposed as an
// MSU whose receive logic branches on lookup vs. store depending on
// whether the incoming message carries a body.
package cache

import "fmt"

type entry struct {
	path     string
	contents []byte
	byteSize int64
	prev     *entry
	next     *entry
}

// State is the cache's private data: a hash map for O(1) lookup plus a
// doubly linked list for O(1) LRU reordering and eviction, matching the
// original's uthash + manual linked-list design. Touched only by the
// MSU's owning worker thread, so it carries no lock of its own (spec.md
// §9 design note: "single-owner MSU state with no lock needed").
type State struct {
	MaxFiles         int
	MaxKBSize        int64
	MaxOccupancyRate float64
	WWWDir           string

	byteSize int64
	entries  map[string]*entry
	head     *entry // least recently used
	tail     *entry // most recently used
}

// NewState returns an empty cache with the given bounds.
func NewState(maxFiles int, maxKBSize int64, maxOccupancyRate float64, wwwDir string) *State {
	return &State{
		MaxFiles:         maxFiles,
		MaxKBSize:        maxKBSize,
		MaxOccupancyRate: maxOccupancyRate,
		WWWDir:           wwwDir,
		entries:          make(map[string]*entry),
	}
}

// FileCount is the number of entries currently cached.
func (s *State) FileCount() int { return len(s.entries) }

// ByteSize is the sum of every cached entry's byte size.
func (s *State) ByteSize() int64 { return s.byteSize }

// Order returns the cached paths from LRU head (least recently used) to
// tail (most recently used), for tests and diagnostics.
func (s *State) Order() []string {
	out := make([]string, 0, len(s.entries))
	for e := s.head; e != nil; e = e.next {
		out = append(out, e.path)
	}
	return out
}

// Lookup returns path's cached contents and moves it to the LRU tail, or
// reports a miss (spec.md §4.8 "Lookup": "move its entry to the LRU
// tail").
func (s *State) Lookup(path string) ([]byte, bool) {
	e, ok := s.entries[path]
	if !ok {
		return nil, false
	}
	s.moveToTail(e)
	return e.contents, true
}

func (s *State) moveToTail(e *entry) {
	if s.tail == e {
		return
	}
	s.unlink(e)
	s.linkTail(e)
}

func (s *State) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (s *State) linkTail(e *entry) {
	e.prev = s.tail
	e.next = nil
	if s.tail != nil {
		s.tail.next = e
	}
	s.tail = e
	if s.head == nil {
		s.head = e
	}
}

// Store caches contents under path, evicting from the LRU head as
// necessary to stay within bounds (spec.md §4.8 "Store"). Returns false
// without caching if the file itself is too large to ever fit
// (too-large-to-cache, not an error: the caller still serves the
// response, it just isn't remembered).
func (s *State) Store(path string, contents []byte) (bool, error) {
	length := int64(len(contents))
	kb := float64(length) / 1024
	if kb > float64(s.MaxKBSize) || (s.MaxKBSize > 0 && kb/float64(s.MaxKBSize) > s.MaxOccupancyRate) {
		return false, nil
	}

	maxBytes := s.MaxKBSize * 1024
	for s.byteSize+length > maxBytes || len(s.entries) >= s.MaxFiles {
		if s.head == nil {
			return false, fmt.Errorf("cache: cannot evict further, head is nil (byte_size=%d, file_count=%d)",
				s.byteSize, len(s.entries))
		}
		s.evict(s.head)
	}

	if old, ok := s.entries[path]; ok {
		s.evict(old)
	}

	e := &entry{path: path, contents: contents, byteSize: length}
	s.entries[path] = e
	s.linkTail(e)
	s.byteSize += length
	return true, nil
}

func (s *State) evict(e *entry) {
	s.unlink(e)
	delete(s.entries, e.path)
	s.byteSize -= e.byteSize
}
