// Package dragstate tracks which collage images are currently being dragged.
//
// A Store is owned by one mounted collage. It holds only a boolean marker
// per image index; grab offsets and pointer history stay with the cursor
// that owns the interaction. Each marker is stamped with a generation so a
// holder can tell its own marker from one set after a reset.
package dragstate

import (
	"sort"
	"sync"
)

// State is a snapshot of the active drags, keyed by image index.
// A present key means at least one pointer is moving that image.
type State map[int]bool

// Has reports whether imageIndex is marked in the snapshot.
func (s State) Has(imageIndex int) bool {
	return s[imageIndex]
}

// Indices returns the marked image indices in ascending order.
func (s State) Indices() []int {
	out := make([]int, 0, len(s))
	for idx, active := range s {
		if active {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

func (s State) clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Subscriber receives the full drag state. The map is a private copy.
type Subscriber func(State)

// Store is an observable map from image index to "being dragged".
//
// All methods are safe for concurrent use. Subscribers are invoked
// synchronously on the goroutine that committed the mutation, in mutation
// order. A subscriber must not call back into the same Store.
type Store struct {
	// notifyMu serialises mutate+fan-out so every subscriber sees
	// snapshots in commit order.
	notifyMu sync.Mutex

	mu     sync.Mutex
	active State
	gens   map[int]uint64
	gen    uint64
	subs   map[uint64]Subscriber
	nextID uint64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		active: make(State),
		gens:   make(map[int]uint64),
		subs:   make(map[uint64]Subscriber),
	}
}

// StartDragging marks imageIndex as dragged. Repeated calls are no-ops.
// The index is not validated against any image collection.
func (s *Store) StartDragging(imageIndex int) {
	s.update(func(st State) bool {
		if st[imageIndex] {
			return false
		}
		st[imageIndex] = true
		s.gen++
		s.gens[imageIndex] = s.gen
		return true
	})
}

// StopDragging removes the marker for imageIndex. Unknown indices are a no-op.
func (s *Store) StopDragging(imageIndex int) {
	s.update(func(st State) bool {
		if _, ok := st[imageIndex]; !ok {
			return false
		}
		delete(st, imageIndex)
		delete(s.gens, imageIndex)
		return true
	})
}

// Reset clears every marker.
func (s *Store) Reset() {
	s.update(func(st State) bool {
		if len(st) == 0 {
			return false
		}
		for k := range st {
			delete(st, k)
			delete(s.gens, k)
		}
		return true
	})
}

// IsBeingDragged reports whether imageIndex is currently marked.
func (s *Store) IsBeingDragged(imageIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[imageIndex]
}

// Generation returns the stamp of the marker on imageIndex, or 0 when the
// image is not marked. Every StartDragging that sets a marker gets a new
// stamp.
func (s *Store) Generation(imageIndex int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[imageIndex]
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.clone()
}

// Len returns the number of images currently being dragged.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Active returns the dragged indices in ascending order.
func (s *Store) Active() []int {
	return s.Snapshot().Indices()
}

// Subscribe registers fn and immediately calls it with the current state.
// fn is called again after every mutation that changes the state.
// The returned function unregisters fn; calling it more than once is safe.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.notifyMu.Lock()
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	snap := s.active.clone()
	s.mu.Unlock()

	fn(snap)
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// SubscriberCount returns the number of registered subscribers.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// update applies mutate under the lock and, if it reports a change,
// fans the new state out to every subscriber.
func (s *Store) update(mutate func(State) bool) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !mutate(s.active) {
		s.mu.Unlock()
		return
	}
	subs := make([]Subscriber, 0, len(s.subs))
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	snap := s.active.clone()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap.clone())
	}
}
