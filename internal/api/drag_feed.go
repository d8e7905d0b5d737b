package api

import (
	"github.com/portfolio-collage/backend/internal/dragstate"
)

// dragFeed turns drag-store notifications into a one-slot channel. A
// newer state replaces one the reader has not picked up yet, so a slow
// client skips intermediate states instead of blocking the store.
type dragFeed struct {
	updates chan dragstate.State
}

func newDragFeed() *dragFeed {
	return &dragFeed{updates: make(chan dragstate.State, 1)}
}

// push is the dragstate.Subscriber. The store calls subscribers one at a
// time, so push never races with itself.
func (f *dragFeed) push(s dragstate.State) {
	select {
	case f.updates <- s:
		return
	default:
	}
	select {
	case <-f.updates:
	default:
	}
	select {
	case f.updates <- s:
	default:
	}
}

// C returns the channel carrying the latest state.
func (f *dragFeed) C() <-chan dragstate.State {
	return f.updates
}
