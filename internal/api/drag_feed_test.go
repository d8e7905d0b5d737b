package api

import (
	"testing"

	"github.com/portfolio-collage/backend/internal/dragstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDragFeed_KeepsLatestState(t *testing.T) {
	store := dragstate.New()
	feed := newDragFeed()
	unsubscribe := store.Subscribe(feed.push)
	defer unsubscribe()

	// Nobody reads while these land; only the newest survives.
	store.StartDragging(1)
	store.StartDragging(4)
	store.StopDragging(1)

	select {
	case st := <-feed.C():
		assert.Equal(t, []int{4}, st.Indices())
	default:
		require.Fail(t, "feed is empty")
	}

	select {
	case st := <-feed.C():
		assert.Failf(t, "unexpected extra state", "%v", st.Indices())
	default:
	}

	store.Reset()
	st := <-feed.C()
	assert.Empty(t, st.Indices())
}
