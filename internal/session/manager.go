package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/portfolio-collage/backend/internal/collage"
	"github.com/portfolio-collage/backend/internal/dragstate"
	"github.com/portfolio-collage/backend/internal/models"
)

// MaxSessions limits concurrently mounted collages
const MaxSessions = 64

// SessionKeepAliveWindow is how long a recently touched collage is protected from cleanup
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("collage session not found")
	ErrImageOutOfRange = errors.New("image index out of range")
	ErrTooManySessions = errors.New("too many collage sessions")
)

// EventRecorder receives drag transitions for analytics.
type EventRecorder interface {
	Record(ctx context.Context, ev models.DragEvent) error
}

// Options configures a new collage session.
type Options struct {
	Layout    collage.LayoutOptions
	Simulate  bool
	Simulator collage.SimulatorConfig
}

// DefaultOptions lays out a desktop canvas with demo cursors enabled.
func DefaultOptions() Options {
	return Options{
		Layout:    collage.DefaultLayoutOptions(),
		Simulate:  true,
		Simulator: collage.DefaultSimulatorConfig(),
	}
}

// Manager owns every mounted collage. Each collage gets its own drag
// store, which lives exactly as long as the session.
type Manager struct {
	sessions map[string]*CollageState
	mu       sync.RWMutex
	recorder EventRecorder
}

// CollageState holds one mounted collage.
type CollageState struct {
	Session      *models.CollageSession
	Drags        *dragstate.Store
	LastAccessed time.Time

	mu      sync.Mutex // guards images and cursors
	images  []models.CollageImage
	cursors []models.Cursor
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a session manager. recorder may be nil.
func NewManager(recorder EventRecorder) *Manager {
	return &Manager{
		sessions: make(map[string]*CollageState),
		recorder: recorder,
	}
}

// CreateSession mounts a new collage: lays out the images, creates its
// drag store and, if requested, starts the demo cursors.
func (m *Manager) CreateSession(sources []collage.ImageSource, opts Options) (*models.CollageSession, error) {
	m.cleanupOldSessionsIfNeeded()

	m.mu.RLock()
	full := len(m.sessions) >= MaxSessions
	m.mu.RUnlock()
	if full {
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()
	sess := models.NewCollageSession(id, opts.Layout.CanvasWidth, opts.Layout.CanvasHeight)
	images := collage.Layout(sources, opts.Layout)
	sess.ImageCount = len(images)

	state := &CollageState{
		Session:      sess,
		Drags:        dragstate.New(),
		LastAccessed: time.Now(),
		images:       images,
	}

	if opts.Simulate && opts.Simulator.MaxCursors > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		state.cancel = cancel
		state.done = make(chan struct{})
		go m.runSimulation(ctx, state, collage.NewSimulator(opts.Simulator, nil))
	}

	m.mu.Lock()
	m.sessions[id] = state
	m.mu.Unlock()

	fmt.Printf("[Collage %s] Mounted with %d images (simulate=%v)\n", shortID(id), len(images), opts.Simulate)
	return sess, nil
}

func (m *Manager) runSimulation(ctx context.Context, state *CollageState, sim *collage.Simulator) {
	defer close(state.done)
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Collage %s] PANIC recovered in simulator: %v\n", shortID(state.Session.ID), r)
		}
	}()

	ticker := time.NewTicker(sim.Config().TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.stepSimulation(state, sim, now)
		}
	}
}

// stepSimulation runs one simulator tick under the collage lock.
func (m *Manager) stepSimulation(state *CollageState, sim *collage.Simulator, now time.Time) {
	state.mu.Lock()
	defer state.mu.Unlock()

	world := &collage.World{
		Images:  state.images,
		Cursors: state.cursors,
		Width:   state.Session.CanvasWidth,
		Height:  state.Session.CanvasHeight,
		Drags:   state.Drags,
		OnDrag: func(c *models.Cursor, idx int, kind models.DragEventKind) {
			m.record(state, idx, state.imageSrc(idx), c.ID, kind)
		},
	}
	sim.Step(world, now)
	state.images = world.Images
	state.cursors = world.Cursors
	state.Session.CursorCount = len(world.Cursors)
}

// GetSession returns a copy of the session record.
func (m *Manager) GetSession(id string) (*models.CollageSession, bool) {
	state, ok := m.get(id)
	if !ok {
		return nil, false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	sess := *state.Session
	return &sess, true
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// CloseSession unmounts a collage: stops its cursors, clears its drag
// store and forgets it.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	state.shutdown()
	fmt.Printf("[Collage %s] Unmounted\n", shortID(id))
	return nil
}

// Close unmounts every collage.
func (m *Manager) Close() {
	m.mu.Lock()
	states := make([]*CollageState, 0, len(m.sessions))
	for id, state := range m.sessions {
		states = append(states, state)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, state := range states {
		state.shutdown()
	}
}

func (s *CollageState) shutdown() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Drags.Reset()
	s.Session.Status = models.CollageStatusClosed
	s.cursors = nil
}

// StartDrag marks an image as dragged by actor. started is false when the
// image was already marked, by actor or anyone else, and nothing changed.
// Indices are not validated, matching the drag store's contract.
func (m *Manager) StartDrag(id string, imageIndex int, actor string) (started bool, err error) {
	state, ok := m.get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.Drags.IsBeingDragged(imageIndex) {
		return false, nil
	}
	state.Drags.StartDragging(imageIndex)
	m.record(state, imageIndex, state.imageSrc(imageIndex), actor, models.DragStarted)
	return true, nil
}

// StopDrag clears the drag marker for an image. Unknown indices are a no-op.
func (m *Manager) StopDrag(id string, imageIndex int, actor string) error {
	state, ok := m.get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.Drags.IsBeingDragged(imageIndex) {
		state.Drags.StopDragging(imageIndex)
		m.record(state, imageIndex, state.imageSrc(imageIndex), actor, models.DragStopped)
	}
	return nil
}

// IsBeingDragged reports whether an image in the session is being dragged.
func (m *Manager) IsBeingDragged(id string, imageIndex int) (bool, error) {
	state, ok := m.get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return state.Drags.IsBeingDragged(imageIndex), nil
}

// ResetDrags clears every drag marker in the session.
func (m *Manager) ResetDrags(id string) error {
	state, ok := m.get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.Drags.Reset()
	return nil
}

// MoveImage places an image's top-left corner and raises it to the top.
// Unlike drag markers, this must address a real image.
func (m *Manager) MoveImage(id string, imageIndex int, left, top float64) (*models.CollageImage, error) {
	state, ok := m.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if imageIndex < 0 || imageIndex >= len(state.images) {
		return nil, fmt.Errorf("%w: %d", ErrImageOutOfRange, imageIndex)
	}
	img := &state.images[imageIndex]
	img.MoveTo(left, top)
	if maxZ := collage.TopZIndex(state.images); img.ZIndex < maxZ {
		img.ZIndex = maxZ + 1
	}
	moved := *img
	return &moved, nil
}

// Relayout replaces the session's images wholesale. Drag markers refer to
// the old indices, so they are reset, and cursor targets are dropped.
func (m *Manager) Relayout(id string, sources []collage.ImageSource, opts collage.LayoutOptions) (*models.CollageSession, error) {
	state, ok := m.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	images := collage.Layout(sources, opts)

	state.mu.Lock()
	state.images = images
	for i := range state.cursors {
		state.cursors[i].ClearTarget()
	}
	state.Session.ImageCount = len(images)
	state.Session.CanvasWidth = opts.CanvasWidth
	state.Session.CanvasHeight = opts.CanvasHeight
	state.Drags.Reset()
	sess := *state.Session
	state.mu.Unlock()

	return &sess, nil
}

// Snapshot returns a consistent copy of the collage state.
func (m *Manager) Snapshot(id string) (*models.CollageSnapshot, error) {
	state, ok := m.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	sess := *state.Session
	images := make([]models.CollageImage, len(state.images))
	copy(images, state.images)
	cursors := make([]models.Cursor, len(state.cursors))
	copy(cursors, state.cursors)

	return &models.CollageSnapshot{
		Session: &sess,
		Images:  images,
		Cursors: cursors,
		Drags:   state.Drags.Active(),
	}, nil
}

// Subscribe registers fn with the session's drag store.
func (m *Manager) Subscribe(id string, fn dragstate.Subscriber) (func(), error) {
	state, ok := m.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return state.Drags.Subscribe(fn), nil
}

// Count returns the number of mounted collages.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// cleanupOldSessionsIfNeeded unmounts the least recently used collages when at capacity
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	if len(m.sessions) < MaxSessions {
		m.mu.Unlock()
		return
	}

	var oldestID string
	var oldest time.Time
	for id, state := range m.sessions {
		if oldestID == "" || state.LastAccessed.Before(oldest) {
			oldestID, oldest = id, state.LastAccessed
		}
	}
	if oldest.After(time.Now().Add(-SessionKeepAliveWindow)) {
		m.mu.Unlock()
		return
	}
	state := m.sessions[oldestID]
	delete(m.sessions, oldestID)
	m.mu.Unlock()

	state.shutdown()
	fmt.Printf("[Manager] Unmounted idle collage %s to make room\n", shortID(oldestID))
}

// CleanupOldSessions unmounts collages not touched within maxAge.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := time.Now().Add(-maxAge)
	var stale []*CollageState
	for id, state := range m.sessions {
		if state.LastAccessed.Before(cutoff) {
			stale = append(stale, state)
			delete(m.sessions, id)
			fmt.Printf("[Manager] Cleaned up aged collage %s (last accessed: %s ago)\n",
				shortID(id), time.Since(state.LastAccessed).Round(time.Second))
		}
	}
	m.mu.Unlock()

	for _, state := range stale {
		state.shutdown()
	}
	return len(stale)
}

func (m *Manager) get(id string) (*CollageState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.sessions[id]
	return state, ok
}

// record forwards a drag transition to the recorder, if any.
func (m *Manager) record(state *CollageState, idx int, src, actor string, kind models.DragEventKind) {
	if m.recorder == nil {
		return
	}
	ev := models.DragEvent{
		SessionID:  state.Session.ID,
		ImageIndex: idx,
		ImageSrc:   src,
		Actor:      actor,
		Kind:       kind,
		Timestamp:  time.Now(),
	}
	if err := m.recorder.Record(context.Background(), ev); err != nil {
		fmt.Printf("[Collage %s] Failed to record drag event: %v\n", shortID(state.Session.ID), err)
	}
}

// imageSrc returns the source of image idx, or "" for unknown indices.
// Caller must hold s.mu.
func (s *CollageState) imageSrc(idx int) string {
	if idx < 0 || idx >= len(s.images) {
		return ""
	}
	return s.images[idx].Src
}

// shortID safely truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
