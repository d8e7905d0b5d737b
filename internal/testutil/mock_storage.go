// mock_storage.go - Mock content store implementation for testing
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/portfolio-collage/backend/internal/models"
	"github.com/portfolio-collage/backend/internal/storage"
)

// MockContentStore implements storage.Store in memory for testing
type MockContentStore struct {
	items map[string]*models.PortfolioItem
	mu    sync.RWMutex

	// ListErr, when set, is returned by List.
	ListErr error
}

// NewMockContentStore creates an empty mock store
func NewMockContentStore() *MockContentStore {
	return &MockContentStore{
		items: make(map[string]*models.PortfolioItem),
	}
}

func (m *MockContentStore) List(_ context.Context) ([]*models.PortfolioItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	items := make([]*models.PortfolioItem, 0, len(m.items))
	for _, item := range m.items {
		cp := *item
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].Slug < items[j].Slug
	})
	return items, nil
}

func (m *MockContentStore) Get(_ context.Context, slug string) (*models.PortfolioItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, slug)
	}
	cp := *item
	return &cp, nil
}

func (m *MockContentStore) Save(_ context.Context, item *models.PortfolioItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.Slug] = &cp
	return nil
}

func (m *MockContentStore) Delete(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[slug]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, slug)
	}
	delete(m.items, slug)
	return nil
}

func (m *MockContentStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

// AddItem is a helper for tests to seed an item without validation
func (m *MockContentStore) AddItem(slug, title string, position int) *models.PortfolioItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &models.PortfolioItem{Slug: slug, Title: title, Position: position}
	m.items[slug] = item
	cp := *item
	return &cp
}

// Clear removes every item
func (m *MockContentStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*models.PortfolioItem)
}

var _ storage.Store = (*MockContentStore)(nil)
