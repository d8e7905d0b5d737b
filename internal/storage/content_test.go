package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/portfolio-collage/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "content", "portfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleItem(slug string, position int) *models.PortfolioItem {
	return &models.PortfolioItem{
		Slug:        slug,
		Title:       strings.ToUpper(slug),
		Description: "A case study",
		Tags:        []string{"Design", "Engineering"},
		Images:      []models.PortfolioImage{{Src: "/images/" + slug + ".png", Alt: slug}},
		Content: []models.ContentBlock{
			{Type: models.ContentText, Value: "Hello"},
			{Type: models.ContentImage, Value: "/a.png", Layout: models.LayoutSideBySide, SideImage: &models.SideImage{Value: "/b.png"}},
		},
		Position: position,
	}
}

func TestSQLiteStore_SaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	item := sampleItem("mongodb", 1)
	require.NoError(t, store.Save(ctx, item))

	got, err := store.Get(ctx, "mongodb")
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestSQLiteStore_ListIsOrderedByPosition(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, sampleItem("torch", 3)))
	require.NoError(t, store.Save(ctx, sampleItem("mongodb", 1)))
	require.NoError(t, store.Save(ctx, sampleItem("ducky", 2)))

	items, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "mongodb", items[0].Slug)
	assert.Equal(t, "ducky", items[1].Slug)
	assert.Equal(t, "torch", items[2].Slug)
}

func TestSQLiteStore_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	item := sampleItem("ducky", 1)
	require.NoError(t, store.Save(ctx, item))
	item.Title = "Ducky v2"
	require.NoError(t, store.Save(ctx, item))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, "ducky")
	require.NoError(t, err)
	assert.Equal(t, "Ducky v2", got.Title)
}

func TestSQLiteStore_RejectsInvalidItems(t *testing.T) {
	store := newTestStore(t)
	err := store.Save(context.Background(), &models.PortfolioItem{Slug: "no-title"})
	assert.ErrorIs(t, err, models.ErrInvalidItem)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrNotFound)
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, sampleItem("torch", 1)))
	require.NoError(t, store.Delete(ctx, "torch"))

	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "portfolio.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleItem("mongodb", 1)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "mongodb")
	require.NoError(t, err)
	assert.Equal(t, "MONGODB", got.Title)
}

const seedYAML = `
items:
  - slug: mongodb
    title: MongoDB
    description: Schema design tooling
    tags: [Design]
    images:
      - src: /images/portfolio/mongodb/hero.png
        alt: Hero
    content:
      - type: text
        value: Intro
  - slug: ducky
    title: Ducky
    position: 7
    content:
      - type: image
        value: /images/portfolio/ducky/a.png
        layout: side-by-side
        side_image:
          value: /images/portfolio/ducky/b.png
`

func TestParseSeed(t *testing.T) {
	items, err := ParseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, 1, items[0].Position, "file order fills missing positions")
	assert.Equal(t, 7, items[1].Position)
	require.NotNil(t, items[1].Content[0].SideImage)
	assert.Equal(t, "/images/portfolio/ducky/b.png", items[1].Content[0].SideImage.Value)
}

func TestParseSeed_Errors(t *testing.T) {
	t.Run("invalid item", func(t *testing.T) {
		_, err := ParseSeed(strings.NewReader("items:\n  - slug: x\n"))
		assert.ErrorIs(t, err, models.ErrInvalidItem)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := ParseSeed(strings.NewReader("items:\n  - {slug: x, title: X}\n  - {slug: x, title: Y}\n"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseSeed(strings.NewReader("items: [\n"))
		assert.Error(t, err)
	})
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0644))

	n, err := SeedIfEmpty(ctx, store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Second start leaves existing content alone.
	n, err = SeedIfEmpty(ctx, store, path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoadSeed_DefaultFile(t *testing.T) {
	items, err := LoadSeed(filepath.Join("..", "..", "data", "defaults", "portfolio.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, "mongodb", items[0].Slug)
	assert.Equal(t, 1, items[0].Position)
}
