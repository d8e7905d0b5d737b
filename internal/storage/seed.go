package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/portfolio-collage/backend/internal/models"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Items []*models.PortfolioItem `yaml:"items"`
}

// LoadSeed reads a YAML file of portfolio items.
func LoadSeed(path string) ([]*models.PortfolioItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// ParseSeed decodes and validates portfolio items. Items without an
// explicit position keep their file order.
func ParseSeed(r io.Reader) ([]*models.PortfolioItem, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	seen := make(map[string]bool, len(seed.Items))
	for i, item := range seed.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("seed item %d: %w", i, err)
		}
		if seen[item.Slug] {
			return nil, fmt.Errorf("seed item %d: duplicate slug %q", i, item.Slug)
		}
		seen[item.Slug] = true
		if item.Position == 0 {
			item.Position = i + 1
		}
	}
	return seed.Items, nil
}

// SeedIfEmpty loads the seed file into store when it holds no items.
// It returns how many items were written.
func SeedIfEmpty(ctx context.Context, store Store, path string) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	items, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if err := store.Save(ctx, item); err != nil {
			return 0, err
		}
	}
	fmt.Printf("[ContentStore] Seeded %d items from %s\n", len(items), path)
	return len(items), nil
}
