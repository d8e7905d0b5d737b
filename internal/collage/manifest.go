package collage

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/portfolio-collage/backend/internal/models"
	_ "golang.org/x/image/webp"
	"gopkg.in/yaml.v3"
)

// Manifest lists the images that make up the collage.
type Manifest struct {
	Images []ManifestImage `yaml:"images"`
}

// ManifestImage is one manifest entry. Width and Height may be omitted
// for raster images; they are then read from the asset file.
type ManifestImage struct {
	Src            string         `yaml:"src"`
	Alt            string         `yaml:"alt"`
	Width          float64        `yaml:"width,omitempty"`
	Height         float64        `yaml:"height,omitempty"`
	Special        string         `yaml:"special,omitempty"`
	ContentOffsets *models.Insets `yaml:"content_offsets,omitempty"`
}

// LoadManifest reads a YAML manifest from disk.
func LoadManifest(manifestPath, assetsDir string) ([]ImageSource, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseManifest(file, assetsDir)
}

// ParseManifest parses a manifest and fills in missing dimensions from
// files under assetsDir.
func ParseManifest(r io.Reader, assetsDir string) ([]ImageSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	sources := make([]ImageSource, 0, len(m.Images))
	for i, entry := range m.Images {
		if entry.Src == "" {
			return nil, fmt.Errorf("manifest image %d: src is required", i)
		}
		src := ImageSource{
			Src:            entry.Src,
			Alt:            entry.Alt,
			Width:          entry.Width,
			Height:         entry.Height,
			Special:        entry.Special,
			ContentOffsets: entry.ContentOffsets,
		}
		if src.Width <= 0 || src.Height <= 0 {
			w, h, err := ProbeDimensions(AssetPath(assetsDir, entry.Src))
			if err != nil {
				return nil, fmt.Errorf("manifest image %d (%s): %w", i, entry.Src, err)
			}
			src.Width, src.Height = float64(w), float64(h)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// AssetPath maps a site-relative src such as "/images/a.png" into assetsDir.
func AssetPath(assetsDir, src string) string {
	return filepath.Join(assetsDir, filepath.FromSlash(strings.TrimPrefix(src, "/")))
}

// ProbeDimensions decodes only the header of an image file.
func ProbeDimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
