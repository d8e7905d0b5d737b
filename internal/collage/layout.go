// Package collage builds and animates the interactive image collage.
package collage

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path"
	"sort"
	"strings"

	"github.com/portfolio-collage/backend/internal/models"
)

// ImageSource is an image before it enters the layout pipeline.
type ImageSource struct {
	Src            string
	Alt            string
	Width          float64 // intrinsic pixels
	Height         float64
	Special        string // "", "gif", "video"
	ContentOffsets *models.Insets
}

// LayoutOptions controls how images are sized and scattered.
type LayoutOptions struct {
	CanvasWidth  float64
	CanvasHeight float64
	MaxImageSize float64 // longest displayed side
	Gap          float64
	Jitter       float64 // max random displacement per axis
	MaxRotation  float64 // degrees, either direction
	Seed         uint64
}

// DefaultLayoutOptions returns options suited to a desktop viewport.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		CanvasWidth:  1440,
		CanvasHeight: 900,
		MaxImageSize: 320,
		Gap:          24,
		Jitter:       40,
		MaxRotation:  6,
		Seed:         1,
	}
}

// Layout runs both pipeline stages and returns positioned images.
// The result is deterministic for a given seed.
func Layout(sources []ImageSource, opts LayoutOptions) []models.CollageImage {
	images := make([]models.CollageImage, len(sources))
	for i, src := range sources {
		images[i] = process(src, opts)
	}
	Position(images, opts)
	return images
}

// process sizes an image to fit MaxImageSize and fills its layout hints.
func process(src ImageSource, opts LayoutOptions) models.CollageImage {
	w, h := src.Width, src.Height
	if w <= 0 || h <= 0 {
		w, h = opts.MaxImageSize, opts.MaxImageSize
	}

	scale := 1.0
	if longest := math.Max(w, h); opts.MaxImageSize > 0 && longest > opts.MaxImageSize {
		scale = opts.MaxImageSize / longest
	}
	dw, dh := w*scale, h*scale

	hints := &models.LayoutHints{
		Area:           dw * dh,
		Processed:      true,
		AspectRatio:    aspectRatio(w, h),
		FlexShrink:     1,
		ContentOffsets: src.ContentOffsets,
	}
	if kind := specialType(src); kind != "" {
		hints.Special = &models.SpecialImage{Type: kind}
		hints.FlexShrink = 0
	}

	return models.CollageImage{
		Src:    src.Src,
		Alt:    src.Alt,
		Width:  dw,
		Height: dh,
		Scale:  scale,
		Layout: hints,
	}
}

// Position shelf-packs processed images across the canvas, adds jitter
// and rotation, and assigns z-order so the largest image sits lowest.
func Position(images []models.CollageImage, opts LayoutOptions) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var x, y, rowH float64
	for i := range images {
		img := &images[i]
		if img.Layout == nil {
			img.Layout = &models.LayoutHints{Processed: true, FlexShrink: 1}
		}

		if x > 0 && x+img.Width > opts.CanvasWidth {
			x = 0
			y += rowH + opts.Gap
			rowH = 0
		}

		left := clamp(x+jitter(rng, opts.Jitter), 0, math.Max(0, opts.CanvasWidth-img.Width))
		top := y + jitter(rng, opts.Jitter)
		if y+img.Height > opts.CanvasHeight {
			// Past the last shelf: scatter over what is already there.
			top = rng.Float64() * math.Max(0, opts.CanvasHeight-img.Height)
		}
		top = clamp(top, 0, math.Max(0, opts.CanvasHeight-img.Height))

		img.MoveTo(left, top)
		img.Rotation = (rng.Float64()*2 - 1) * opts.MaxRotation
		img.Layout.Positioned = true

		x += img.Width + opts.Gap
		rowH = math.Max(rowH, img.Height)
	}

	assignZOrder(images)
}

// assignZOrder gives larger images lower z-indices, starting at 1.
func assignZOrder(images []models.CollageImage) {
	order := make([]int, len(images))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return area(&images[order[a]]) > area(&images[order[b]])
	})
	for z, idx := range order {
		images[idx].ZIndex = z + 1
	}
}

// TopZIndex returns the highest z-index in use.
func TopZIndex(images []models.CollageImage) int {
	top := 0
	for i := range images {
		if images[i].ZIndex > top {
			top = images[i].ZIndex
		}
	}
	return top
}

func area(img *models.CollageImage) float64 {
	if img.Layout != nil && img.Layout.Area > 0 {
		return img.Layout.Area
	}
	return img.Width * img.Height
}

func specialType(src ImageSource) string {
	if src.Special != "" {
		return src.Special
	}
	switch strings.ToLower(path.Ext(src.Src)) {
	case ".gif":
		return "gif"
	case ".mp4", ".webm", ".mov":
		return "video"
	}
	return ""
}

func aspectRatio(w, h float64) string {
	a, b := int(math.Round(w)), int(math.Round(h))
	if a <= 0 || b <= 0 {
		return ""
	}
	g := gcd(a, b)
	return fmt.Sprintf("%d / %d", a/g, b/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func jitter(rng *rand.Rand, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * amount
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
