package collage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSources() []ImageSource {
	return []ImageSource{
		{Src: "/images/portfolio/mongodb/hero.png", Alt: "Schema Designer", Width: 1600, Height: 1200},
		{Src: "/images/portfolio/mongodb/bluesky.gif", Alt: "Blue Sky", Width: 800, Height: 800},
		{Src: "/images/portfolio/ducky/hero.png", Alt: "Ducky", Width: 200, Height: 100},
		{Src: "/videos/torch.mp4", Alt: "Torch", Width: 1920, Height: 1080},
		{Src: "/images/portfolio/firehydrant/hero.png", Alt: "Design System", Width: 1000, Height: 2000},
	}
}

func TestLayout_PositionsEveryImageConsistently(t *testing.T) {
	opts := DefaultLayoutOptions()
	images := Layout(sampleSources(), opts)
	require.Len(t, images, 5)

	for i, img := range images {
		require.NotNil(t, img.Layout, "image %d", i)
		assert.True(t, img.Layout.Processed, "image %d", i)
		assert.True(t, img.Positioned(), "image %d", i)
		assert.True(t, img.Consistent(), "image %d", i)
		assert.LessOrEqual(t, img.Width, opts.MaxImageSize+1e-9)
		assert.LessOrEqual(t, img.Height, opts.MaxImageSize+1e-9)
		assert.GreaterOrEqual(t, img.Left, 0.0)
		assert.GreaterOrEqual(t, img.Top, 0.0)
		assert.LessOrEqual(t, img.Right, opts.CanvasWidth+1e-9)
		assert.LessOrEqual(t, img.Bottom, opts.CanvasHeight+1e-9)
		assert.InDelta(t, 0, img.Rotation, opts.MaxRotation)
	}
}

func TestLayout_ProcessStage(t *testing.T) {
	images := Layout(sampleSources(), DefaultLayoutOptions())

	assert.Equal(t, "4 / 3", images[0].Layout.AspectRatio)
	assert.Equal(t, 0.2, images[0].Scale)
	assert.InDelta(t, 320*240, images[0].Layout.Area, 1e-6)

	require.NotNil(t, images[1].Layout.Special)
	assert.Equal(t, "gif", images[1].Layout.Special.Type)
	assert.Equal(t, 0.0, images[1].Layout.FlexShrink)

	// Small images are never scaled up.
	assert.Equal(t, 1.0, images[2].Scale)
	assert.Equal(t, 200.0, images[2].Width)

	require.NotNil(t, images[3].Layout.Special)
	assert.Equal(t, "video", images[3].Layout.Special.Type)
	assert.Equal(t, "16 / 9", images[3].Layout.AspectRatio)
}

func TestLayout_ZOrderPutsLargestLowest(t *testing.T) {
	images := Layout(sampleSources(), DefaultLayoutOptions())

	seen := map[int]bool{}
	for _, img := range images {
		seen[img.ZIndex] = true
	}
	assert.Len(t, seen, len(images), "z-indices must be unique")

	// The ducky image is by far the smallest.
	assert.Equal(t, len(images), images[2].ZIndex)
	assert.Equal(t, len(images), TopZIndex(images))
}

func TestLayout_DeterministicPerSeed(t *testing.T) {
	opts := DefaultLayoutOptions()
	a := Layout(sampleSources(), opts)
	b := Layout(sampleSources(), opts)
	assert.Equal(t, a, b)

	opts.Seed = 99
	c := Layout(sampleSources(), opts)
	assert.NotEqual(t, a[0].Rotation, c[0].Rotation)
}

func TestLayout_MissingDimensionsGetPlaceholderSquare(t *testing.T) {
	opts := DefaultLayoutOptions()
	images := Layout([]ImageSource{{Src: "/x.png"}}, opts)
	assert.Equal(t, opts.MaxImageSize, images[0].Width)
	assert.Equal(t, opts.MaxImageSize, images[0].Height)
}
