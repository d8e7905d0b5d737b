package models

// Insets describes a content offset inside an image frame.
type Insets struct {
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Left   float64 `json:"left" yaml:"left"`
}

// SpecialImage classifies images that need non-default rendering.
type SpecialImage struct {
	Type string `json:"type" yaml:"type"` // "gif", "video"
}

// LayoutHints carries the fields only the layout pipeline fills in.
// Nil on a CollageImage means the pipeline has not processed it yet.
type LayoutHints struct {
	Area           float64       `json:"area,omitempty"`
	Special        *SpecialImage `json:"special,omitempty"`
	Processed      bool          `json:"processed"`
	Positioned     bool          `json:"positioned"`
	AspectRatio    string        `json:"aspectRatio,omitempty"` // "4 / 3"
	FlexShrink     float64       `json:"flexShrink,omitempty"`
	ContentOffsets *Insets       `json:"contentOffsets,omitempty"`
}

// CollageImage is one positioned image in the collage.
// Once Layout.Positioned is set, Right == Left+Width and Bottom == Top+Height.
type CollageImage struct {
	Src      string  `json:"src"`
	Alt      string  `json:"alt"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Left     float64 `json:"left"`
	Top      float64 `json:"top"`
	Right    float64 `json:"right"`
	Bottom   float64 `json:"bottom"`
	ZIndex   int     `json:"zIndex"`
	Rotation float64 `json:"rotation"` // degrees
	Scale    float64 `json:"scale"`

	Layout *LayoutHints `json:"layout,omitempty"`
}

// Positioned reports whether the bounding box holds real coordinates.
func (img *CollageImage) Positioned() bool {
	return img.Layout != nil && img.Layout.Positioned
}

// Consistent reports whether the bounding box agrees with Width/Height.
// Images that are not positioned yet are always considered consistent.
func (img *CollageImage) Consistent() bool {
	if !img.Positioned() {
		return true
	}
	return nearlyEqual(img.Right, img.Left+img.Width) &&
		nearlyEqual(img.Bottom, img.Top+img.Height)
}

// MoveTo places the top-left corner at (left, top) and updates the box.
func (img *CollageImage) MoveTo(left, top float64) {
	img.Left = left
	img.Top = top
	img.Right = left + img.Width
	img.Bottom = top + img.Height
}

// Center returns the midpoint of the bounding box.
func (img *CollageImage) Center() (x, y float64) {
	return img.Left + img.Width/2, img.Top + img.Height/2
}

// Contains reports whether (x, y) falls inside the bounding box.
func (img *CollageImage) Contains(x, y float64) bool {
	return x >= img.Left && x <= img.Right && y >= img.Top && y <= img.Bottom
}

func nearlyEqual(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
