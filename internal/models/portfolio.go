package models

import (
	"errors"
	"fmt"
)

// Content block types.
const (
	ContentText  = "text"
	ContentImage = "image"
)

// Content block layouts.
const (
	LayoutSingle     = "single"
	LayoutSideBySide = "side-by-side"
)

// PortfolioImage is one image in a project's gallery.
type PortfolioImage struct {
	Src     string `json:"src" yaml:"src"`
	Alt     string `json:"alt" yaml:"alt"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// SideImage is the second image of a side-by-side content block.
type SideImage struct {
	Value   string `json:"value" yaml:"value"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// ContentBlock is one paragraph or image of a case study.
type ContentBlock struct {
	Type      string     `json:"type" yaml:"type"`
	Value     string     `json:"value" yaml:"value"`
	Caption   string     `json:"caption,omitempty" yaml:"caption,omitempty"`
	Layout    string     `json:"layout,omitempty" yaml:"layout,omitempty"`
	SideImage *SideImage `json:"sideImage,omitempty" yaml:"side_image,omitempty"`
}

// TeamMember credits a collaborator on a project.
type TeamMember struct {
	Role         string `json:"role" yaml:"role"`
	Name         string `json:"name" yaml:"name"`
	Relationship string `json:"relationship" yaml:"relationship"`
}

// PortfolioItem is a single case study shown on the site.
type PortfolioItem struct {
	Slug              string           `json:"slug" yaml:"slug"`
	Title             string           `json:"title" yaml:"title"`
	Description       string           `json:"description" yaml:"description"`
	Tags              []string         `json:"tags" yaml:"tags"`
	VideoURL          string           `json:"videoUrl,omitempty" yaml:"video_url,omitempty"`
	PreviewImage      string           `json:"previewImage,omitempty" yaml:"preview_image,omitempty"`
	QuickNavThumbnail string           `json:"quickNavThumbnail,omitempty" yaml:"quick_nav_thumbnail,omitempty"`
	GithubURL         string           `json:"githubUrl,omitempty" yaml:"github_url,omitempty"`
	LiveURL           string           `json:"liveUrl,omitempty" yaml:"live_url,omitempty"`
	Link              string           `json:"link,omitempty" yaml:"link,omitempty"`
	Year              string           `json:"year,omitempty" yaml:"year,omitempty"`
	Role              string           `json:"role,omitempty" yaml:"role,omitempty"`
	Metrics           []string         `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Images            []PortfolioImage `json:"images" yaml:"images"`
	Content           []ContentBlock   `json:"content" yaml:"content"`
	Team              []TeamMember     `json:"team,omitempty" yaml:"team,omitempty"`
	Position          int              `json:"position" yaml:"position"` // display order
}

// ErrInvalidItem is wrapped by every PortfolioItem validation failure.
var ErrInvalidItem = errors.New("invalid portfolio item")

// Validate checks the fields the site cannot render without.
func (p *PortfolioItem) Validate() error {
	if p.Slug == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidItem)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	for i, block := range p.Content {
		switch block.Type {
		case ContentText, ContentImage:
		default:
			return fmt.Errorf("%w: content[%d] has unknown type %q", ErrInvalidItem, i, block.Type)
		}
		if block.Layout == LayoutSideBySide && block.SideImage == nil {
			return fmt.Errorf("%w: content[%d] is side-by-side without a side image", ErrInvalidItem, i)
		}
	}
	return nil
}
