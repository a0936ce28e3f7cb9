package models

import (
	"time"
)

// Post represents a generated blog post as stored in the content store
type Post struct {
	Slug             string    `json:"slug" db:"slug"`
	Title            string    `json:"title" db:"title"`
	Body             string    `json:"body" db:"body"`
	BodyFormat       string    `json:"body_format" db:"body_format"`
	Excerpt          string    `json:"excerpt" db:"excerpt"`
	CoverImagePath   *string   `json:"cover_image_path,omitempty" db:"cover_image_path"`
	Topic            string    `json:"topic,omitempty" db:"topic"`
	RunID            string    `json:"run_id,omitempty" db:"run_id"`
	Revision         int       `json:"revision" db:"revision"`
	PreviousRevision string    `json:"previous_revision,omitempty" db:"previous_revision"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// RecordRef points at a stored record together with its revision marker
type RecordRef struct {
	Path      string    `json:"path"`
	Revision  string    `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
}

// PostListItem is the summary shape returned by GET /posts
type PostListItem struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Excerpt        string    `json:"excerpt"`
	CoverImagePath *string   `json:"cover_image_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListItem returns the summary view of a post
func (p *Post) ListItem() PostListItem {
	return PostListItem{
		Slug:           p.Slug,
		Title:          p.Title,
		Excerpt:        p.Excerpt,
		CoverImagePath: p.CoverImagePath,
		CreatedAt:      p.CreatedAt,
	}
}
