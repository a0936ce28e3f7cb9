package validation

import (
	"fmt"
	"strings"

	"github.com/autoblog-publisher/internal/models"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator checks posts before they are persisted
type Validator struct {
	slugCache map[string]bool
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		slugCache: make(map[string]bool),
	}
}

// AddSlug adds a slug to the uniqueness cache
func (v *Validator) AddSlug(slug string) {
	v.slugCache[slug] = true
}

// ValidatePost validates a post record. baseSlug is the slug derived from the
// title; the stored slug must equal it or be a disambiguated variant of it.
func (v *Validator) ValidatePost(post *models.Post, baseSlug string) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(post.Title) == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(post.Body) == "" {
		errors = append(errors, ValidationError{Field: "body", Message: "body is required"})
	}

	if post.Slug == "" {
		errors = append(errors, ValidationError{Field: "slug", Message: "slug is required"})
	} else if !IsValidSlug(post.Slug) {
		errors = append(errors, ValidationError{Field: "slug", Message: "invalid slug format", Value: post.Slug})
	} else if post.Slug != baseSlug && !strings.HasPrefix(post.Slug, baseSlug+"-") {
		errors = append(errors, ValidationError{Field: "slug", Message: "slug does not match title", Value: post.Slug})
	} else if v.slugCache[post.Slug] {
		errors = append(errors, ValidationError{Field: "slug", Message: "duplicate slug", Value: post.Slug})
	}

	if post.CreatedAt.IsZero() {
		errors = append(errors, ValidationError{Field: "created_at", Message: "created_at is required"})
	}

	if post.CoverImagePath != nil && *post.CoverImagePath == "" {
		errors = append(errors, ValidationError{Field: "cover_image_path", Message: "cover_image_path must not be empty when set"})
	}

	return errors
}
