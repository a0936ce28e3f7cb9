package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	slugStripRegex = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	slugRegex      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// fallbackPrefix starts every slug derived from a title with no usable characters
const fallbackPrefix = "post-"

// SlugDeriver turns titles into storage keys. Now is only consulted for titles
// that reduce to nothing.
type SlugDeriver struct {
	Now func() time.Time
}

// NewSlugDeriver returns a deriver using the wall clock
func NewSlugDeriver() *SlugDeriver {
	return &SlugDeriver{Now: time.Now}
}

// Derive lower-cases the title, strips everything outside [a-z0-9] and whitespace,
// joins whitespace runs with a single hyphen and trims hyphens at both ends.
func (d *SlugDeriver) Derive(title string) string {
	if s := normalizeSlug(title); s != "" {
		return s
	}
	now := time.Now
	if d != nil && d.Now != nil {
		now = d.Now
	}
	return fallbackPrefix + strconv.FormatInt(now().UnixNano(), 36)
}

// DeriveSlug derives a slug using the wall clock for the empty-title fallback
func DeriveSlug(title string) string {
	return NewSlugDeriver().Derive(title)
}

func normalizeSlug(title string) string {
	s := strings.ToLower(title)
	s = slugStripRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Disambiguate appends a short suffix to slug
func Disambiguate(slug, suffix string) string {
	suffix = normalizeSlug(suffix)
	if suffix == "" {
		suffix = NewSuffix()
	}
	return slug + "-" + suffix
}

// NewSuffix returns six lower-hex characters taken from a random UUID
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// IsValidSlug reports whether s only uses [a-z0-9-] with no leading, trailing
// or doubled hyphens
func IsValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// IsDuplicateTitle reports whether candidate matches any exclusion exactly
// or after slug normalisation
func IsDuplicateTitle(candidate string, exclusions []string) bool {
	key := normalizeSlug(candidate)
	trimmed := strings.TrimSpace(candidate)
	for _, ex := range exclusions {
		if strings.EqualFold(strings.TrimSpace(ex), trimmed) {
			return true
		}
		if key != "" && normalizeSlug(ex) == key {
			return true
		}
	}
	return false
}
