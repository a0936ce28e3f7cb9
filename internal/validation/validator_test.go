package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/autoblog-publisher/internal/models"
)

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "punctuation and parens", title: "What Is Time?? (Part 1)", want: "what-is-time-part-1"},
		{name: "simple title", title: "Exploring Moral Luck", want: "exploring-moral-luck"},
		{name: "surrounding whitespace", title: "   Kant on Duty  ", want: "kant-on-duty"},
		{name: "tabs and newlines", title: "Mind\t\tand\nBody", want: "mind-and-body"},
		{name: "existing hyphens are stripped", title: "Self-Knowledge - A Primer", want: "selfknowledge-a-primer"},
		{name: "digits kept", title: "10 Ideas for 2024", want: "10-ideas-for-2024"},
		{name: "non ascii letters dropped", title: "Café Über Alles", want: "caf-ber-alles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveSlug(tt.title); got != tt.want {
				t.Errorf("DeriveSlug(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestDeriveSlug_Fallback(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := &SlugDeriver{Now: func() time.Time { return fixed }}

	for _, title := range []string{"", "   ", "???", "—–", "日本語"} {
		got := d.Derive(title)
		if !strings.HasPrefix(got, "post-") {
			t.Errorf("Derive(%q) = %q, expected fallback prefix", title, got)
		}
		if !IsValidSlug(got) {
			t.Errorf("Derive(%q) = %q is not a valid slug", title, got)
		}
		if got != d.Derive(title) {
			t.Errorf("Derive(%q) should be stable for a fixed clock", title)
		}
	}
}

func TestDeriveSlug_Properties(t *testing.T) {
	inputs := []string{
		"A Guide to Ethics",
		"--leading and trailing--",
		"  !!!  ",
		"UPPER lower MiXeD",
		"emoji 🚀 launch",
		"a b",
		"x",
		strings.Repeat("long title ", 40),
	}

	for _, in := range inputs {
		first := DeriveSlug(in)
		if first == "" {
			t.Errorf("DeriveSlug(%q) returned empty slug", in)
		}
		if !IsValidSlug(first) {
			t.Errorf("DeriveSlug(%q) = %q contains invalid characters", in, first)
		}
		if strings.HasPrefix(first, "-") || strings.HasSuffix(first, "-") {
			t.Errorf("DeriveSlug(%q) = %q has edge hyphens", in, first)
		}
		if normalizeSlug(in) != "" && DeriveSlug(in) != first {
			t.Errorf("DeriveSlug(%q) is not deterministic", in)
		}
	}
}

func TestDisambiguate(t *testing.T) {
	got := Disambiguate("kant-on-duty", "a1b2c3")
	if got != "kant-on-duty-a1b2c3" {
		t.Errorf("Expected kant-on-duty-a1b2c3, got %s", got)
	}

	random := Disambiguate("kant-on-duty", "")
	if !strings.HasPrefix(random, "kant-on-duty-") || !IsValidSlug(random) {
		t.Errorf("Unexpected disambiguated slug %q", random)
	}
	if len(random) != len("kant-on-duty-")+6 {
		t.Errorf("Expected a six character suffix, got %q", random)
	}
}

func TestIsDuplicateTitle(t *testing.T) {
	exclusions := []string{"A Guide to Ethics", "Kant on Duty"}

	tests := []struct {
		candidate string
		want      bool
	}{
		{"A Guide to Ethics", true},
		{"a guide to ethics", true},
		{"  Kant on Duty ", true},
		{"Kant on Duty!", true},
		{"Exploring Moral Luck", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsDuplicateTitle(tt.candidate, exclusions); got != tt.want {
			t.Errorf("IsDuplicateTitle(%q) = %v, want %v", tt.candidate, got, tt.want)
		}
	}

	if IsDuplicateTitle("Anything", nil) {
		t.Error("Nothing is a duplicate of an empty exclusion list")
	}
}

func TestValidatePost(t *testing.T) {
	validator := NewValidator()
	validator.AddSlug("taken-slug")
	now := time.Now()
	empty := ""

	tests := []struct {
		name       string
		post       *models.Post
		baseSlug   string
		wantErrors int
		wantFields []string
	}{
		{
			name:     "valid post",
			post:     &models.Post{Title: "Exploring Moral Luck", Body: "Body", Slug: "exploring-moral-luck", CreatedAt: now},
			baseSlug: "exploring-moral-luck",
		},
		{
			name:     "disambiguated slug accepted",
			post:     &models.Post{Title: "Exploring Moral Luck", Body: "Body", Slug: "exploring-moral-luck-1a2b3c", CreatedAt: now},
			baseSlug: "exploring-moral-luck",
		},
		{
			name:       "missing title and body",
			post:       &models.Post{Slug: "x", CreatedAt: now},
			baseSlug:   "x",
			wantErrors: 2,
			wantFields: []string{"title", "body"},
		},
		{
			name:       "invalid slug format",
			post:       &models.Post{Title: "T", Body: "B", Slug: "Bad Slug", CreatedAt: now},
			baseSlug:   "t",
			wantErrors: 1,
			wantFields: []string{"slug"},
		},
		{
			name:       "slug does not match title",
			post:       &models.Post{Title: "T", Body: "B", Slug: "other", CreatedAt: now},
			baseSlug:   "t",
			wantErrors: 1,
			wantFields: []string{"slug"},
		},
		{
			name:       "duplicate slug",
			post:       &models.Post{Title: "Taken Slug", Body: "B", Slug: "taken-slug", CreatedAt: now},
			baseSlug:   "taken-slug",
			wantErrors: 1,
			wantFields: []string{"slug"},
		},
		{
			name:       "missing created_at and empty cover path",
			post:       &models.Post{Title: "T", Body: "B", Slug: "t", CoverImagePath: &empty},
			baseSlug:   "t",
			wantErrors: 2,
			wantFields: []string{"created_at", "cover_image_path"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors := validator.ValidatePost(tt.post, tt.baseSlug)
			if len(errors) != tt.wantErrors {
				t.Fatalf("Expected %d errors, got %d: %v", tt.wantErrors, len(errors), errors)
			}
			for i, field := range tt.wantFields {
				if errors[i].Field != field {
					t.Errorf("Expected error on field %s, got %s", field, errors[i].Field)
				}
			}
		})
	}
}
