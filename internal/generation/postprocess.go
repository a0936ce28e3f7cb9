package generation

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DefaultExcerptLength is the rune budget of a derived excerpt
const DefaultExcerptLength = 160

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	// bluemonday policies are safe for concurrent use once built
	htmlPolicy = bluemonday.UGCPolicy()
	textPolicy = bluemonday.StrictPolicy()
)

const quoteChars = "\"'`*“”‘’«»"

// CleanTitle reduces raw model output to a bare title: the first non-empty
// line, without heading markers, a "Title:" label or surrounding quotes
func CleanTitle(raw string) (string, error) {
	line := ""
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.TrimSpace(strings.TrimLeft(line, "#"))
	if len(line) >= 6 && strings.EqualFold(line[:6], "title:") {
		line = strings.TrimSpace(line[6:])
	}
	line = strings.TrimSpace(strings.Trim(line, quoteChars))

	if line == "" {
		return "", ErrEmptyOutput
	}
	return line, nil
}

// CleanBody trims the body and unwraps a whole-output code fence
func CleanBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if strings.HasPrefix(body, "```") && strings.HasSuffix(body, "```") && len(body) > 6 {
		inner := strings.TrimSuffix(body, "```")
		if nl := strings.Index(inner, "\n"); nl >= 0 {
			body = strings.TrimSpace(inner[nl+1:])
		}
	}
	if body == "" {
		return "", ErrEmptyOutput
	}
	return body, nil
}

// RenderHTML converts markdown to sanitised HTML
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return htmlPolicy.Sanitize(buf.String()), nil
}

// DeriveExcerpt returns the first prose paragraph of a markdown body as plain
// text, cut to limit runes on a word boundary
func DeriveExcerpt(md string, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptLength
	}

	var para []string
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "```") {
			if len(para) > 0 {
				break
			}
			continue
		}
		if trimmed == "" {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, trimmed)
	}

	text := strings.Join(strings.Fields(strings.Join(para, " ")), " ")
	if text == "" {
		return ""
	}
	// render then strip tags so emphasis and links collapse to their text
	if rendered, err := RenderHTML(text); err == nil {
		text = strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(rendered)))
	}
	return truncateRunes(text, limit)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
