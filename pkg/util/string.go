package util

import (
	"regexp"
	"strings"
)

var (
	slugPattern     = regexp.MustCompile(`[^a-z0-9]+`)
	markdownLinkRE  = regexp.MustCompile(`\[[^\]]*\]\([^)]+\)`)
	markdownImageRE = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
)

// GenerateSlug creates a URL-friendly slug from title
func GenerateSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	// Limit length
	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.Trim(slug, "-")
	}

	return slug
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// CountMarkdownLinks counts hyperlink references in markdown source,
// excluding image references
func CountMarkdownLinks(md string) int {
	all := markdownLinkRE.FindAllString(md, -1)
	images := markdownImageRE.FindAllString(md, -1)
	return len(all) - len(images)
}

// CountMarkdownImages counts image references in markdown source
func CountMarkdownImages(md string) int {
	return len(markdownImageRE.FindAllString(md, -1))
}

// KeywordOverlap returns how many keywords appear in both lists,
// compared case-insensitively
func KeywordOverlap(a, b []string) int {
	seen := make(map[string]bool, len(a))
	for _, k := range a {
		seen[strings.ToLower(strings.TrimSpace(k))] = true
	}

	count := 0
	for _, k := range b {
		if seen[strings.ToLower(strings.TrimSpace(k))] {
			count++
		}
	}
	return count
}
