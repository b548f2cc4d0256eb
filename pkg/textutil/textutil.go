// Package textutil cleans up feed-provided text fragments before they are
// hashed, filtered, or sent to the classifier.
package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML strips markup from a feed summary and collapses whitespace.
// Feeds routinely ship entity-encoded HTML in their description elements.
func CleanHTML(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return CollapseSpace(trimmed)
	}

	doc.Find("script,style").Remove()
	return CollapseSpace(doc.Text())
}

// CollapseSpace folds all whitespace runs into single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
