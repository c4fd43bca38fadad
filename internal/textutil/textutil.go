// Package textutil cleans user-entered text before it is stored.
package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy strips every element. bluemonday policies are safe for concurrent use.
var policy = bluemonday.StrictPolicy()

// maxPasses bounds the unescape/sanitize rounds for nested entity encoding.
const maxPasses = 4

// Clean returns s as plain text: markup removed, entities decoded and
// surrounding whitespace trimmed. Entities are decoded before sanitizing so
// encoded markup is stripped too, and the rounds repeat until decoding
// yields nothing new. Input still changing after maxPasses is returned in
// its escaped, sanitized form.
func Clean(s string) string {
	for range maxPasses {
		next := html.UnescapeString(policy.Sanitize(html.UnescapeString(s)))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	return strings.TrimSpace(policy.Sanitize(s))
}

// CleanTags cleans each tag and drops the ones left empty.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = Clean(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
