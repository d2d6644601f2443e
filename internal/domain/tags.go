package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParseTags turns the comma-delimited tag field of the deck editor into a tag
// list: each tag trimmed and NFC-normalized, empties dropped, duplicates
// (compared case-insensitively) removed keeping the first spelling, input
// order preserved.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, p := range parts {
		tag := norm.NFC.String(strings.TrimSpace(p))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// JoinTags is the inverse used to prefill the editor.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}
