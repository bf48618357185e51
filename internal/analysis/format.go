package analysis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/alttext/internal/providers"
)

const (
	maxColors    = 3
	maxExtraTags = 3
)

// Format composes a single descriptive sentence from vision features.
//
// Clauses are emitted in a fixed order: caption, colors, objects, faces,
// then up to three tags not already mentioned. A single distinct object
// produces no "Contains" clause.
func Format(f providers.Features) string {
	var parts []string

	// Clauses are joined with ". ", so a caption's own period would double up.
	if caption := strings.TrimRight(strings.TrimSpace(f.Caption), "."); caption != "" {
		parts = append(parts, upperFirst(caption))
	}

	if len(f.Colors) > 0 {
		colors := f.Colors
		if len(colors) > maxColors {
			colors = colors[:maxColors]
		}
		parts = append(parts, "The image features "+strings.Join(colors, " and ")+" colors")
	}

	if objects := unique(f.Objects); len(objects) > 1 {
		last := objects[len(objects)-1]
		parts = append(parts, "Contains "+strings.Join(objects[:len(objects)-1], ", ")+" and "+last)
	}

	switch {
	case f.FaceCount == 1:
		parts = append(parts, "Shows one person")
	case f.FaceCount > 1:
		parts = append(parts, fmt.Sprintf("Shows %d people", f.FaceCount))
	}

	mentioned := strings.ToLower(strings.Join(parts, " "))
	var extra []string
	for _, tag := range f.Tags {
		if strings.Contains(mentioned, strings.ToLower(tag)) {
			continue
		}
		extra = append(extra, tag)
		if len(extra) == maxExtraTags {
			break
		}
	}
	if len(extra) > 0 {
		parts = append(parts, "Also features "+strings.Join(extra, ", "))
	}

	return ensurePeriod(strings.Join(parts, ". "))
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func ensurePeriod(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

// ensureTerminalPunctuation appends a period unless s already ends a sentence
func ensureTerminalPunctuation(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") {
		return s
	}
	return s + "."
}
