// Package sanitize strips model reasoning artifacts from raw analysis
// text and normalizes its whitespace so the result renders as clean
// prose.
//
// Generative backends sometimes leak their chain-of-thought wrapped in
// XML-style tags (<think>, <reasoning>, ...). Those spans are internal
// to the model and must never reach the user.
package sanitize

import (
	"regexp"
	"strings"
)

// reasoningTags are the tag names whose balanced spans are removed,
// content included. An open tag with no matching close tag is left as
// literal text — partial spans are not guessed at.
var reasoningTags = []string{
	"think",
	"reasoning",
	"thought",
	"analysis",
	"reflection",
	"internal",
	"scratch",
}

// tagPatterns match each reasoning span case-insensitively and
// non-greedily, with `.` spanning newlines so multi-line reasoning
// blocks are removed whole.
var tagPatterns = compileTagPatterns()

func compileTagPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(reasoningTags))
	for _, tag := range reasoningTags {
		patterns = append(patterns, regexp.MustCompile(`(?is)<`+tag+`>.*?</`+tag+`>`))
	}
	return patterns
}

var (
	multiNewline   = regexp.MustCompile(`\n{3,}`)
	multiSpace     = regexp.MustCompile(`[ \t]{2,}`)
	boundaryQuotes = regexp.MustCompile("^[\"'`]+|[\"'`]+$")
)

// Clean removes reasoning-tag spans and normalizes whitespace.
//
// After tag removal it collapses runs of three or more newlines to a
// paragraph break, squeezes horizontal whitespace runs to one space,
// trims the result, and strips quote characters wrapping the whole
// text. Clean is pure and idempotent once no tags remain.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	cleaned := raw
	for _, re := range tagPatterns {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	cleaned = multiNewline.ReplaceAllString(cleaned, "\n\n")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = boundaryQuotes.ReplaceAllString(cleaned, "")

	return cleaned
}
