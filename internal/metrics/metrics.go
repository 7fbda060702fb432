// Package metrics scans sanitized analysis text for known advertising
// KPI mentions and extracts them as label/value pairs for display.
package metrics

import "regexp"

// Metric is one extracted KPI. Value keeps the exact substring captured
// from the text (digit grouping, decimal precision) — the source
// formatting is meaningful and must round-trip to display unchanged.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// rule binds a display label to the pattern that captures its value.
type rule struct {
	label   string
	pattern *regexp.Regexp
}

// rules is the fixed extraction table. Output order always follows this
// table, not the order labels appear in the text, and each rule yields
// at most one metric (first match wins).
var rules = []rule{
	{"Impressions", regexp.MustCompile(`(?i)(?:total\s+)?impressions:\s*([0-9,]+)`)},
	{"Clicks", regexp.MustCompile(`(?i)(?:total\s+)?clicks:\s*([0-9,]+)`)},
	{"Conversions", regexp.MustCompile(`(?i)(?:total\s+)?conversions:\s*([0-9,]+)`)},
	{"CTR", regexp.MustCompile(`(?i)(?:average\s+)?ctr:\s*([0-9.]+)%?`)},
	{"Spend", regexp.MustCompile(`(?i)(?:total\s+)?spend:\s*\$?([0-9,.]+)`)},
	{"Conversion Rate", regexp.MustCompile(`(?i)conversion\s+rate:\s*([0-9.]+)%`)},
}

// Extract returns the metrics found in text, in rule order. An empty
// result means no rule matched; that is a normal outcome, not an error.
func Extract(text string) []Metric {
	found := make([]Metric, 0, len(rules))
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		found = append(found, Metric{Label: r.label, Value: m[1]})
	}
	return found
}
