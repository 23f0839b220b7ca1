package ratings

import "strings"

const (
	summaryPrefix    = "Ratings · "
	summarySeparator = " · "
)

// Summary builds "Ratings · IMDb 8.8 · Rotten Tomatoes 87% · Metacritic 74/100".
// It returns "" for an empty bundle.
func Summary(r *Ratings) string {
	entries := r.Entries()
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Label+" "+e.Value)
	}
	return summaryPrefix + strings.Join(parts, summarySeparator)
}

// AppendSummary appends summary to description after a blank line. It is
// idempotent: a description that already contains summary is only trimmed.
func AppendSummary(description, summary string) string {
	trimmed := strings.TrimSpace(description)
	if summary == "" {
		return trimmed
	}
	if trimmed == "" {
		return summary
	}
	if strings.Contains(trimmed, summary) {
		return trimmed
	}
	return trimmed + "\n\n" + summary
}
