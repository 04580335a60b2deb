package analysis

import (
	"regexp"
	"strconv"
	"strings"

	"newswatch/internal/store"
)

var importancePattern = regexp.MustCompile(`^\s*\**\s*(\d{1,2})`)

// parseSentiment maps model output onto the three supported labels. Unusable
// output falls back to neutral so a noisy response never blocks enrichment.
func parseSentiment(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lowered, "positive"):
		return store.SentimentPositive
	case strings.Contains(lowered, "negative"):
		return store.SentimentNegative
	default:
		return store.SentimentNeutral
	}
}

// parseImportance extracts the leading integer rating and clamps it to 1-10.
// The rationale after the rating is discarded.
func parseImportance(raw string) (int, bool) {
	match := importancePattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, false
	}
	score, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score, true
}

// parseKeywords normalizes a model keyword list into a comma-separated
// string, stripping bullets and duplicates and capping at ten entries.
func parseKeywords(raw string) string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, line := range strings.Split(raw, "\n") {
		for _, field := range strings.Split(line, ",") {
			keyword := strings.Trim(strings.TrimSpace(field), "-*•· \t\"")
			if keyword == "" {
				continue
			}
			lowered := strings.ToLower(keyword)
			if _, dup := seen[lowered]; dup {
				continue
			}
			seen[lowered] = struct{}{}
			keywords = append(keywords, keyword)
			if len(keywords) == 10 {
				return strings.Join(keywords, ", ")
			}
		}
	}
	return strings.Join(keywords, ", ")
}

// parseSummary trims surrounding whitespace and any quote wrapping the model
// tends to add.
func parseSummary(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "\"")
}
