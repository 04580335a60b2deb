// Package topics maps article text to the metal topics it covers and decides
// whether a headline is relevant to the metals market at all.
package topics

import (
	"sort"
	"strings"
)

// metalKeywords maps each topic to the lowercased terms that signal it.
var metalKeywords = map[string][]string{
	"copper":    {"copper", "cu cathode", "銅"},
	"aluminium": {"aluminium", "aluminum", "alumina", "bauxite", "アルミ"},
	"zinc":      {"zinc", "亜鉛"},
	"lead":      {"lead ingot", "lead metal", "lead price", "鉛"},
	"nickel":    {"nickel", "ニッケル"},
	"tin":       {"tin ingot", "tin metal", "tin price", "錫"},
	"steel":     {"steel", "iron ore", "鉄鋼"},
	"gold":      {"gold", "bullion", "金価格"},
	"silver":    {"silver", "銀価格"},
}

// coreKeywords by themselves make an article relevant.
var coreKeywords = []string{
	"lme",
	"london metal exchange",
	"base metal",
	"base metals",
}

// marketKeywords signal general market coverage; combined with a metal topic
// or on their own they satisfy the relevance screen.
var marketKeywords = []string{
	"price",
	"prices",
	"market",
	"exchange",
	"commodity",
	"commodities",
	"futures",
	"trading",
	"mining",
	"smelter",
	"refinery",
	"inventory",
	"stockpile",
	"warehouse",
	"premium",
	"backwardation",
	"contango",
}

// Extract returns the sorted topics whose keywords appear in the text.
func Extract(text string) []string {
	lowered := strings.ToLower(text)
	var found []string
	for topic, keywords := range metalKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				found = append(found, topic)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}

// Join renders a topic list in its persisted comma-joined form.
func Join(topicList []string) string {
	return strings.Join(topicList, ",")
}

// Relevant reports whether the text belongs in the database: it must carry a
// core keyword, name at least one tracked metal, or read like market
// coverage.
func Relevant(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range coreKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	if len(Extract(text)) > 0 {
		return true
	}
	return containsAny(lowered, marketKeywords)
}

// MarketKeywordCount counts distinct market terms present in the text. The
// translation gate uses it to spot untranslated wire copy worth translating.
func MarketKeywordCount(text string) int {
	lowered := strings.ToLower(text)
	count := 0
	for _, keyword := range marketKeywords {
		if strings.Contains(lowered, keyword) {
			count++
		}
	}
	for _, keyword := range coreKeywords {
		if strings.Contains(lowered, keyword) {
			count++
		}
	}
	return count
}

func containsAny(lowered string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
