// Package prefilter reduces a large bullet pool to a bounded candidate set
// with a cheap lexical BM25 pass before any embedding calls are made.
package prefilter

import (
	"strings"

	"github.com/jonathan/bullet-ranker/internal/types"
)

const (
	minTitleWordLen       = 3 // title words shorter than this are noise
	minRequirementWordLen = 4
)

// synonymTable expands common skill terms into related vocabulary so bullets
// phrased differently still match.
var synonymTable = map[string][]string{
	"sql":        {"database", "queries"},
	"javascript": {"js", "frontend"},
	"typescript": {"ts"},
	"kubernetes": {"k8s", "containers"},
	"python":     {"scripting"},
	"aws":        {"cloud"},
	"gcp":        {"cloud"},
	"azure":      {"cloud"},
	"ml":         {"machine learning", "models"},
	"ai":         {"machine learning"},
	"ci":         {"pipeline", "automation"},
	"api":        {"rest", "endpoints"},
	"analytics":  {"data", "metrics"},
	"leadership": {"led", "managed", "team"},
}

var punctReplacer = strings.NewReplacer(
	".", "", ",", "", "/", "", "-", "", "(", "", ")", "", "+", "", "#", "",
)

// BuildSearchTerms derives the deduplicated lexical term set for a job:
// title words, expanded skill variants, and requirement words.
func BuildSearchTerms(analysis *types.JobAnalysis) []string {
	set := make(map[string]bool)
	var terms []string
	add := func(term string) {
		term = strings.TrimSpace(strings.ToLower(term))
		if term == "" || set[term] {
			return
		}
		set[term] = true
		terms = append(terms, term)
	}

	for _, word := range strings.Fields(strings.ToLower(analysis.Title)) {
		if len(word) >= minTitleWordLen {
			add(word)
		}
	}

	for _, skill := range analysis.Skills {
		for _, variant := range expandSkill(skill) {
			add(variant)
		}
	}

	for _, req := range analysis.Requirements {
		for _, word := range strings.Fields(strings.ToLower(req)) {
			if len(word) >= minRequirementWordLen {
				add(word)
			}
		}
	}

	return terms
}

// expandSkill produces the lexical variants of a single skill name:
// lowercase form, whitespace-stripped form, punctuation-stripped form, an
// acronym for multi-word skills, and fixed synonyms.
func expandSkill(skill string) []string {
	lower := strings.TrimSpace(strings.ToLower(skill))
	if lower == "" {
		return nil
	}

	variants := []string{lower}

	if stripped := strings.ReplaceAll(lower, " ", ""); stripped != lower {
		variants = append(variants, stripped)
	}
	if noPunct := punctReplacer.Replace(lower); noPunct != lower && noPunct != "" {
		variants = append(variants, noPunct)
	}

	words := strings.Fields(lower)
	if len(words) > 1 {
		var acronym strings.Builder
		for _, w := range words {
			acronym.WriteByte(w[0])
		}
		variants = append(variants, acronym.String())
	}

	if syns, ok := synonymTable[lower]; ok {
		variants = append(variants, syns...)
	}

	return variants
}
