package types

import (
	"regexp"
	"strings"
)

// numberToken is the placeholder that replaces every numeric run in a
// fingerprint, so "Led 12 engineers" and "Led 47 engineers" collapse to the
// same token sequence.
const numberToken = "#"

var (
	// Matches integers, decimals, comma-grouped numbers, and numbers wrapped
	// in currency or percent markers ($1.2M, 45%, 3,000).
	numberPattern = regexp.MustCompile(`[$€£]?\d+(?:[.,]\d+)*[%kKmMbB+]?`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// actionVerbs are the leading verbs recognized as strong bullet openers.
var actionVerbs = map[string]bool{
	"achieved": true, "advised": true, "analyzed": true, "architected": true,
	"automated": true, "built": true, "coordinated": true, "created": true,
	"decreased": true, "delivered": true, "deployed": true,
	"designed": true, "developed": true, "directed": true, "drove": true,
	"engineered": true, "established": true, "expanded": true, "generated": true,
	"implemented": true, "improved": true, "increased": true, "launched": true,
	"led": true, "managed": true, "negotiated": true, "optimized": true,
	"orchestrated": true, "oversaw": true, "reduced": true, "redesigned": true,
	"scaled": true, "shipped": true, "spearheaded": true, "streamlined": true,
	"transformed": true,
}

// NormalizeFingerprint produces a dedup key for bullet text: lowercased,
// whitespace collapsed, every numeric run replaced by a placeholder token.
// It is a pure function of the text.
func NormalizeFingerprint(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = numberPattern.ReplaceAllString(s, numberToken)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return s
}

// HasQuantifiedResult reports whether text contains a number, currency
// amount, or percentage.
func HasQuantifiedResult(text string) bool {
	return numberPattern.MatchString(text)
}

// StartsWithActionVerb reports whether the first word of text is a
// recognized action verb.
func StartsWithActionVerb(text string) bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return false
	}
	word := strings.Trim(fields[0], ".,;:!?")
	return actionVerbs[word]
}

// LengthOK reports whether the bullet word count falls in the preferred
// 10-30 word range.
func LengthOK(text string) bool {
	n := len(strings.Fields(text))
	return n >= 10 && n <= 30
}

// ExtractFeatures derives the structural quality flags from bullet text.
func ExtractFeatures(text string) BulletFeatures {
	return BulletFeatures{
		HasNumbers: HasQuantifiedResult(text),
		ActionVerb: StartsWithActionVerb(text),
		LengthOK:   LengthOK(text),
	}
}
