package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[:：]+$`)

// NormalizeLabel lowercases, trims trailing colons and collapses whitespace.
func NormalizeLabel(label string) string {
	label = strings.ToLower(label)
	label = whitespaceRegex.ReplaceAllString(label, " ")
	label = strings.TrimSpace(label)
	label = punctuationRegex.ReplaceAllString(label, "")
	return strings.TrimSpace(label)
}

// ContainsAny reports whether the normalized text contains any of the (lowercase) needles.
func ContainsAny(text string, needles ...string) bool {
	text = NormalizeLabel(text)
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// MatchThreshold is the minimum Jaro-Winkler similarity accepted by BestMatch.
const MatchThreshold = 0.88

// BestMatch returns the index of the candidate that label refers to. Substring
// containment wins, otherwise the closest candidate by Jaro-Winkler similarity
// is taken if it clears MatchThreshold. Returns -1 if nothing matches.
func BestMatch(label string, candidates []string) int {
	label = NormalizeLabel(label)
	if label == "" {
		return -1
	}
	for i, c := range candidates {
		if strings.Contains(label, NormalizeLabel(c)) {
			return i
		}
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		score := matchr.JaroWinkler(label, NormalizeLabel(c), false)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if bestScore < MatchThreshold {
		return -1
	}
	return best
}
