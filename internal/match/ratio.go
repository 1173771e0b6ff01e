package match

import (
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	lev "github.com/texttheater/golang-levenshtein/levenshtein"
)

// MaxScore is the natural upper bound of every scorer.
const MaxScore = 100.0

// Ratio computes the normalized Indel similarity of a and b in the 0-100
// range: 100 * (1 - indel(a, b) / (len(a) + len(b))), counted in runes.
// Two empty strings are identical and score 100.
func Ratio(a, b string) float64 {
	return ratioRunes([]rune(a), []rune(b))
}

func ratioRunes(a, b []rune) float64 {
	if len(a)+len(b) == 0 {
		return MaxScore
	}

	// DefaultOptions prices a substitution at 2, which turns the edit
	// distance into the Indel distance.
	return MaxScore * lev.RatioForStrings(a, b, lev.DefaultOptions)
}

// QuickRatio is Ratio, except that an empty input scores 0.
func QuickRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	return Ratio(a, b)
}

// PartialRatio scores the shorter string against every window of the
// longer one with the same length, plus the partial windows hanging over
// either end, and returns the best Ratio found.
//
// Examples:
//   - PartialRatio("czech", "czechia") == 100
//   - PartialRatio("this is a test", "this is a test!") == 100
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}

	if len(short) == 0 {
		if len(long) == 0 {
			return MaxScore
		}

		return 0
	}

	m, n := len(short), len(long)
	best := 0.0

	// consider reports whether a perfect window was found.
	consider := func(window []rune) bool {
		if score := ratioRunes(short, window); score > best {
			best = score
		}

		return best >= MaxScore
	}

	for k := 1; k < m; k++ {
		if consider(long[:k]) {
			return MaxScore
		}
	}

	for i := 0; i+m <= n; i++ {
		if consider(long[i : i+m]) {
			return MaxScore
		}
	}

	for k := m - 1; k >= 1; k-- {
		if consider(long[n-k:]) {
			return MaxScore
		}
	}

	return best
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// PartialTokenSortRatio is PartialRatio over the token-sorted strings.
func PartialTokenSortRatio(a, b string) float64 {
	return PartialRatio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens of both strings against each
// side's full token set. It scores 100 when the token set of one string
// contains the other's.
func TokenSetRatio(a, b string) float64 {
	sect, diffAB, diffBA := tokenSets(a, b)
	if len(sect)+len(diffAB) == 0 || len(sect)+len(diffBA) == 0 {
		return 0
	}

	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return MaxScore
	}

	joinedSect := strings.Join(sect, " ")
	combinedAB := strings.TrimSpace(joinedSect + " " + strings.Join(diffAB, " "))
	combinedBA := strings.TrimSpace(joinedSect + " " + strings.Join(diffBA, " "))

	return max(
		Ratio(joinedSect, combinedAB),
		Ratio(joinedSect, combinedBA),
		Ratio(combinedAB, combinedBA),
	)
}

// PartialTokenSetRatio scores 100 as soon as both strings share a token,
// otherwise the PartialRatio of the sorted token differences.
func PartialTokenSetRatio(a, b string) float64 {
	sect, diffAB, diffBA := tokenSets(a, b)
	if len(sect)+len(diffAB) == 0 || len(sect)+len(diffBA) == 0 {
		return 0
	}

	if len(sect) > 0 {
		return MaxScore
	}

	return PartialRatio(strings.Join(diffAB, " "), strings.Join(diffBA, " "))
}

// WeightedRatio picks the best of the ratio family, weighting partial
// scorers down depending on how different the string lengths are.
func WeightedRatio(a, b string) float64 {
	const (
		unbaseScale = 0.95
		lenRatioMin = 1.5
		lenRatioMax = 8.0
	)

	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}

	base := Ratio(a, b)
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	if lenRatio < lenRatioMin {
		return max(
			base,
			TokenSortRatio(a, b)*unbaseScale,
			TokenSetRatio(a, b)*unbaseScale,
		)
	}

	partialScale := 0.9
	if lenRatio >= lenRatioMax {
		partialScale = 0.6
	}

	return max(
		base,
		PartialRatio(a, b)*partialScale,
		PartialTokenSortRatio(a, b)*unbaseScale*partialScale,
		PartialTokenSetRatio(a, b)*unbaseScale*partialScale,
	)
}

// LevenshteinRatio scores 100 * (1 - distance / max(len(a), len(b))) with
// unit cost substitutions.
func LevenshteinRatio(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return MaxScore
	}

	distance := levenshtein.ComputeDistance(a, b)

	return MaxScore * (1.0 - float64(distance)/float64(maxLen))
}

func sortedTokens(s string) string {
	toks := tokens(s)
	slices.Sort(toks)

	return strings.Join(toks, " ")
}

// tokenSets returns the sorted unique tokens shared by a and b, the ones
// only in a and the ones only in b.
func tokenSets(a, b string) (sect, diffAB, diffBA []string) {
	setA := uniqueTokens(a)
	setB := uniqueTokens(b)

	for tok := range setA {
		if _, ok := setB[tok]; ok {
			sect = append(sect, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}

	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			diffBA = append(diffBA, tok)
		}
	}

	slices.Sort(sect)
	slices.Sort(diffAB)
	slices.Sort(diffBA)

	return sect, diffAB, diffBA
}

func uniqueTokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokens(s) {
		set[tok] = struct{}{}
	}

	return set
}
