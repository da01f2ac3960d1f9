package units

import (
	"regexp"
	"strings"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// rougeTokens lowercases text, treats every non-alphanumeric run as a
// separator and optionally Porter-stems tokens longer than 3 characters.
func rougeTokens(text string, stem bool) []string {
	fields := strings.Fields(nonAlphaNum.ReplaceAllString(strings.ToLower(text), " "))
	if !stem {
		return fields
	}
	for i, f := range fields {
		if len(f) > 3 {
			fields[i] = porterStem(f)
		}
	}
	return fields
}

// rougeScore holds one ROUGE variant.
type rougeScore struct {
	Precision float64
	Recall    float64
	FMeasure  float64
}

func fMeasure(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// rougeN scores clipped n-gram overlap of prediction against target.
func rougeN(target, prediction []string, n int) rougeScore {
	if len(target) == 0 || len(prediction) == 0 {
		return rougeScore{}
	}
	tgt := countNGrams(target, n)
	pred := countNGrams(prediction, n)

	overlap, tgtTotal, predTotal := 0, 0, 0
	for g, c := range tgt {
		tgtTotal += c
		overlap += min(c, pred[g])
	}
	for _, c := range pred {
		predTotal += c
	}

	p := float64(overlap) / float64(max(predTotal, 1))
	r := float64(overlap) / float64(max(tgtTotal, 1))
	return rougeScore{Precision: p, Recall: r, FMeasure: fMeasure(p, r)}
}

// rougeL scores the longest common subsequence of prediction and target.
func rougeL(target, prediction []string) rougeScore {
	if len(target) == 0 || len(prediction) == 0 {
		return rougeScore{}
	}
	lcs := float64(lcsLength(target, prediction))
	p := lcs / float64(len(prediction))
	r := lcs / float64(len(target))
	return rougeScore{Precision: p, Recall: r, FMeasure: fMeasure(p, r)}
}

func countNGrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

// lcsLength uses two rolling rows of the dynamic-programming table.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
