package units

import (
	"math"
	"strings"
)

// bleuOptions configures sentence BLEU.
type bleuOptions struct {
	maxOrder int
	epsilon  float64
}

// sentenceBLEU scores hypothesis against a single reference, both tokenized
// on whitespace. Weights are uniform over orders 1..maxOrder. Zero-count
// orders are smoothed by adding epsilon to the numerator, and the score is
// 0 when no unigram matches.
func sentenceBLEU(reference, hypothesis string, opts bleuOptions) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(hypothesis)

	logSum := 0.0
	weight := 1 / float64(opts.maxOrder)
	for n := 1; n <= opts.maxOrder; n++ {
		num, den := modifiedPrecision(ref, hyp, n)
		if n == 1 && num == 0 {
			return 0
		}
		p := float64(num) / float64(den)
		if num == 0 {
			p = opts.epsilon / float64(den)
		}
		logSum += weight * math.Log(p)
	}

	return brevityPenalty(len(ref), len(hyp)) * math.Exp(logSum)
}

// modifiedPrecision returns the clipped n-gram match count and the
// hypothesis n-gram count floored at 1.
func modifiedPrecision(ref, hyp []string, n int) (int, int) {
	hypCounts := countNGrams(hyp, n)
	refCounts := countNGrams(ref, n)

	matched, total := 0, 0
	for g, c := range hypCounts {
		total += c
		matched += min(c, refCounts[g])
	}
	return matched, max(1, total)
}

func brevityPenalty(refLen, hypLen int) float64 {
	switch {
	case hypLen > refLen:
		return 1
	case hypLen == 0:
		return 0
	default:
		return math.Exp(1 - float64(refLen)/float64(hypLen))
	}
}
