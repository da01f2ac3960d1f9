package units

import "strings"

// EstimateSyllables approximates the syllable count of word by counting
// maximal runs of the vowels a, e, i, o, u and y. A trailing "e" removes
// one syllable (never below 1) and the result is clamped to at least 1,
// so empty strings and punctuation count as one syllable.
//
// The heuristic deliberately ignores diphthongs and silent letters other
// than a final e.
func EstimateSyllables(word string) int {
	word = strings.ToLower(word)

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := isSyllableVowel(r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(word, "e") {
		count = max(1, count-1)
	}
	return max(1, count)
}

func isSyllableVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
