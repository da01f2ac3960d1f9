package units

import "strings"

// porterExceptions are the whole-word forms the NLTK extensions of the
// Porter algorithm map directly.
var porterExceptions = map[string]string{
	"sky":      "sky",
	"skies":    "sky",
	"dying":    "die",
	"lying":    "lie",
	"tying":    "tie",
	"news":     "news",
	"inning":   "inning",
	"innings":  "inning",
	"outing":   "outing",
	"outings":  "outing",
	"canning":  "canning",
	"cannings": "canning",
	"howe":     "howe",
	"proceed":  "proceed",
	"exceed":   "exceed",
	"succeed":  "succeed",
}

// porterStem stems a lowercase ASCII word with the Porter algorithm as
// extended by NLTK, the variant reference ROUGE scorers use.
func porterStem(word string) string {
	if len(word) <= 2 {
		return word
	}
	if base, ok := porterExceptions[word]; ok {
		return base
	}
	for _, step := range []func(string) string{
		porterStep1a, porterStep1b, porterStep1c,
		porterStep2, porterStep3, porterStep4,
		porterStep5a, porterStep5b,
	} {
		word = step(word)
	}
	return word
}

// consonantAt reports whether word[i] is a consonant. y is a consonant
// when it starts the word or follows a vowel.
func consonantAt(word string, i int) bool {
	if i < 0 || i >= len(word) {
		return false
	}
	switch word[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	case 'y':
		return i == 0 || !consonantAt(word, i-1)
	}
	return true
}

func hasVowel(stem string) bool {
	for i := range len(stem) {
		if !consonantAt(stem, i) {
			return true
		}
	}
	return false
}

// porterMeasure counts the vowel-consonant sequences in stem.
func porterMeasure(stem string) int {
	m := 0
	afterVowel := false
	for i := range len(stem) {
		if consonantAt(stem, i) {
			if afterVowel {
				m++
			}
			afterVowel = false
		} else {
			afterVowel = true
		}
	}
	return m
}

func measureAbove(n int) func(string) bool {
	return func(stem string) bool { return porterMeasure(stem) > n }
}

func endsDoubleConsonant(word string) bool {
	n := len(word)
	return n >= 2 && word[n-1] == word[n-2] && consonantAt(word, n-1)
}

// endsCVC reports a consonant-vowel-consonant ending whose last letter is
// not w, x or y. Two-letter vowel-consonant words also qualify.
func endsCVC(word string) bool {
	n := len(word)
	if n >= 3 {
		last := word[n-1]
		if consonantAt(word, n-3) && !consonantAt(word, n-2) && consonantAt(word, n-1) &&
			last != 'w' && last != 'x' && last != 'y' {
			return true
		}
	}
	return n == 2 && !consonantAt(word, 0) && consonantAt(word, 1)
}

// suffixRule rewrites suffix to replacement when cond accepts the stem left
// after removing suffix. A suffix of "*d" matches any double consonant.
type suffixRule struct {
	suffix      string
	replacement string
	cond        func(stem string) bool
}

// applySuffixRules applies the first rule whose suffix matches. A matched
// rule whose condition fails stops the search.
func applySuffixRules(word string, rules []suffixRule) string {
	for _, r := range rules {
		var stem string
		switch {
		case r.suffix == "*d":
			if !endsDoubleConsonant(word) {
				continue
			}
			stem = word[:len(word)-2]
		case strings.HasSuffix(word, r.suffix):
			stem = word[:len(word)-len(r.suffix)]
		default:
			continue
		}
		if r.cond == nil || r.cond(stem) {
			return stem + r.replacement
		}
		return word
	}
	return word
}

func porterStep1a(word string) string {
	if len(word) == 4 && strings.HasSuffix(word, "ies") {
		return word[:1] + "ie"
	}
	return applySuffixRules(word, []suffixRule{
		{suffix: "sses", replacement: "ss"},
		{suffix: "ies", replacement: "i"},
		{suffix: "ss", replacement: "ss"},
		{suffix: "s"},
	})
}

func porterStep1b(word string) string {
	if strings.HasSuffix(word, "ied") {
		if len(word) == 4 {
			return word[:1] + "ie"
		}
		return word[:len(word)-3] + "i"
	}
	if strings.HasSuffix(word, "eed") {
		if stem := word[:len(word)-3]; porterMeasure(stem) > 0 {
			return stem + "ee"
		}
		return word
	}

	var stem string
	for _, suffix := range []string{"ed", "ing"} {
		if s, ok := strings.CutSuffix(word, suffix); ok && hasVowel(s) {
			stem = s
			break
		}
	}
	if stem == "" {
		return word
	}

	last := stem[len(stem)-1]
	return applySuffixRules(stem, []suffixRule{
		{suffix: "at", replacement: "ate"},
		{suffix: "bl", replacement: "ble"},
		{suffix: "iz", replacement: "ize"},
		{
			suffix:      "*d",
			replacement: string(last),
			cond:        func(string) bool { return last != 'l' && last != 's' && last != 'z' },
		},
		{
			suffix:      "",
			replacement: "e",
			cond:        func(s string) bool { return porterMeasure(s) == 1 && endsCVC(s) },
		},
	})
}

func porterStep1c(word string) string {
	return applySuffixRules(word, []suffixRule{{
		suffix:      "y",
		replacement: "i",
		cond:        func(s string) bool { return len(s) > 1 && consonantAt(s, len(s)-1) },
	}})
}

func porterStep2(word string) string {
	if s, ok := strings.CutSuffix(word, "alli"); ok && porterMeasure(s) > 0 {
		return porterStep2(s + "al")
	}
	m0 := measureAbove(0)
	return applySuffixRules(word, []suffixRule{
		{"ational", "ate", m0},
		{"tional", "tion", m0},
		{"enci", "ence", m0},
		{"anci", "ance", m0},
		{"izer", "ize", m0},
		{"bli", "ble", m0},
		{"alli", "al", m0},
		{"entli", "ent", m0},
		{"eli", "e", m0},
		{"ousli", "ous", m0},
		{"ization", "ize", m0},
		{"ation", "ate", m0},
		{"ator", "ate", m0},
		{"alism", "al", m0},
		{"iveness", "ive", m0},
		{"fulness", "ful", m0},
		{"ousness", "ous", m0},
		{"aliti", "al", m0},
		{"iviti", "ive", m0},
		{"biliti", "ble", m0},
		{"fulli", "ful", m0},
		// The measure is taken on the stem with the "l" of "logi" kept.
		{"logi", "log", func(string) bool { return porterMeasure(word[:len(word)-3]) > 0 }},
	})
}

func porterStep3(word string) string {
	m0 := measureAbove(0)
	return applySuffixRules(word, []suffixRule{
		{"icate", "ic", m0},
		{"ative", "", m0},
		{"alize", "al", m0},
		{"iciti", "ic", m0},
		{"ical", "ic", m0},
		{"ful", "", m0},
		{"ness", "", m0},
	})
}

func porterStep4(word string) string {
	m1 := measureAbove(1)
	return applySuffixRules(word, []suffixRule{
		{"al", "", m1},
		{"ance", "", m1},
		{"ence", "", m1},
		{"er", "", m1},
		{"ic", "", m1},
		{"able", "", m1},
		{"ible", "", m1},
		{"ant", "", m1},
		{"ement", "", m1},
		{"ment", "", m1},
		{"ent", "", m1},
		{"ion", "", func(s string) bool {
			return porterMeasure(s) > 1 && (strings.HasSuffix(s, "s") || strings.HasSuffix(s, "t"))
		}},
		{"ou", "", m1},
		{"ism", "", m1},
		{"ate", "", m1},
		{"iti", "", m1},
		{"ous", "", m1},
		{"ive", "", m1},
		{"ize", "", m1},
	})
}

func porterStep5a(word string) string {
	stem, ok := strings.CutSuffix(word, "e")
	if !ok {
		return word
	}
	if m := porterMeasure(stem); m > 1 || (m == 1 && !endsCVC(stem)) {
		return stem
	}
	return word
}

func porterStep5b(word string) string {
	if strings.HasSuffix(word, "ll") && porterMeasure(word[:len(word)-1]) > 1 {
		return word[:len(word)-1]
	}
	return word
}
