package units

// fakeTokenizer returns canned segmentations so grades can be pinned exactly.
type fakeTokenizer struct {
	sentences map[string][]string
	words     map[string][]string
}

func (f fakeTokenizer) Sentences(text string) []string { return f.sentences[text] }
func (f fakeTokenizer) Words(text string) []string     { return f.words[text] }

// fakeExtractor returns canned entity chunks per text.
type fakeExtractor map[string][]string

func (f fakeExtractor) Entities(text string) []string { return f[text] }
