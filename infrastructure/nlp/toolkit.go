// Package nlp adapts the NLP libraries used by the metric units: Punkt
// sentence segmentation from neurosnap/sentences and the Treebank
// tokenizer, perceptron tagger and NER chunker from prose.
//
// The toolkit must be initialized explicitly with Init at process start.
// Init is idempotent and safe to call from several goroutines.
package nlp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
	"github.com/neurosnap/sentences"
	sentencesdata "github.com/neurosnap/sentences/data"

	"github.com/ahrav/go-precis/internal/log"
	"github.com/ahrav/go-precis/internal/ports"
)

var (
	_ ports.Tokenizer       = (*Toolkit)(nil)
	_ ports.EntityExtractor = (*Toolkit)(nil)
)

var (
	initOnce       sync.Once
	defaultToolkit *Toolkit
	initErr        error
)

// Toolkit implements ports.Tokenizer and ports.EntityExtractor.
// It holds no per-call state and is safe for concurrent use.
type Toolkit struct {
	punkt *sentences.DefaultSentenceTokenizer
	// model is decoded once and shared by every document; prose otherwise
	// rebuilds the tagger and NER weights on each NewDocument call.
	model *prose.Model
}

// Init loads the Punkt English training data and checks that the tagger
// and NER models decode. Every call returns the same Toolkit.
func Init() (*Toolkit, error) {
	initOnce.Do(func() {
		defaultToolkit, initErr = newToolkit()
		if initErr == nil {
			log.Debugf("nlp toolkit initialized")
		}
	})
	return defaultToolkit, initErr
}

func newToolkit() (*Toolkit, error) {
	b, err := sentencesdata.Asset("data/english.json")
	if err != nil {
		return nil, fmt.Errorf("load english punkt data: %w", err)
	}
	training, err := sentences.LoadTraining(b)
	if err != nil {
		return nil, fmt.Errorf("parse english punkt data: %w", err)
	}

	// Decode the embedded tagger and NER models once so a broken build
	// fails here rather than inside a request.
	warm, err := prose.NewDocument("Ada Lovelace lived in London.", prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("load prose models: %w", err)
	}

	return &Toolkit{
		punkt: sentences.NewSentenceTokenizer(training),
		model: warm.Model,
	}, nil
}

// document parses text with the shared model.
func (t *Toolkit) document(text string, opts ...prose.DocOpt) (*prose.Document, error) {
	return prose.NewDocument(text, append([]prose.DocOpt{prose.UsingModel(t.model)}, opts...)...)
}

// Sentences segments text with the Punkt English model.
// Blank text yields no sentences.
func (t *Toolkit) Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := t.punkt.Tokenize(text)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Words tokenizes text into Treebank-style word and punctuation tokens.
func (t *Toolkit) Words(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := t.document(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		log.Warnf("nlp: tokenize failed, falling back to whitespace split: %v", err)
		return strings.Fields(text)
	}
	toks := doc.Tokens()
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Text)
	}
	return out
}

// Entities returns the named-entity chunks found in text. Each entity is
// its tokens joined by single spaces.
func (t *Toolkit) Entities(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	doc, err := t.document(text, prose.WithSegmentation(false))
	if err != nil {
		log.Warnf("nlp: entity extraction failed: %v", err)
		return nil
	}
	ents := doc.Entities()
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if joined := strings.Join(strings.Fields(e.Text), " "); joined != "" {
			out = append(out, joined)
		}
	}
	return out
}
