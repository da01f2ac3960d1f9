package summarizer

import (
	"fmt"

	"github.com/ahrav/go-precis/internal/domain"
)

// Instruction returns the style instruction placed ahead of the source text.
// An empty style reads as neutral; unknown styles are rejected.
func Instruction(style domain.Style, maxWords int) (string, error) {
	if style == "" {
		style = domain.StyleNeutral
	}
	switch style {
	case domain.StyleNeutral:
		return fmt.Sprintf("Summarize the text in no more than %d words. "+
			"Focus only on factual details. Avoid emotional or descriptive language.", maxWords), nil
	case domain.StyleConcise:
		return "Summarize in 3 bullet points, each <= 20 words. Only facts, no elaboration.", nil
	case domain.StyleLayperson:
		return fmt.Sprintf("Explain for a non-expert in <= %d words, using simple language. "+
			"Avoid repetition.", maxWords), nil
	case domain.StylePolicy:
		return fmt.Sprintf("Summarize highlighting risks, limitations, compliance notes in <= %d words. "+
			"Keep it factual and short.", maxWords), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownStyle, style)
	}
}

// BuildPrompt renders the full prompt for a request.
func BuildPrompt(req domain.SummaryRequest) (string, error) {
	instruction, err := Instruction(req.Style, req.MaxWords)
	if err != nil {
		return "", err
	}
	return instruction + "\n\n" + req.Text, nil
}
