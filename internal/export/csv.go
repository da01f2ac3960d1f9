// Package export writes evaluated summaries as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ahrav/go-precis/internal/domain"
)

// FileName is the download name of an export.
const FileName = "summary_results.csv"

// ContentType is the media type of an export.
const ContentType = "text/csv; charset=utf-8"

var (
	baseHeader      = []string{"Original Text", "Summary", "Compression", "Readability", "Entity Retention"}
	referenceHeader = []string{"ROUGE-1 F1", "ROUGE-L F1", "BLEU"}
)

// Row is one exported summary with its scores.
type Row struct {
	Original string              `json:"original"`
	Summary  string              `json:"summary"`
	Metrics  domain.MetricResult `json:"metrics"`
}

// Header returns the CSV header for rows. Reference columns are included
// only when at least one row was scored against a reference.
func Header(rows []Row) []string {
	header := append([]string(nil), baseHeader...)
	if anyScored(rows) {
		header = append(header, referenceHeader...)
	}
	return header
}

// WriteCSV writes the header and one record per row to w. Rows without
// reference scores leave the reference cells empty.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	withReference := anyScored(rows)

	if err := cw.Write(Header(rows)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(record(row, withReference)); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func record(row Row, withReference bool) []string {
	m := row.Metrics
	rec := []string{
		row.Original,
		row.Summary,
		formatScore(m.CompressionRatio),
		formatScore(m.ReadabilityGrade),
		formatScore(m.EntityRetention),
	}
	if !withReference {
		return rec
	}
	if m.Reference.Status != domain.ReferenceScored || m.Reference.Scores == nil {
		return append(rec, "", "", "")
	}
	s := m.Reference.Scores
	return append(rec, formatScore(s.Rouge1F1), formatScore(s.RougeLF1), formatScore(s.BLEU))
}

func anyScored(rows []Row) bool {
	for _, r := range rows {
		if r.Metrics.Reference.Status == domain.ReferenceScored {
			return true
		}
	}
	return false
}

// formatScore prints the shortest representation of an already rounded score.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
