// Command precis-eval scores a JSONL file of {original, summary, reference}
// records and writes JSONL results or a CSV export.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ahrav/go-precis/infrastructure/nlp"
	"github.com/ahrav/go-precis/infrastructure/units"
	"github.com/ahrav/go-precis/internal/application"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/export"
	"github.com/ahrav/go-precis/internal/log"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 64 << 20

type resultLine struct {
	Line    int                  `json:"line"`
	Metrics *domain.MetricResult `json:"metrics,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func main() {
	var (
		inPath  = flag.String("input", "-", "JSONL input file, - for stdin")
		outPath = flag.String("output", "-", "Output file, - for stdout")
		format  = flag.String("format", "jsonl", "Output format: jsonl or csv")
		workers = flag.Int("workers", application.DefaultWorkers, "Concurrent evaluations")
	)
	flag.Parse()

	if *format != "jsonl" && *format != "csv" {
		log.Fatalf("Unknown format %q (expected jsonl or csv)", *format)
	}

	inputs, err := readInputs(*inPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	toolkit, err := nlp.Init()
	if err != nil {
		log.Fatalf("Failed to initialize NLP toolkit: %v", err)
	}
	engine, err := application.NewMetricsEngine(
		application.NewUnitRegistry(units.Dependencies{Tokenizer: toolkit, Entities: toolkit}),
		application.EngineOptions{Workers: *workers},
	)
	if err != nil {
		log.Fatalf("Failed to build metrics engine: %v", err)
	}
	defer engine.Close()

	results, err := engine.EvaluateBatch(context.Background(), inputs)
	if err != nil {
		log.Fatalf("Evaluation failed: %v", err)
	}

	out := os.Stdout
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("Failed to create output: %v", err)
		}
		defer f.Close()
		out = f
	}

	if *format == "csv" {
		err = writeCSV(out, inputs, results)
	} else {
		err = writeJSONL(out, results)
	}
	if err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}
}

func readInputs(path string) ([]domain.MetricInput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var inputs []domain.MetricInput
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var in domain.MetricInput
		if err := json.Unmarshal(sc.Bytes(), &in); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, sc.Err()
}

func writeJSONL(w io.Writer, results []application.BatchResult) error {
	enc := json.NewEncoder(w)
	for i, res := range results {
		line := resultLine{Line: i + 1}
		if res.Err != nil {
			line.Error = res.Err.Error()
		} else {
			line.Metrics = &res.Result
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

// writeCSV exports scored rows; failed inputs are logged and skipped.
func writeCSV(w io.Writer, inputs []domain.MetricInput, results []application.BatchResult) error {
	rows := make([]export.Row, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			log.Warnf("Skipping record %d: %v", i+1, res.Err)
			continue
		}
		rows = append(rows, export.Row{Original: inputs[i].Original, Summary: inputs[i].Summary, Metrics: res.Result})
	}
	return export.WriteCSV(w, rows)
}
