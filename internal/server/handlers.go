package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ahrav/go-precis/infrastructure/summarizer"
	"github.com/ahrav/go-precis/internal/application"
	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/export"
	"github.com/ahrav/go-precis/internal/ingest"
)

type enginesResponse struct {
	Engines []summarizer.EngineInfo `json:"engines"`
	Default string                  `json:"default"`
}

type maxWordsRange struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Step    int `json:"step"`
	Default int `json:"default"`
}

type stylesResponse struct {
	Styles       []domain.Style `json:"styles"`
	DefaultStyle domain.Style   `json:"default_style"`
	MaxWords     maxWordsRange  `json:"max_words"`
}

type modelsResponse struct {
	Engine string                 `json:"engine"`
	Models []summarizer.ModelInfo `json:"models"`
}

type summarizeResponse struct {
	application.SummarizeResponse
	SummaryHTML string `json:"summary_html"`
}

type evaluateResponse struct {
	Metrics domain.MetricResult `json:"metrics"`
}

type batchRequest struct {
	Inputs []domain.MetricInput `json:"inputs"`
}

type batchItem struct {
	Index   int                  `json:"index"`
	Metrics *domain.MetricResult `json:"metrics,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchItem `json:"results"`
}

type uploadResponse struct {
	Filename string        `json:"filename"`
	Format   ingest.Format `json:"format"`
	Text     string        `json:"text"`
	Words    int           `json:"words"`
}

type exportRequest struct {
	Rows []export.Row `json:"rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEngines(w http.ResponseWriter, _ *http.Request) {
	infos := s.engines.Engines()
	resp := enginesResponse{Engines: infos}
	for _, info := range infos {
		if info.Default {
			resp.Default = info.Name
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	models, err := s.engines.ListModels(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modelsResponse{Engine: name, Models: models})
}

func (s *Server) handleStyles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stylesResponse{
		Styles:       domain.Styles(),
		DefaultStyle: s.defaultStyle,
		MaxWords: maxWordsRange{
			Min:     domain.MinMaxWords,
			Max:     domain.MaxMaxWords,
			Step:    domain.MaxWordsStep,
			Default: s.defaultMaxWords,
		},
	})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req application.SummarizeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.summaries.Summarize(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	html, err := s.renderMarkdown(resp.Summary.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{SummarizeResponse: resp, SummaryHTML: html})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var in domain.MetricInput
	if err := s.decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.metrics.Evaluate(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Metrics: res})
}

func (s *Server) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Inputs) > s.maxBatchSize {
		s.writeError(w, r, fmt.Errorf("%w: batch of %d exceeds limit of %d", domain.ErrInvalidInput, len(req.Inputs), s.maxBatchSize))
		return
	}

	results, err := s.metrics.EvaluateBatch(r.Context(), req.Inputs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]batchItem, len(results))
	for i, res := range results {
		items[i] = batchItem{Index: i}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			continue
		}
		items[i].Metrics = &res.Result
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: items})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: multipart field \"file\" is required: %v", domain.ErrInvalidInput, err)
		}
		s.writeError(w, r, err)
		return
	}
	defer file.Close()

	format, err := ingest.FormatFor(header.Filename)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := ingest.Extract(header.Filename, file, s.maxUploadBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename: header.Filename,
		Format:   format,
		Text:     text,
		Words:    len(strings.Fields(text)),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, req.Rows); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// decode reads a single JSON document with unknown fields rejected.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: malformed JSON body: %v", domain.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON document", domain.ErrInvalidInput)
	}
	return nil
}

// renderMarkdown converts summary markdown (bullets from the concise style)
// to HTML. Raw HTML in the summary is omitted.
func (s *Server) renderMarkdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}
