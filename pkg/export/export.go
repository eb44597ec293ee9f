// Package export renders completed diagnosis results for download.
package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"medrag-be/internal/pkg/logger"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/diagnosis"
	"medrag-be/pkg/reasoning"
	"medrag-be/pkg/storage"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatHL7  Format = "hl7"
	FormatFHIR Format = "fhir"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatPDF, FormatHL7, FormatFHIR:
		return f, nil
	default:
		return "", apperror.Validation("unsupported export format", map[string]string{"format": s})
	}
}

type Options struct {
	IncludeActions  bool
	SelectedActions []string // action ids; empty keeps every action
}

// Report is what a renderer turns into bytes.
type Report struct {
	SessionID   string
	PatientID   string
	Result      *diagnosis.Result
	GeneratedAt time.Time
}

type Renderer interface {
	Render(r Report) ([]byte, error)
	ContentType() string
	Extension() string
}

// Export is either inline data (json) or a reference to a stored rendering.
type Export struct {
	Format      Format            `json:"format"`
	Data        *diagnosis.Result `json:"data,omitempty"`
	DownloadRef string            `json:"downloadRef,omitempty"`
}

type Download struct {
	Name        string
	ContentType string
	Data        []byte
}

type Exporter struct {
	storage   storage.BlobStorage
	renderers map[Format]Renderer
	logger    logger.ILogger
	now       func() time.Time
}

func NewExporter(blobs storage.BlobStorage, log logger.ILogger) *Exporter {
	return &Exporter{
		storage: blobs,
		renderers: map[Format]Renderer{
			FormatPDF:  pdfRenderer{compress: true},
			FormatHL7:  hl7Renderer{},
			FormatFHIR: fhirRenderer{},
		},
		logger: log,
		now:    time.Now,
	}
}

// Export renders a completed result. JSON is returned inline; other formats are stored and
// returned as a download reference.
func (e *Exporter) Export(ctx context.Context, sessionID, patientID string, result *diagnosis.Result, format Format, opts Options) (*Export, error) {
	if result == nil {
		return nil, apperror.Precondition("diagnosis %s has no result to export", sessionID)
	}
	filtered := filterActions(result, opts)

	if format == FormatJSON {
		return &Export{Format: format, Data: filtered}, nil
	}

	renderer, ok := e.renderers[format]
	if !ok {
		return nil, apperror.Validation("unsupported export format", map[string]string{"format": string(format)})
	}

	data, err := renderer.Render(Report{
		SessionID:   sessionID,
		PatientID:   patientID,
		Result:      filtered,
		GeneratedAt: e.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", format, err)
	}

	ref, err := e.storage.Save(ctx, "diagnosis_"+sessionID+renderer.Extension(), data)
	if err != nil {
		return nil, fmt.Errorf("store %s report: %w", format, err)
	}

	e.logger.Info("EXPORT", "Report rendered", map[string]interface{}{
		"session_id": sessionID,
		"format":     format,
		"bytes":      len(data),
		"ref":        ref,
	})
	return &Export{Format: format, DownloadRef: ref}, nil
}

// Open fetches a stored rendering.
func (e *Exporter) Open(ctx context.Context, ref string) (*Download, error) {
	obj, err := e.storage.Open(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperror.NotFound("export %s not found", ref)
	}
	if err != nil {
		return nil, err
	}
	return &Download{Name: obj.Name, ContentType: contentTypeFor(obj.Name), Data: obj.Data}, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".hl7":
		return "x-application/hl7-v2+er7"
	case ".json":
		return "application/fhir+json"
	default:
		return "application/octet-stream"
	}
}

// filterActions returns a copy of result with the requested subset of actions.
func filterActions(result *diagnosis.Result, opts Options) *diagnosis.Result {
	out := *result
	if !opts.IncludeActions {
		out.RecommendedActions = []reasoning.Action{}
		return &out
	}
	if len(opts.SelectedActions) == 0 {
		return &out
	}

	keep := make(map[string]bool, len(opts.SelectedActions))
	for _, id := range opts.SelectedActions {
		keep[id] = true
	}
	actions := make([]reasoning.Action, 0, len(result.RecommendedActions))
	for _, a := range result.RecommendedActions {
		if keep[a.ID] {
			actions = append(actions, a)
		}
	}
	out.RecommendedActions = actions
	return &out
}
