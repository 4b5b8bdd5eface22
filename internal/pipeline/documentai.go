package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"

	documentai "google.golang.org/api/documentai/v1"
)

// DocumentAIExtractor runs field extraction through a Google Document AI
// processor. Errors bubble up to ExtractionService, which degrades to the
// mock fallback unconditionally.
type DocumentAIExtractor struct {
	svc           *documentai.Service
	processorName string
	logger        *log.Logger
}

func NewDocumentAIExtractor(ctx context.Context, project, location, processorID string) (*DocumentAIExtractor, error) {
	svc, err := documentai.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("documentai.NewService: %w", err)
	}
	return &DocumentAIExtractor{
		svc:           svc,
		processorName: fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID),
		logger:        log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags),
	}, nil
}

func (d *DocumentAIExtractor) Extract(ctx context.Context, docType string, content []byte, textHint string) (*Extraction, error) {
	req := &documentai.GoogleCloudDocumentaiV1ProcessRequest{
		RawDocument: &documentai.GoogleCloudDocumentaiV1RawDocument{
			Content:  base64.StdEncoding.EncodeToString(content),
			MimeType: http.DetectContentType(content),
		},
	}

	resp, err := d.svc.Projects.Locations.Processors.Process(d.processorName, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("documentai process: %w", err)
	}
	if resp.Document == nil {
		return nil, fmt.Errorf("documentai process: empty document")
	}

	fields := make(map[string]interface{})
	confidence := make(map[string]float64)
	for _, entity := range resp.Document.Entities {
		if entity.Type == "" {
			continue
		}
		fields[entity.Type] = entity.MentionText
		confidence[entity.Type] = entity.Confidence
	}

	return &Extraction{
		Fields:       fields,
		Confidence:   confidence,
		ModelVersion: "documentai-v1",
	}, nil
}

var _ Extractor = (*DocumentAIExtractor)(nil)
