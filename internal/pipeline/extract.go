package pipeline

import (
	"context"
	"log"
	"strings"
)

// Extraction is the structured output of field extraction.
type Extraction struct {
	Fields       map[string]interface{} `json:"fields"`
	Confidence   map[string]float64     `json:"confidence"`
	ModelVersion string                 `json:"model_version"`
}

// AvgConfidence is the mean per-field confidence, 0 for empty maps.
func (e *Extraction) AvgConfidence() float64 {
	sum := 0.0
	for _, c := range e.Confidence {
		sum += c
	}
	n := len(e.Confidence)
	if n < 1 {
		n = 1
	}
	return sum / float64(n)
}

// Extractor pulls structured fields out of a document.
type Extractor interface {
	Extract(ctx context.Context, docType string, content []byte, textHint string) (*Extraction, error)
}

// MockExtractor returns deterministic fixtures keyed off the document type
// and the text hint. A hint containing "lowconf" simulates a degraded scan:
// malformed fields with uniformly low confidence, which drives the review
// gate downstream.
type MockExtractor struct{}

const mockModelVersion = "extract-mock-v1"

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) Extract(ctx context.Context, docType string, content []byte, textHint string) (*Extraction, error) {
	if strings.Contains(strings.ToLower(textHint), "lowconf") {
		return &Extraction{
			Fields: map[string]interface{}{
				"awb_number": "123-INVALID",
				"weight_kg":  -4.0,
				"shipper":    "Unknown Shipper",
			},
			Confidence: map[string]float64{
				"awb_number": 0.55,
				"weight_kg":  0.55,
				"shipper":    0.55,
			},
			ModelVersion: mockModelVersion,
		}, nil
	}

	if docType == "awb" {
		return &Extraction{
			Fields: map[string]interface{}{
				"awb_number":          "180-12345675",
				"weight_kg":           120.5,
				"shipper":             "Acme Exports Pty Ltd",
				"consignee":           "Globex Logistics GmbH",
				"destination_country": "DE",
			},
			Confidence: map[string]float64{
				"awb_number":          0.98,
				"weight_kg":           0.95,
				"shipper":             0.93,
				"consignee":           0.93,
				"destination_country": 0.96,
			},
			ModelVersion: mockModelVersion,
		}, nil
	}

	return &Extraction{
		Fields: map[string]interface{}{
			"invoice_number": "INV-10421",
			"amount":         1250.0,
			"currency":       "USD",
			"supplier":       "Acme Exports Pty Ltd",
			"hs_code":        "850440",
		},
		Confidence: map[string]float64{
			"invoice_number": 0.94,
			"amount":         0.92,
			"currency":       0.97,
			"supplier":       0.9,
			"hs_code":        0.88,
		},
		ModelVersion: mockModelVersion,
	}, nil
}

var _ Extractor = (*MockExtractor)(nil)

// ExtractionService wraps the configured extractor with the mock fallback:
// any backend error degrades to deterministic mock output with a
// "-fallback" model version suffix instead of failing ingestion.
type ExtractionService struct {
	backend  Extractor
	fallback *MockExtractor
	logger   *log.Logger
}

func NewExtractionService(backend Extractor) *ExtractionService {
	if backend == nil {
		backend = NewMockExtractor()
	}
	return &ExtractionService{
		backend:  backend,
		fallback: NewMockExtractor(),
		logger:   log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags),
	}
}

func (s *ExtractionService) Extract(ctx context.Context, docType string, content []byte, textHint string) *Extraction {
	out, err := s.backend.Extract(ctx, docType, content, textHint)
	if err == nil {
		return out
	}
	s.logger.Printf("⚠️  Extraction backend failed, using fallback: %v", err)
	fb, _ := s.fallback.Extract(ctx, docType, content, textHint)
	fb.ModelVersion = fb.ModelVersion + "-fallback"
	return fb
}
