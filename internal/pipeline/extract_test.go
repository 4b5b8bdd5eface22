package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier(t *testing.T) {
	c := NewClassifier()

	awb := c.Classify("awb_shipment_180.pdf")
	assert.Equal(t, "awb", awb.DocType)
	assert.Equal(t, 0.94, awb.Confidence)
	assert.Equal(t, ClassifierModelVersion, awb.ModelVersion)

	inv := c.Classify("supplier-invoice-march.pdf")
	assert.Equal(t, "fiar_invoice", inv.DocType)
	assert.Equal(t, 0.92, inv.Confidence)

	other := c.Classify("packing_list.pdf")
	assert.Equal(t, "unclassified", other.DocType)
	assert.Equal(t, 0.55, other.Confidence)
}

func TestMockExtractorAWB(t *testing.T) {
	m := NewMockExtractor()

	out, err := m.Extract(context.Background(), "awb", nil, "awb_shipment.pdf")
	require.NoError(t, err)
	assert.Equal(t, "180-12345675", out.Fields["awb_number"])
	assert.Equal(t, mockModelVersion, out.ModelVersion)
	assert.InDelta(t, 0.95, out.AvgConfidence(), 0.001)
}

func TestMockExtractorLowConfidenceHint(t *testing.T) {
	m := NewMockExtractor()

	out, err := m.Extract(context.Background(), "awb", nil, "awb_LOWCONF_scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "123-INVALID", out.Fields["awb_number"])
	assert.Equal(t, -4.0, out.Fields["weight_kg"])
	assert.Equal(t, 0.55, out.AvgConfidence())
}

func TestAvgConfidenceEmpty(t *testing.T) {
	e := &Extraction{}
	assert.Equal(t, 0.0, e.AvgConfidence())
}

type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, docType string, content []byte, textHint string) (*Extraction, error) {
	return nil, errors.New("backend unavailable")
}

func TestExtractionServiceFallback(t *testing.T) {
	svc := NewExtractionService(failingExtractor{})

	out := svc.Extract(context.Background(), "awb", nil, "awb.pdf")
	assert.Equal(t, "180-12345675", out.Fields["awb_number"])
	assert.Equal(t, mockModelVersion+"-fallback", out.ModelVersion)
}

func TestPreprocessorMarksURI(t *testing.T) {
	p := NewPreprocessor(nil)

	uri, content, err := p.Run(context.Background(), "file:///tmp/x.pdf", []byte("raw"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/x.pdf#preprocessed", uri)
	assert.Equal(t, []byte("raw"), content)
}
