package fiar

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/integrations"
	"github.com/nexuscargo/backend/internal/store"
)

// acceptedExportStatuses are partner responses that count as success.
var acceptedExportStatuses = map[string]bool{
	"queued":   true,
	"exported": true,
	"accepted": true,
}

// AccountingAdapter pushes an approved invoice into the accounting system.
type AccountingAdapter interface {
	ExportInvoice(ctx context.Context, invoiceRef string, amount float64, currency string) (string, error)
}

type MockAccountingAdapter struct {
	Status string
}

func (m *MockAccountingAdapter) ExportInvoice(ctx context.Context, invoiceRef string, amount float64, currency string) (string, error) {
	if m.Status != "" {
		return m.Status, nil
	}
	return "queued", nil
}

// HTTPAccountingAdapter exports through the shared JSON adapter.
type HTTPAccountingAdapter struct {
	Client *integrations.JSONHTTPAdapter
}

func (h *HTTPAccountingAdapter) ExportInvoice(ctx context.Context, invoiceRef string, amount float64, currency string) (string, error) {
	resp, err := h.Client.Post(ctx, "/accounting/invoices", map[string]interface{}{
		"invoice_ref": invoiceRef,
		"amount":      amount,
		"currency":    currency,
	})
	if err != nil {
		return "", err
	}
	status, _ := resp["status"].(string)
	status = strings.ToLower(status)
	if !acceptedExportStatuses[status] {
		return status, &integrations.IntegrationError{
			Op: "accounting-export", Msg: "accounting system rejected invoice " + invoiceRef,
		}
	}
	return status, nil
}

type Service struct {
	store      store.Store
	audit      *audit.Recorder
	accounting AccountingAdapter
	logger     *log.Logger
}

func NewService(st store.Store, rec *audit.Recorder, accounting AccountingAdapter) *Service {
	if accounting == nil {
		accounting = &MockAccountingAdapter{}
	}
	return &Service{
		store:      st,
		audit:      rec,
		accounting: accounting,
		logger:     log.New(log.Writer(), "[FIAR] ", log.LstdFlags),
	}
}

// Match runs the three-way match. Pure computation, no persistence.
func (s *Service) Match(in MatchInput) MatchResult {
	return ThreeWayMatch(in)
}

// ExportInvoice pushes the invoice to accounting and records the export.
func (s *Service) ExportInvoice(ctx context.Context, tenantID, actor, invoiceRef string, amount float64, currency string) (*store.InvoiceExport, error) {
	if currency == "" {
		currency = "USD"
	}
	status, err := s.accounting.ExportInvoice(ctx, invoiceRef, amount, currency)
	if err != nil {
		return nil, err
	}

	exp := &store.InvoiceExport{
		ID:         store.NewID("inv"),
		TenantID:   tenantID,
		InvoiceRef: invoiceRef,
		Amount:     amount,
		Currency:   currency,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	err = s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.CreateInvoiceExport(ctx, exp); err != nil {
			return err
		}
		return s.audit.WithStore(st).Record(ctx, tenantID, actor, "fiar.invoice_exported", "invoice_export", exp.ID, map[string]interface{}{
			"invoice_ref": invoiceRef,
			"amount":      amount,
			"status":      status,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("✅ Exported invoice %s (%s)", invoiceRef, status)
	return exp, nil
}

// ListExports returns recent invoice exports.
func (s *Service) ListExports(ctx context.Context, tenantID string, limit int) ([]*store.InvoiceExport, error) {
	return s.store.ListInvoiceExports(ctx, tenantID, limit)
}
