package store

import (
	"context"
	"time"
)

// Store is the persistence surface for the platform. Two implementations
// exist: Memory (dev, tests) and Postgres (production). All reads and
// writes are tenant-scoped except the webhook delivery claim, which the
// worker runs across tenants.
type Store interface {
	// RunInTransaction executes fn atomically. The Store passed to fn must
	// be used for every operation inside the transaction.
	RunInTransaction(ctx context.Context, fn func(Store) error) error

	// Tenancy and identity
	EnsureTenant(ctx context.Context, id, name string) error
	EnsureUser(ctx context.Context, email string) (*User, error)
	EnsureMembership(ctx context.Context, tenantID, userID, role string) error

	SaveRefreshToken(ctx context.Context, t *RefreshToken) error
	GetRefreshToken(ctx context.Context, jti string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, jti string) error

	// Documents
	CreateDocument(ctx context.Context, d *Document) error
	UpdateDocument(ctx context.Context, d *Document) error
	GetDocument(ctx context.Context, tenantID, id string) (*Document, error)
	ListDocuments(ctx context.Context, tenantID string, limit int) ([]*Document, error)
	SearchDocuments(ctx context.Context, tenantID, query string, limit int) ([]*Document, error)
	CountDocuments(ctx context.Context, tenantID string) (int, error)

	CreateDocumentVersion(ctx context.Context, v *DocumentVersion) error
	ListDocumentVersions(ctx context.Context, tenantID, documentID string) ([]*DocumentVersion, error)

	CreateExtractedEntities(ctx context.Context, entities []*ExtractedEntity) error
	ListExtractedEntities(ctx context.Context, tenantID, documentID string) ([]*ExtractedEntity, error)

	SaveValidationResults(ctx context.Context, results []*ValidationResult) error
	ListValidationResults(ctx context.Context, tenantID, documentID string) ([]*ValidationResult, error)

	// Review
	CreateReviewTask(ctx context.Context, t *ReviewTask) error
	GetReviewTask(ctx context.Context, tenantID, id string) (*ReviewTask, error)
	GetOpenReviewTask(ctx context.Context, tenantID, documentID string) (*ReviewTask, error)
	UpdateReviewTask(ctx context.Context, t *ReviewTask) error
	ListReviewTasks(ctx context.Context, tenantID, status string, limit int) ([]*ReviewTask, error)
	CountReviewTasks(ctx context.Context, tenantID, status string) (int, error)

	CreateCorrections(ctx context.Context, corrections []*Correction) error
	ListCorrections(ctx context.Context, tenantID, reviewTaskID string) ([]*Correction, error)

	// Webhooks
	CreateWebhookSubscription(ctx context.Context, s *WebhookSubscription) error
	GetWebhookSubscription(ctx context.Context, tenantID, id string) (*WebhookSubscription, error)
	ListWebhookSubscriptions(ctx context.Context, tenantID string) ([]*WebhookSubscription, error)
	SubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]*WebhookSubscription, error)

	// EnqueueDelivery inserts a delivery unless one with the same
	// (tenant_id, idempotency_key) exists. Returns whether a row was created.
	EnqueueDelivery(ctx context.Context, d *WebhookDelivery) (bool, error)
	// ClaimDueDeliveries returns due pending/retry_scheduled rows ordered by
	// next_attempt_at and leases them so concurrent workers skip them.
	ClaimDueDeliveries(ctx context.Context, now time.Time, limit int) ([]*WebhookDelivery, error)
	UpdateDelivery(ctx context.Context, d *WebhookDelivery) error
	GetDelivery(ctx context.Context, tenantID, id string) (*WebhookDelivery, error)
	ListDeadLettered(ctx context.Context, tenantID string, limit int) ([]*WebhookDelivery, error)

	// Idempotency
	GetIdempotencyRecord(ctx context.Context, tenantID, key string) (*IdempotencyRecord, error)
	SaveIdempotencyRecord(ctx context.Context, r *IdempotencyRecord) error

	// Audit
	AppendAudit(ctx context.Context, e *AuditEvent) error
	ListAudit(ctx context.Context, tenantID string, limit int) ([]*AuditEvent, error)

	// Discrepancy
	CreateDiscrepancyCase(ctx context.Context, c *DiscrepancyCase) error
	GetDiscrepancyCase(ctx context.Context, tenantID, id string) (*DiscrepancyCase, error)
	UpdateDiscrepancyCase(ctx context.Context, c *DiscrepancyCase) error
	ListDiscrepancyCases(ctx context.Context, tenantID string, limit int) ([]*DiscrepancyCase, error)
	DiscrepancyStats(ctx context.Context, tenantID string) (total, mismatched int, err error)

	// CreateDispute inserts a dispute; a second open dispute for the same
	// discrepancy case is a duplicate.
	CreateDispute(ctx context.Context, d *Dispute) error
	GetActiveDispute(ctx context.Context, tenantID, discrepancyID string) (*Dispute, error)
	UpdateDispute(ctx context.Context, d *Dispute) error

	// Export cases (AECA)
	CreateExportCase(ctx context.Context, c *ExportCase) error
	GetExportCase(ctx context.Context, tenantID, id string) (*ExportCase, error)
	UpdateExportCase(ctx context.Context, c *ExportCase) error
	ListExportCases(ctx context.Context, tenantID string, limit int) ([]*ExportCase, error)

	CreateComplianceCheck(ctx context.Context, c *ComplianceCheck) error
	ListComplianceChecks(ctx context.Context, tenantID, subjectID string) ([]*ComplianceCheck, error)

	// Vehicle cases (AVIQM)
	CreateVehicleCase(ctx context.Context, c *VehicleCase) error
	GetVehicleCase(ctx context.Context, tenantID, id string) (*VehicleCase, error)
	ListVehicleCases(ctx context.Context, tenantID string, limit int) ([]*VehicleCase, error)

	CreateAlert(ctx context.Context, a *Alert) error
	ListAlerts(ctx context.Context, tenantID string, limit int) ([]*Alert, error)

	// AWB
	CreateAWBSubmission(ctx context.Context, s *AWBSubmission) error
	ListAWBSubmissions(ctx context.Context, tenantID string, limit int) ([]*AWBSubmission, error)
	ListKnownParties(ctx context.Context, tenantID, prefix string, limit int) ([]string, error)

	// FIAR
	CreateInvoiceExport(ctx context.Context, e *InvoiceExport) error
	ListInvoiceExports(ctx context.Context, tenantID string, limit int) ([]*InvoiceExport, error)

	// Model registry
	RegisterModelVersion(ctx context.Context, m *ModelVersion) error
	ListModelVersions(ctx context.Context, name string) ([]*ModelVersion, error)
	ActivateModelVersion(ctx context.Context, name, version string) error
}
