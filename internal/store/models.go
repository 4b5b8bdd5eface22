package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a prefixed entity id, e.g. "doc_9f1c...".
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Document lifecycle statuses.
const (
	DocStatusReceived       = "received"
	DocStatusValidated      = "validated"
	DocStatusReviewRequired = "review_required"
)

// Review task statuses. Open tasks end up approved or rejected; both are
// terminal.
const (
	ReviewStatusOpen     = "open"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// Webhook delivery statuses.
const (
	DeliveryStatusPending        = "pending"
	DeliveryStatusRetryScheduled = "retry_scheduled"
	DeliveryStatusDelivered      = "delivered"
	DeliveryStatusDeadLettered   = "dead_lettered"
)

// Discrepancy case statuses.
const (
	DiscrepancyStatusOpen      = "open"
	DiscrepancyStatusInDispute = "in_dispute"
	DiscrepancyStatusResolved  = "resolved"
)

// Dispute statuses. At most one open dispute exists per discrepancy case.
const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
)

// Export case statuses.
const (
	ExportStatusDraft     = "draft"
	ExportStatusSubmitted = "submitted"
	ExportStatusAccepted  = "accepted"
	ExportStatusRejected  = "rejected"
)

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Membership struct {
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// RefreshToken rows back JWT refresh rotation. JTI is the token id claim;
// a revoked token has RevokedAt set.
type RefreshToken struct {
	JTI       string     `json:"jti"`
	TenantID  string     `json:"tenant_id"`
	UserID    string     `json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Document struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	FileName       string    `json:"file_name"`
	ContentType    string    `json:"content_type"`
	SizeBytes      int64     `json:"size_bytes"`
	ChecksumSHA256 string    `json:"checksum_sha256"`
	StorageURI     string    `json:"storage_uri"`
	DocType        string    `json:"doc_type"`
	Status         string    `json:"status"`
	Confidence     float64   `json:"confidence"`
	ModelVersion   string    `json:"model_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type DocumentVersion struct {
	ID              string                 `json:"id"`
	TenantID        string                 `json:"tenant_id"`
	DocumentID      string                 `json:"document_id"`
	VersionNumber   int                    `json:"version_number"`
	StorageURI      string                 `json:"storage_uri"`
	ExtractedFields map[string]interface{} `json:"extracted_fields"`
	FieldConfidence map[string]float64     `json:"field_confidence"`
	AvgConfidence   float64                `json:"avg_confidence"`
	ModelVersion    string                 `json:"model_version"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ExtractedEntity is one extracted field persisted as its own row; the
// field name is unique per document and extraction pass.
type ExtractedEntity struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	DocumentID  string    `json:"document_id"`
	FieldName   string    `json:"field_name"`
	FieldValue  string    `json:"field_value"`
	Confidence  float64   `json:"confidence"`
	SourceModel string    `json:"source_model"`
	CreatedAt   time.Time `json:"created_at"`
}

type ValidationResult struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	DocumentID string    `json:"document_id"`
	RuleCode   string    `json:"rule_code"`
	Passed     bool      `json:"passed"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewTask struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	DocumentID  string     `json:"document_id"`
	Status      string     `json:"status"`
	Source      string     `json:"source"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Reason      string     `json:"reason"`
	Confidence  float64    `json:"confidence"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Correction is one reviewer-supplied field fix attached to a completed
// review task.
type Correction struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	ReviewTaskID string    `json:"review_task_id"`
	FieldName    string    `json:"field_name"`
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	ReasonTag    string    `json:"reason_tag"`
	CorrectedBy  string    `json:"corrected_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type WebhookSubscription struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	URL        string    `json:"url"`
	EventTypes []string  `json:"event_types"`
	SecretRef  string    `json:"secret_ref"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// WebhookDelivery is one queued delivery attempt series. The table is the
// delivery queue; workers claim due rows and advance the state machine
// pending -> delivered | retry_scheduled | dead_lettered.
type WebhookDelivery struct {
	ID             string                 `json:"id"`
	TenantID       string                 `json:"tenant_id"`
	SubscriptionID string                 `json:"subscription_id"`
	EventType      string                 `json:"event_type"`
	Payload        map[string]interface{} `json:"payload"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Status         string                 `json:"status"`
	AttemptCount   int                    `json:"attempt_count"`
	NextAttemptAt  time.Time              `json:"next_attempt_at"`
	LastAttemptAt  *time.Time             `json:"last_attempt_at,omitempty"`
	LastError      string                 `json:"last_error,omitempty"`
	DeadLetteredAt *time.Time             `json:"dead_lettered_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

type IdempotencyRecord struct {
	TenantID    string                 `json:"tenant_id"`
	Key         string                 `json:"key"`
	RequestHash string                 `json:"request_hash"`
	Response    map[string]interface{} `json:"response"`
	CreatedAt   time.Time              `json:"created_at"`
}

type AuditEvent struct {
	ID         string                 `json:"id"`
	TenantID   string                 `json:"tenant_id"`
	Actor      string                 `json:"actor"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

type DiscrepancyCase struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	AWBNumber      string    `json:"awb_number,omitempty"`
	DocumentID     string    `json:"document_id,omitempty"`
	DeclaredWeight float64   `json:"declared_weight"`
	ActualWeight   float64   `json:"actual_weight"`
	DeclaredValue  float64   `json:"declared_value"`
	AssessedValue  float64   `json:"assessed_value"`
	WeightDelta    float64   `json:"weight_delta"`
	ValueDelta     float64   `json:"value_delta"`
	AnomalyScore   float64   `json:"anomaly_score"`
	RiskLevel      string    `json:"risk_level"`
	Mismatch       bool      `json:"mismatch"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Dispute tracks the contested lifecycle of a discrepancy case.
type Dispute struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	DiscrepancyID   string     `json:"discrepancy_id"`
	Status          string     `json:"status"`
	OpenedBy        string     `json:"opened_by"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	OpenedAt        time.Time  `json:"opened_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

type ExportCase struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenant_id"`
	Reference          string    `json:"reference"`
	DestinationCountry string    `json:"destination_country"`
	HSCode             string    `json:"hs_code"`
	Status             string    `json:"status"`
	SubmissionID       string    `json:"submission_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ComplianceCheck struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	SubjectType string                 `json:"subject_type"`
	SubjectID   string                 `json:"subject_id"`
	CheckType   string                 `json:"check_type"`
	Passed      bool                   `json:"passed"`
	Details     map[string]interface{} `json:"details,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type VehicleCase struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	VIN          string     `json:"vin"`
	WMI          string     `json:"wmi"`
	VDS          string     `json:"vds"`
	VIS          string     `json:"vis"`
	ArrivalDate  *time.Time `json:"arrival_date,omitempty"`
	BMSBRisk     bool       `json:"bmsb_risk"`
	PermitExpiry *time.Time `json:"permit_expiry,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Alert struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type AWBSubmission struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	AWBNumber string    `json:"awb_number"`
	Carrier   string    `json:"carrier"`
	Shipper   string    `json:"shipper"`
	Consignee string    `json:"consignee"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type InvoiceExport struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	InvoiceRef string    `json:"invoice_ref"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type ModelVersion struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Document) String() string {
	return fmt.Sprintf("Document(%s tenant=%s type=%s status=%s)", d.ID, d.TenantID, d.DocType, d.Status)
}
