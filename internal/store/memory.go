package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is the in-process Store used in dev and tests. A single mutex
// guards all maps; RunInTransaction serializes writers so multi-step
// workflows observe a consistent view.
type Memory struct {
	mu sync.RWMutex
	tx sync.Mutex

	tenants       map[string]*Tenant
	users         map[string]*User // by email
	memberships   []*Membership
	refreshTokens map[string]*RefreshToken

	documents   map[string]*Document
	versions    map[string][]*DocumentVersion // by document id
	entities    map[string][]*ExtractedEntity // by document id
	validations map[string][]*ValidationResult
	reviews     map[string]*ReviewTask
	corrections map[string][]*Correction // by review task id

	subscriptions map[string]*WebhookSubscription
	deliveries    map[string]*WebhookDelivery
	idempotency   map[string]*IdempotencyRecord // tenant + "\x00" + key

	audits        []*AuditEvent
	discrepancies map[string]*DiscrepancyCase
	disputes      map[string]*Dispute
	exports       map[string]*ExportCase
	compliance    []*ComplianceCheck
	vehicles      map[string]*VehicleCase
	alerts        []*Alert
	awbs          []*AWBSubmission
	invoices      []*InvoiceExport
	models        []*ModelVersion
}

func NewMemory() *Memory {
	return &Memory{
		tenants:       make(map[string]*Tenant),
		users:         make(map[string]*User),
		refreshTokens: make(map[string]*RefreshToken),
		documents:     make(map[string]*Document),
		versions:      make(map[string][]*DocumentVersion),
		entities:      make(map[string][]*ExtractedEntity),
		validations:   make(map[string][]*ValidationResult),
		reviews:       make(map[string]*ReviewTask),
		corrections:   make(map[string][]*Correction),
		subscriptions: make(map[string]*WebhookSubscription),
		deliveries:    make(map[string]*WebhookDelivery),
		idempotency:   make(map[string]*IdempotencyRecord),
		discrepancies: make(map[string]*DiscrepancyCase),
		disputes:      make(map[string]*Dispute),
		exports:       make(map[string]*ExportCase),
		vehicles:      make(map[string]*VehicleCase),
	}
}

func (m *Memory) RunInTransaction(ctx context.Context, fn func(Store) error) error {
	m.tx.Lock()
	defer m.tx.Unlock()
	return fn(m)
}

// ---- tenancy ----

func (m *Memory) EnsureTenant(ctx context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[id]; !ok {
		m.tenants[id] = &Tenant{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	}
	return nil
}

func (m *Memory) EnsureUser(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	u := &User{ID: NewID("usr"), Email: email, CreatedAt: time.Now().UTC()}
	m.users[email] = u
	cp := *u
	return &cp, nil
}

func (m *Memory) EnsureMembership(ctx context.Context, tenantID, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mb := range m.memberships {
		if mb.TenantID == tenantID && mb.UserID == userID {
			return nil
		}
	}
	m.memberships = append(m.memberships, &Membership{
		TenantID: tenantID, UserID: userID, Role: role, CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *Memory) SaveRefreshToken(ctx context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.refreshTokens[t.JTI] = &cp
	return nil
}

func (m *Memory) GetRefreshToken(ctx context.Context, jti string) (*RefreshToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.refreshTokens[jti]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) RevokeRefreshToken(ctx context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.refreshTokens[jti]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	return nil
}

// ---- documents ----

func (m *Memory) CreateDocument(ctx context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

func (m *Memory) UpdateDocument(ctx context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.documents[d.ID]
	if !ok || existing.TenantID != d.TenantID {
		return ErrNotFound
	}
	cp := *d
	cp.UpdatedAt = time.Now().UTC()
	m.documents[d.ID] = &cp
	return nil
}

func (m *Memory) GetDocument(ctx context.Context, tenantID, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok || d.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) ListDocuments(ctx context.Context, tenantID string, limit int) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Document
	for _, d := range m.documents {
		if d.TenantID == tenantID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (m *Memory) SearchDocuments(ctx context.Context, tenantID, query string, limit int) ([]*Document, error) {
	q := strings.ToLower(query)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Document
	for _, d := range m.documents {
		if d.TenantID != tenantID {
			continue
		}
		if strings.Contains(strings.ToLower(d.FileName), q) ||
			strings.Contains(strings.ToLower(d.DocType), q) ||
			strings.Contains(strings.ToLower(d.ID), q) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (m *Memory) CountDocuments(ctx context.Context, tenantID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.documents {
		if d.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateDocumentVersion(ctx context.Context, v *DocumentVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.versions[v.DocumentID] = append(m.versions[v.DocumentID], &cp)
	return nil
}

func (m *Memory) ListDocumentVersions(ctx context.Context, tenantID, documentID string) ([]*DocumentVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*DocumentVersion
	for _, v := range m.versions[documentID] {
		if v.TenantID == tenantID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (m *Memory) CreateExtractedEntities(ctx context.Context, entities []*ExtractedEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		cp := *e
		m.entities[e.DocumentID] = append(m.entities[e.DocumentID], &cp)
	}
	return nil
}

func (m *Memory) ListExtractedEntities(ctx context.Context, tenantID, documentID string) ([]*ExtractedEntity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ExtractedEntity
	for _, e := range m.entities[documentID] {
		if e.TenantID == tenantID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldName < out[j].FieldName })
	return out, nil
}

func (m *Memory) SaveValidationResults(ctx context.Context, results []*ValidationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range results {
		cp := *r
		m.validations[r.DocumentID] = append(m.validations[r.DocumentID], &cp)
	}
	return nil
}

func (m *Memory) ListValidationResults(ctx context.Context, tenantID, documentID string) ([]*ValidationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ValidationResult
	for _, r := range m.validations[documentID] {
		if r.TenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- review ----

func (m *Memory) CreateReviewTask(ctx context.Context, t *ReviewTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.reviews[t.ID] = &cp
	return nil
}

func (m *Memory) GetReviewTask(ctx context.Context, tenantID, id string) (*ReviewTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.reviews[id]
	if !ok || t.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) GetOpenReviewTask(ctx context.Context, tenantID, documentID string) (*ReviewTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.reviews {
		if t.TenantID == tenantID && t.DocumentID == documentID && t.Status == ReviewStatusOpen {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateReviewTask(ctx context.Context, t *ReviewTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reviews[t.ID]
	if !ok || existing.TenantID != t.TenantID {
		return ErrNotFound
	}
	cp := *t
	m.reviews[t.ID] = &cp
	return nil
}

func (m *Memory) ListReviewTasks(ctx context.Context, tenantID, status string, limit int) ([]*ReviewTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ReviewTask
	for _, t := range m.reviews {
		if t.TenantID != tenantID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (m *Memory) CountReviewTasks(ctx context.Context, tenantID, status string) (int, error) {
	tasks, _ := m.ListReviewTasks(ctx, tenantID, status, 0)
	return len(tasks), nil
}

func (m *Memory) CreateCorrections(ctx context.Context, corrections []*Correction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range corrections {
		cp := *c
		m.corrections[c.ReviewTaskID] = append(m.corrections[c.ReviewTaskID], &cp)
	}
	return nil
}

func (m *Memory) ListCorrections(ctx context.Context, tenantID, reviewTaskID string) ([]*Correction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Correction
	for _, c := range m.corrections[reviewTaskID] {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- webhooks ----

func (m *Memory) CreateWebhookSubscription(ctx context.Context, s *WebhookSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subscriptions[s.ID] = &cp
	return nil
}

func (m *Memory) GetWebhookSubscription(ctx context.Context, tenantID, id string) (*WebhookSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subscriptions[id]
	if !ok || s.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ListWebhookSubscriptions(ctx context.Context, tenantID string) ([]*WebhookSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*WebhookSubscription
	for _, s := range m.subscriptions {
		if s.TenantID == tenantID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]*WebhookSubscription, error) {
	subs, err := m.ListWebhookSubscriptions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var out []*WebhookSubscription
	for _, s := range subs {
		if !s.Active {
			continue
		}
		for _, et := range s.EventTypes {
			if et == eventType || et == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) EnqueueDelivery(ctx context.Context, d *WebhookDelivery) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.deliveries {
		if existing.TenantID == d.TenantID && existing.IdempotencyKey == d.IdempotencyKey {
			return false, nil
		}
	}
	cp := *d
	m.deliveries[d.ID] = &cp
	return true, nil
}

func (m *Memory) ClaimDueDeliveries(ctx context.Context, now time.Time, limit int) ([]*WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*WebhookDelivery
	for _, d := range m.deliveries {
		if (d.Status == DeliveryStatusPending || d.Status == DeliveryStatusRetryScheduled) &&
			!d.NextAttemptAt.After(now) {
			due = append(due, d)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	due = clip(due, limit)

	out := make([]*WebhookDelivery, 0, len(due))
	for _, d := range due {
		// Lease so a concurrent claim skips this row.
		d.NextAttemptAt = now.Add(time.Minute)
		cp := *d
		cp.NextAttemptAt = now
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) UpdateDelivery(ctx context.Context, d *WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.deliveries[d.ID]
	if !ok || existing.TenantID != d.TenantID {
		return ErrNotFound
	}
	cp := *d
	m.deliveries[d.ID] = &cp
	return nil
}

func (m *Memory) GetDelivery(ctx context.Context, tenantID, id string) (*WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deliveries[id]
	if !ok || d.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) ListDeadLettered(ctx context.Context, tenantID string, limit int) ([]*WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*WebhookDelivery
	for _, d := range m.deliveries {
		if d.TenantID == tenantID && d.Status == DeliveryStatusDeadLettered {
			cp := *d
			out = append(out, &cp)
		}
	}
	// Most recently dead-lettered first
	sort.Slice(out, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if out[i].DeadLetteredAt != nil {
			ti = *out[i].DeadLetteredAt
		}
		if out[j].DeadLetteredAt != nil {
			tj = *out[j].DeadLetteredAt
		}
		return ti.After(tj)
	})
	return clip(out, limit), nil
}

// ---- idempotency ----

func (m *Memory) GetIdempotencyRecord(ctx context.Context, tenantID, key string) (*IdempotencyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.idempotency[tenantID+"\x00"+key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) SaveIdempotencyRecord(ctx context.Context, r *IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.idempotency[r.TenantID+"\x00"+r.Key] = &cp
	return nil
}

// ---- audit ----

func (m *Memory) AppendAudit(ctx context.Context, e *AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.audits = append(m.audits, &cp)
	return nil
}

func (m *Memory) ListAudit(ctx context.Context, tenantID string, limit int) ([]*AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*AuditEvent
	for i := len(m.audits) - 1; i >= 0; i-- {
		if m.audits[i].TenantID == tenantID {
			cp := *m.audits[i]
			out = append(out, &cp)
		}
	}
	return clip(out, limit), nil
}

// ---- discrepancy ----

func (m *Memory) CreateDiscrepancyCase(ctx context.Context, c *DiscrepancyCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.discrepancies[c.ID] = &cp
	return nil
}

func (m *Memory) GetDiscrepancyCase(ctx context.Context, tenantID, id string) (*DiscrepancyCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.discrepancies[id]
	if !ok || c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) UpdateDiscrepancyCase(ctx context.Context, c *DiscrepancyCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.discrepancies[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return ErrNotFound
	}
	cp := *c
	cp.UpdatedAt = time.Now().UTC()
	m.discrepancies[c.ID] = &cp
	return nil
}

func (m *Memory) ListDiscrepancyCases(ctx context.Context, tenantID string, limit int) ([]*DiscrepancyCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*DiscrepancyCase
	for _, c := range m.discrepancies {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (m *Memory) DiscrepancyStats(ctx context.Context, tenantID string) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total, mismatched := 0, 0
	for _, c := range m.discrepancies {
		if c.TenantID != tenantID {
			continue
		}
		total++
		if c.Mismatch {
			mismatched++
		}
	}
	return total, mismatched, nil
}

func (m *Memory) CreateDispute(ctx context.Context, d *Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.disputes {
		if existing.TenantID == d.TenantID && existing.DiscrepancyID == d.DiscrepancyID &&
			existing.Status == DisputeStatusOpen {
			return ErrDuplicate
		}
	}
	cp := *d
	m.disputes[d.ID] = &cp
	return nil
}

func (m *Memory) GetActiveDispute(ctx context.Context, tenantID, discrepancyID string) (*Dispute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.disputes {
		if d.TenantID == tenantID && d.DiscrepancyID == discrepancyID && d.Status == DisputeStatusOpen {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateDispute(ctx context.Context, d *Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.disputes[d.ID]
	if !ok || existing.TenantID != d.TenantID {
		return ErrNotFound
	}
	cp := *d
	m.disputes[d.ID] = &cp
	return nil
}

// ---- export cases ----

func (m *Memory) CreateExportCase(ctx context.Context, c *ExportCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.exports[c.ID] = &cp
	return nil
}

func (m *Memory) GetExportCase(ctx context.Context, tenantID, id string) (*ExportCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.exports[id]
	if !ok || c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) UpdateExportCase(ctx context.Context, c *ExportCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.exports[c.ID]
	if !ok || existing.TenantID != c.TenantID {
		return ErrNotFound
	}
	cp := *c
	cp.UpdatedAt = time.Now().UTC()
	m.exports[c.ID] = &cp
	return nil
}

func (m *Memory) ListExportCases(ctx context.Context, tenantID string, limit int) ([]*ExportCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ExportCase
	for _, c := range m.exports {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (m *Memory) CreateComplianceCheck(ctx context.Context, c *ComplianceCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.compliance = append(m.compliance, &cp)
	return nil
}

func (m *Memory) ListComplianceChecks(ctx context.Context, tenantID, subjectID string) ([]*ComplianceCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ComplianceCheck
	for _, c := range m.compliance {
		if c.TenantID == tenantID && (subjectID == "" || c.SubjectID == subjectID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- vehicle cases ----

func (m *Memory) CreateVehicleCase(ctx context.Context, c *VehicleCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.vehicles[c.ID] = &cp
	return nil
}

func (m *Memory) GetVehicleCase(ctx context.Context, tenantID, id string) (*VehicleCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.vehicles[id]
	if !ok || c.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) ListVehicleCases(ctx context.Context, tenantID string, limit int) ([]*VehicleCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*VehicleCase
	for _, c := range m.vehicles {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (m *Memory) CreateAlert(ctx context.Context, a *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.alerts = append(m.alerts, &cp)
	return nil
}

func (m *Memory) ListAlerts(ctx context.Context, tenantID string, limit int) ([]*Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].TenantID == tenantID {
			cp := *m.alerts[i]
			out = append(out, &cp)
		}
	}
	return clip(out, limit), nil
}

// ---- awb ----

func (m *Memory) CreateAWBSubmission(ctx context.Context, s *AWBSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.awbs = append(m.awbs, &cp)
	return nil
}

func (m *Memory) ListAWBSubmissions(ctx context.Context, tenantID string, limit int) ([]*AWBSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*AWBSubmission
	for i := len(m.awbs) - 1; i >= 0; i-- {
		if m.awbs[i].TenantID == tenantID {
			cp := *m.awbs[i]
			out = append(out, &cp)
		}
	}
	return clip(out, limit), nil
}

func (m *Memory) ListKnownParties(ctx context.Context, tenantID, prefix string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	p := strings.ToLower(prefix)
	for _, s := range m.awbs {
		if s.TenantID != tenantID {
			continue
		}
		for _, party := range []string{s.Shipper, s.Consignee} {
			if party == "" {
				continue
			}
			if p == "" || strings.HasPrefix(strings.ToLower(party), p) {
				seen[party] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for party := range seen {
		out = append(out, party)
	}
	sort.Strings(out)
	return clip(out, limit), nil
}

// ---- fiar ----

func (m *Memory) CreateInvoiceExport(ctx context.Context, e *InvoiceExport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.invoices = append(m.invoices, &cp)
	return nil
}

func (m *Memory) ListInvoiceExports(ctx context.Context, tenantID string, limit int) ([]*InvoiceExport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*InvoiceExport
	for i := len(m.invoices) - 1; i >= 0; i-- {
		if m.invoices[i].TenantID == tenantID {
			cp := *m.invoices[i]
			out = append(out, &cp)
		}
	}
	return clip(out, limit), nil
}

// ---- model registry ----

func (m *Memory) RegisterModelVersion(ctx context.Context, mv *ModelVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.models {
		if existing.Name == mv.Name {
			existing.Active = false
		}
	}
	cp := *mv
	cp.Active = true
	m.models = append(m.models, &cp)
	return nil
}

func (m *Memory) ListModelVersions(ctx context.Context, name string) ([]*ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ModelVersion
	for _, mv := range m.models {
		if name == "" || mv.Name == name {
			cp := *mv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) ActivateModelVersion(ctx context.Context, name, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, mv := range m.models {
		if mv.Name == name && mv.Version == version {
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	for _, mv := range m.models {
		if mv.Name == name {
			mv.Active = mv.Version == version
		}
	}
	return nil
}

func clip[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

var _ Store = (*Memory)(nil)
