package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// claimLease is how long a claimed delivery is invisible to other workers.
const claimLease = time.Minute

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Postgres is the production Store. It is safe for concurrent use; the
// delivery claim uses FOR UPDATE SKIP LOCKED so multiple workers never
// process the same row.
type Postgres struct {
	db     *sql.DB
	q      dbtx
	logger *log.Logger
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{
		db:     db,
		q:      db,
		logger: log.New(log.Writer(), "[STORE] ", log.LstdFlags),
	}
}

// Migrate applies the schema. Idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	p.logger.Printf("✅ Schema applied")
	return nil
}

func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) RunInTransaction(ctx context.Context, fn func(Store) error) error {
	if _, inTx := p.q.(*sql.Tx); inTx {
		return fn(p)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Postgres{db: p.db, q: tx, logger: p.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			p.logger.Printf("⚠️  Rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}

func toJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func scanJSONMap(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func scanJSONFloats(raw []byte) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// ---- tenancy ----

func (p *Postgres) EnsureTenant(ctx context.Context, id, name string) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO tenants (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, id, name)
	return err
}

func (p *Postgres) EnsureUser(ctx context.Context, email string) (*User, error) {
	u := &User{ID: NewID("usr"), Email: email, CreatedAt: time.Now().UTC()}
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3) ON CONFLICT (email) DO NOTHING`,
		u.ID, u.Email, u.CreatedAt)
	if err != nil {
		return nil, err
	}
	row := p.q.QueryRowContext(ctx, `SELECT id, email, created_at FROM users WHERE email = $1`, email)
	var out User
	if err := row.Scan(&out.ID, &out.Email, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Postgres) EnsureMembership(ctx context.Context, tenantID, userID, role string) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO memberships (tenant_id, user_id, role) VALUES ($1, $2, $3)
		 ON CONFLICT (tenant_id, user_id) DO NOTHING`, tenantID, userID, role)
	return err
}

func (p *Postgres) SaveRefreshToken(ctx context.Context, t *RefreshToken) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (jti, tenant_id, user_id, expires_at, revoked_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.JTI, t.TenantID, t.UserID, t.ExpiresAt, nullTime(t.RevokedAt), t.CreatedAt)
	return err
}

func (p *Postgres) GetRefreshToken(ctx context.Context, jti string) (*RefreshToken, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT jti, tenant_id, user_id, expires_at, revoked_at, created_at
		 FROM refresh_tokens WHERE jti = $1`, jti)
	var t RefreshToken
	var revoked sql.NullTime
	if err := row.Scan(&t.JTI, &t.TenantID, &t.UserID, &t.ExpiresAt, &revoked, &t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.RevokedAt = timePtr(revoked)
	return &t, nil
}

func (p *Postgres) RevokeRefreshToken(ctx context.Context, jti string) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE jti = $1 AND revoked_at IS NULL`, jti)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- documents ----

const docCols = `id, tenant_id, file_name, content_type, size_bytes, checksum_sha256,
	storage_uri, doc_type, status, confidence, model_version, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.TenantID, &d.FileName, &d.ContentType, &d.SizeBytes,
		&d.ChecksumSHA256, &d.StorageURI, &d.DocType, &d.Status, &d.Confidence,
		&d.ModelVersion, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (p *Postgres) CreateDocument(ctx context.Context, d *Document) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO documents (`+docCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		d.ID, d.TenantID, d.FileName, d.ContentType, d.SizeBytes, d.ChecksumSHA256,
		d.StorageURI, d.DocType, d.Status, d.Confidence, d.ModelVersion, d.CreatedAt, d.UpdatedAt)
	return err
}

func (p *Postgres) UpdateDocument(ctx context.Context, d *Document) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE documents SET doc_type=$3, status=$4, confidence=$5, model_version=$6,
		 storage_uri=$7, updated_at=now() WHERE id=$1 AND tenant_id=$2`,
		d.ID, d.TenantID, d.DocType, d.Status, d.Confidence, d.ModelVersion, d.StorageURI)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetDocument(ctx context.Context, tenantID, id string) (*Document, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT `+docCols+` FROM documents WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanDocument(row)
}

func (p *Postgres) listDocs(ctx context.Context, query string, args ...interface{}) ([]*Document, error) {
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) ListDocuments(ctx context.Context, tenantID string, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 100
	}
	return p.listDocs(ctx,
		`SELECT `+docCols+` FROM documents WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`,
		tenantID, limit)
}

func (p *Postgres) SearchDocuments(ctx context.Context, tenantID, query string, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	return p.listDocs(ctx,
		`SELECT `+docCols+` FROM documents
		 WHERE tenant_id=$1 AND (file_name ILIKE $2 OR doc_type ILIKE $2 OR id ILIKE $2)
		 ORDER BY created_at DESC LIMIT $3`,
		tenantID, pattern, limit)
}

func (p *Postgres) CountDocuments(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := p.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE tenant_id=$1`, tenantID).Scan(&n)
	return n, err
}

func (p *Postgres) CreateDocumentVersion(ctx context.Context, v *DocumentVersion) error {
	fields, err := toJSON(v.ExtractedFields)
	if err != nil {
		return err
	}
	conf, err := toJSON(v.FieldConfidence)
	if err != nil {
		return err
	}
	_, err = p.q.ExecContext(ctx,
		`INSERT INTO document_versions
		 (id, tenant_id, document_id, version_number, storage_uri, extracted_fields,
		  field_confidence, avg_confidence, model_version, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		v.ID, v.TenantID, v.DocumentID, v.VersionNumber, v.StorageURI, fields,
		conf, v.AvgConfidence, v.ModelVersion, v.CreatedAt)
	return err
}

func (p *Postgres) ListDocumentVersions(ctx context.Context, tenantID, documentID string) ([]*DocumentVersion, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, document_id, version_number, storage_uri, extracted_fields,
		        field_confidence, avg_confidence, model_version, created_at
		 FROM document_versions WHERE tenant_id=$1 AND document_id=$2
		 ORDER BY version_number`, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*DocumentVersion
	for rows.Next() {
		var v DocumentVersion
		var fields, conf []byte
		if err := rows.Scan(&v.ID, &v.TenantID, &v.DocumentID, &v.VersionNumber, &v.StorageURI,
			&fields, &conf, &v.AvgConfidence, &v.ModelVersion, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.ExtractedFields = scanJSONMap(fields)
		v.FieldConfidence = scanJSONFloats(conf)
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateExtractedEntities(ctx context.Context, entities []*ExtractedEntity) error {
	for _, e := range entities {
		if _, err := p.q.ExecContext(ctx,
			`INSERT INTO extracted_entities (id, tenant_id, document_id, field_name, field_value, confidence, source_model, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.ID, e.TenantID, e.DocumentID, e.FieldName, e.FieldValue, e.Confidence,
			e.SourceModel, e.CreatedAt); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return ErrDuplicate
			}
			return err
		}
	}
	return nil
}

func (p *Postgres) ListExtractedEntities(ctx context.Context, tenantID, documentID string) ([]*ExtractedEntity, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, document_id, field_name, field_value, confidence, source_model, created_at
		 FROM extracted_entities WHERE tenant_id=$1 AND document_id=$2 ORDER BY field_name`,
		tenantID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ExtractedEntity
	for rows.Next() {
		var e ExtractedEntity
		if err := rows.Scan(&e.ID, &e.TenantID, &e.DocumentID, &e.FieldName, &e.FieldValue,
			&e.Confidence, &e.SourceModel, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveValidationResults(ctx context.Context, results []*ValidationResult) error {
	for _, r := range results {
		if _, err := p.q.ExecContext(ctx,
			`INSERT INTO validation_results (id, tenant_id, document_id, rule_code, passed, severity, message, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			r.ID, r.TenantID, r.DocumentID, r.RuleCode, r.Passed, r.Severity, r.Message, r.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) ListValidationResults(ctx context.Context, tenantID, documentID string) ([]*ValidationResult, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, document_id, rule_code, passed, severity, message, created_at
		 FROM validation_results WHERE tenant_id=$1 AND document_id=$2 ORDER BY created_at`,
		tenantID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ValidationResult
	for rows.Next() {
		var r ValidationResult
		if err := rows.Scan(&r.ID, &r.TenantID, &r.DocumentID, &r.RuleCode, &r.Passed,
			&r.Severity, &r.Message, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// ---- review ----

func (p *Postgres) CreateReviewTask(ctx context.Context, t *ReviewTask) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO review_tasks (id, tenant_id, document_id, status, source, assigned_to, reason, confidence, created_at, completed_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.TenantID, t.DocumentID, t.Status, t.Source, t.AssignedTo, t.Reason,
		t.Confidence, t.CreatedAt, nullTime(t.CompletedAt))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicate
		}
	}
	return err
}

func scanReviewTask(row interface{ Scan(...interface{}) error }) (*ReviewTask, error) {
	var t ReviewTask
	var completed sql.NullTime
	err := row.Scan(&t.ID, &t.TenantID, &t.DocumentID, &t.Status, &t.Source, &t.AssignedTo,
		&t.Reason, &t.Confidence, &t.CreatedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.CompletedAt = timePtr(completed)
	return &t, nil
}

const reviewCols = `id, tenant_id, document_id, status, source, assigned_to, reason, confidence, created_at, completed_at`

func (p *Postgres) GetReviewTask(ctx context.Context, tenantID, id string) (*ReviewTask, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT `+reviewCols+` FROM review_tasks WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanReviewTask(row)
}

func (p *Postgres) GetOpenReviewTask(ctx context.Context, tenantID, documentID string) (*ReviewTask, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT `+reviewCols+` FROM review_tasks
		 WHERE tenant_id=$1 AND document_id=$2 AND status='open'`, tenantID, documentID)
	return scanReviewTask(row)
}

func (p *Postgres) UpdateReviewTask(ctx context.Context, t *ReviewTask) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE review_tasks SET status=$3, assigned_to=$4, completed_at=$5
		 WHERE id=$1 AND tenant_id=$2`,
		t.ID, t.TenantID, t.Status, t.AssignedTo, nullTime(t.CompletedAt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListReviewTasks(ctx context.Context, tenantID, status string, limit int) ([]*ReviewTask, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + reviewCols + ` FROM review_tasks WHERE tenant_id=$1`
	args := []interface{}{tenantID}
	if status != "" {
		query += ` AND status=$2 ORDER BY created_at DESC LIMIT $3`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2`
		args = append(args, limit)
	}
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ReviewTask
	for rows.Next() {
		t, err := scanReviewTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) CountReviewTasks(ctx context.Context, tenantID, status string) (int, error) {
	var n int
	var err error
	if status != "" {
		err = p.q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM review_tasks WHERE tenant_id=$1 AND status=$2`, tenantID, status).Scan(&n)
	} else {
		err = p.q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM review_tasks WHERE tenant_id=$1`, tenantID).Scan(&n)
	}
	return n, err
}

func (p *Postgres) CreateCorrections(ctx context.Context, corrections []*Correction) error {
	for _, c := range corrections {
		if _, err := p.q.ExecContext(ctx,
			`INSERT INTO corrections (id, tenant_id, review_task_id, field_name, old_value, new_value, reason_tag, corrected_by, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			c.ID, c.TenantID, c.ReviewTaskID, c.FieldName, c.OldValue, c.NewValue,
			c.ReasonTag, c.CorrectedBy, c.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) ListCorrections(ctx context.Context, tenantID, reviewTaskID string) ([]*Correction, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, review_task_id, field_name, old_value, new_value, reason_tag, corrected_by, created_at
		 FROM corrections WHERE tenant_id=$1 AND review_task_id=$2 ORDER BY created_at`,
		tenantID, reviewTaskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Correction
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ReviewTaskID, &c.FieldName, &c.OldValue,
			&c.NewValue, &c.ReasonTag, &c.CorrectedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ---- webhooks ----

func (p *Postgres) CreateWebhookSubscription(ctx context.Context, s *WebhookSubscription) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO webhook_subscriptions (id, tenant_id, url, event_types, secret_ref, active, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.TenantID, s.URL, pq.Array(s.EventTypes), s.SecretRef, s.Active, s.CreatedAt)
	return err
}

func (p *Postgres) GetWebhookSubscription(ctx context.Context, tenantID, id string) (*WebhookSubscription, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT id, tenant_id, url, event_types, secret_ref, active, created_at
		 FROM webhook_subscriptions WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	var s WebhookSubscription
	err := row.Scan(&s.ID, &s.TenantID, &s.URL, pq.Array(&s.EventTypes), &s.SecretRef, &s.Active, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) ListWebhookSubscriptions(ctx context.Context, tenantID string) ([]*WebhookSubscription, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, url, event_types, secret_ref, active, created_at
		 FROM webhook_subscriptions WHERE tenant_id=$1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*WebhookSubscription
	for rows.Next() {
		var s WebhookSubscription
		if err := rows.Scan(&s.ID, &s.TenantID, &s.URL, pq.Array(&s.EventTypes),
			&s.SecretRef, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *Postgres) SubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]*WebhookSubscription, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, url, event_types, secret_ref, active, created_at
		 FROM webhook_subscriptions
		 WHERE tenant_id=$1 AND active AND ($2 = ANY(event_types) OR '*' = ANY(event_types))`,
		tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*WebhookSubscription
	for rows.Next() {
		var s WebhookSubscription
		if err := rows.Scan(&s.ID, &s.TenantID, &s.URL, pq.Array(&s.EventTypes),
			&s.SecretRef, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

const deliveryCols = `id, tenant_id, subscription_id, event_type, payload, idempotency_key,
	status, attempt_count, next_attempt_at, last_attempt_at, last_error, dead_lettered_at, created_at`

func scanDelivery(row interface{ Scan(...interface{}) error }) (*WebhookDelivery, error) {
	var d WebhookDelivery
	var payload []byte
	var lastAttempt, deadLettered sql.NullTime
	var lastError sql.NullString
	err := row.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &payload,
		&d.IdempotencyKey, &d.Status, &d.AttemptCount, &d.NextAttemptAt,
		&lastAttempt, &lastError, &deadLettered, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Payload = scanJSONMap(payload)
	d.LastAttemptAt = timePtr(lastAttempt)
	d.LastError = lastError.String
	d.DeadLetteredAt = timePtr(deadLettered)
	return &d, nil
}

func (p *Postgres) EnqueueDelivery(ctx context.Context, d *WebhookDelivery) (bool, error) {
	payload, err := toJSON(d.Payload)
	if err != nil {
		return false, err
	}
	res, err := p.q.ExecContext(ctx,
		`INSERT INTO webhook_deliveries
		 (id, tenant_id, subscription_id, event_type, payload, idempotency_key,
		  status, attempt_count, next_attempt_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 ON CONFLICT ON CONSTRAINT uq_webhook_idempotency DO NOTHING`,
		d.ID, d.TenantID, d.SubscriptionID, d.EventType, payload, d.IdempotencyKey,
		d.Status, d.AttemptCount, d.NextAttemptAt, d.CreatedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (p *Postgres) ClaimDueDeliveries(ctx context.Context, now time.Time, limit int) ([]*WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var claimed []*WebhookDelivery
	err := p.RunInTransaction(ctx, func(s Store) error {
		tx := s.(*Postgres)
		rows, err := tx.q.QueryContext(ctx,
			`SELECT `+deliveryCols+` FROM webhook_deliveries
			 WHERE status IN ('pending','retry_scheduled') AND next_attempt_at <= $1
			 ORDER BY next_attempt_at
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2`, now, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDelivery(rows)
			if err != nil {
				return err
			}
			claimed = append(claimed, d)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		for _, d := range claimed {
			if _, err := tx.q.ExecContext(ctx,
				`UPDATE webhook_deliveries SET next_attempt_at=$2 WHERE id=$1`,
				d.ID, now.Add(claimLease)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (p *Postgres) UpdateDelivery(ctx context.Context, d *WebhookDelivery) error {
	var lastError sql.NullString
	if d.LastError != "" {
		lastError = sql.NullString{String: d.LastError, Valid: true}
	}
	res, err := p.q.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET status=$3, attempt_count=$4, next_attempt_at=$5, last_attempt_at=$6,
		     last_error=$7, dead_lettered_at=$8
		 WHERE id=$1 AND tenant_id=$2`,
		d.ID, d.TenantID, d.Status, d.AttemptCount, d.NextAttemptAt,
		nullTime(d.LastAttemptAt), lastError, nullTime(d.DeadLetteredAt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetDelivery(ctx context.Context, tenantID, id string) (*WebhookDelivery, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT `+deliveryCols+` FROM webhook_deliveries WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanDelivery(row)
}

func (p *Postgres) ListDeadLettered(ctx context.Context, tenantID string, limit int) ([]*WebhookDelivery, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+deliveryCols+` FROM webhook_deliveries
		 WHERE tenant_id=$1 AND status='dead_lettered'
		 ORDER BY dead_lettered_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*WebhookDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- idempotency ----

func (p *Postgres) GetIdempotencyRecord(ctx context.Context, tenantID, key string) (*IdempotencyRecord, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT tenant_id, key, request_hash, response, created_at
		 FROM idempotency_records WHERE tenant_id=$1 AND key=$2`, tenantID, key)
	var r IdempotencyRecord
	var response []byte
	err := row.Scan(&r.TenantID, &r.Key, &r.RequestHash, &response, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Response = scanJSONMap(response)
	return &r, nil
}

func (p *Postgres) SaveIdempotencyRecord(ctx context.Context, r *IdempotencyRecord) error {
	response, err := toJSON(r.Response)
	if err != nil {
		return err
	}
	_, err = p.q.ExecContext(ctx,
		`INSERT INTO idempotency_records (tenant_id, key, request_hash, response, created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT ON CONSTRAINT uq_idempotency_tenant_key DO NOTHING`,
		r.TenantID, r.Key, r.RequestHash, response, r.CreatedAt)
	return err
}

// ---- audit ----

func (p *Postgres) AppendAudit(ctx context.Context, e *AuditEvent) error {
	payload, err := toJSON(e.Payload)
	if err != nil {
		return err
	}
	_, err = p.q.ExecContext(ctx,
		`INSERT INTO audit_events (id, tenant_id, actor, action, entity_type, entity_id, payload, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.TenantID, e.Actor, e.Action, e.EntityType, e.EntityID, payload, e.CreatedAt)
	return err
}

func (p *Postgres) ListAudit(ctx context.Context, tenantID string, limit int) ([]*AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, actor, action, entity_type, entity_id, payload, created_at
		 FROM audit_events WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*AuditEvent
	for rows.Next() {
		var e AuditEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Actor, &e.Action, &e.EntityType,
			&e.EntityID, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = scanJSONMap(payload)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ---- discrepancy ----

const discCols = `id, tenant_id, awb_number, document_id, declared_weight, actual_weight,
	declared_value, assessed_value, weight_delta, value_delta, anomaly_score,
	risk_level, mismatch, status, created_at, updated_at`

func scanDiscrepancy(row interface{ Scan(...interface{}) error }) (*DiscrepancyCase, error) {
	var c DiscrepancyCase
	err := row.Scan(&c.ID, &c.TenantID, &c.AWBNumber, &c.DocumentID, &c.DeclaredWeight,
		&c.ActualWeight, &c.DeclaredValue, &c.AssessedValue, &c.WeightDelta, &c.ValueDelta,
		&c.AnomalyScore, &c.RiskLevel, &c.Mismatch, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) CreateDiscrepancyCase(ctx context.Context, c *DiscrepancyCase) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO discrepancy_cases (`+discCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		c.ID, c.TenantID, c.AWBNumber, c.DocumentID, c.DeclaredWeight, c.ActualWeight,
		c.DeclaredValue, c.AssessedValue, c.WeightDelta, c.ValueDelta, c.AnomalyScore,
		c.RiskLevel, c.Mismatch, c.Status, c.CreatedAt, c.UpdatedAt)
	return err
}

func (p *Postgres) GetDiscrepancyCase(ctx context.Context, tenantID, id string) (*DiscrepancyCase, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT `+discCols+` FROM discrepancy_cases WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanDiscrepancy(row)
}

func (p *Postgres) UpdateDiscrepancyCase(ctx context.Context, c *DiscrepancyCase) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE discrepancy_cases SET status=$3, updated_at=now() WHERE id=$1 AND tenant_id=$2`,
		c.ID, c.TenantID, c.Status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListDiscrepancyCases(ctx context.Context, tenantID string, limit int) ([]*DiscrepancyCase, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+discCols+` FROM discrepancy_cases WHERE tenant_id=$1
		 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*DiscrepancyCase
	for rows.Next() {
		c, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) DiscrepancyStats(ctx context.Context, tenantID string) (int, int, error) {
	var total, mismatched int
	err := p.q.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE mismatch)
		 FROM discrepancy_cases WHERE tenant_id=$1`, tenantID).Scan(&total, &mismatched)
	return total, mismatched, err
}

const disputeCols = `id, tenant_id, discrepancy_id, status, opened_by, resolution_notes, opened_at, resolved_at`

func scanDispute(row interface{ Scan(...interface{}) error }) (*Dispute, error) {
	var d Dispute
	var resolved sql.NullTime
	err := row.Scan(&d.ID, &d.TenantID, &d.DiscrepancyID, &d.Status, &d.OpenedBy,
		&d.ResolutionNotes, &d.OpenedAt, &resolved)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.ResolvedAt = timePtr(resolved)
	return &d, nil
}

func (p *Postgres) CreateDispute(ctx context.Context, d *Dispute) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO disputes (`+disputeCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.TenantID, d.DiscrepancyID, d.Status, d.OpenedBy, d.ResolutionNotes,
		d.OpenedAt, nullTime(d.ResolvedAt))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicate
		}
	}
	return err
}

func (p *Postgres) GetActiveDispute(ctx context.Context, tenantID, discrepancyID string) (*Dispute, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT `+disputeCols+` FROM disputes
		 WHERE tenant_id=$1 AND discrepancy_id=$2 AND status='open'`, tenantID, discrepancyID)
	return scanDispute(row)
}

func (p *Postgres) UpdateDispute(ctx context.Context, d *Dispute) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE disputes SET status=$3, resolution_notes=$4, resolved_at=$5
		 WHERE id=$1 AND tenant_id=$2`,
		d.ID, d.TenantID, d.Status, d.ResolutionNotes, nullTime(d.ResolvedAt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- export cases ----

func (p *Postgres) CreateExportCase(ctx context.Context, c *ExportCase) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO export_cases (id, tenant_id, reference, destination_country, hs_code, status, submission_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.TenantID, c.Reference, c.DestinationCountry, c.HSCode, c.Status,
		c.SubmissionID, c.CreatedAt, c.UpdatedAt)
	return err
}

func (p *Postgres) GetExportCase(ctx context.Context, tenantID, id string) (*ExportCase, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT id, tenant_id, reference, destination_country, hs_code, status, submission_id, created_at, updated_at
		 FROM export_cases WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	var c ExportCase
	err := row.Scan(&c.ID, &c.TenantID, &c.Reference, &c.DestinationCountry, &c.HSCode,
		&c.Status, &c.SubmissionID, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) UpdateExportCase(ctx context.Context, c *ExportCase) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE export_cases SET status=$3, submission_id=$4, updated_at=now()
		 WHERE id=$1 AND tenant_id=$2`, c.ID, c.TenantID, c.Status, c.SubmissionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListExportCases(ctx context.Context, tenantID string, limit int) ([]*ExportCase, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, reference, destination_country, hs_code, status, submission_id, created_at, updated_at
		 FROM export_cases WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ExportCase
	for rows.Next() {
		var c ExportCase
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Reference, &c.DestinationCountry,
			&c.HSCode, &c.Status, &c.SubmissionID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateComplianceCheck(ctx context.Context, c *ComplianceCheck) error {
	details, err := toJSON(c.Details)
	if err != nil {
		return err
	}
	_, err = p.q.ExecContext(ctx,
		`INSERT INTO compliance_checks (id, tenant_id, subject_type, subject_id, check_type, passed, details, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.TenantID, c.SubjectType, c.SubjectID, c.CheckType, c.Passed, details, c.CreatedAt)
	return err
}

func (p *Postgres) ListComplianceChecks(ctx context.Context, tenantID, subjectID string) ([]*ComplianceCheck, error) {
	query := `SELECT id, tenant_id, subject_type, subject_id, check_type, passed, details, created_at
		 FROM compliance_checks WHERE tenant_id=$1`
	args := []interface{}{tenantID}
	if subjectID != "" {
		query += ` AND subject_id=$2`
		args = append(args, subjectID)
	}
	query += ` ORDER BY created_at`
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ComplianceCheck
	for rows.Next() {
		var c ComplianceCheck
		var details []byte
		if err := rows.Scan(&c.ID, &c.TenantID, &c.SubjectType, &c.SubjectID,
			&c.CheckType, &c.Passed, &details, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Details = scanJSONMap(details)
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ---- vehicle cases ----

func (p *Postgres) CreateVehicleCase(ctx context.Context, c *VehicleCase) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO vehicle_cases (id, tenant_id, vin, wmi, vds, vis, arrival_date, bmsb_risk, permit_expiry, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.TenantID, c.VIN, c.WMI, c.VDS, c.VIS, nullTime(c.ArrivalDate),
		c.BMSBRisk, nullTime(c.PermitExpiry), c.Status, c.CreatedAt)
	return err
}

func scanVehicleCase(row interface{ Scan(...interface{}) error }) (*VehicleCase, error) {
	var c VehicleCase
	var arrival, expiry sql.NullTime
	err := row.Scan(&c.ID, &c.TenantID, &c.VIN, &c.WMI, &c.VDS, &c.VIS,
		&arrival, &c.BMSBRisk, &expiry, &c.Status, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ArrivalDate = timePtr(arrival)
	c.PermitExpiry = timePtr(expiry)
	return &c, nil
}

func (p *Postgres) GetVehicleCase(ctx context.Context, tenantID, id string) (*VehicleCase, error) {
	row := p.q.QueryRowContext(ctx,
		`SELECT id, tenant_id, vin, wmi, vds, vis, arrival_date, bmsb_risk, permit_expiry, status, created_at
		 FROM vehicle_cases WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanVehicleCase(row)
}

func (p *Postgres) ListVehicleCases(ctx context.Context, tenantID string, limit int) ([]*VehicleCase, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, vin, wmi, vds, vis, arrival_date, bmsb_risk, permit_expiry, status, created_at
		 FROM vehicle_cases WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*VehicleCase
	for rows.Next() {
		c, err := scanVehicleCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *Postgres) CreateAlert(ctx context.Context, a *Alert) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO alerts (id, tenant_id, severity, message, entity_type, entity_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.TenantID, a.Severity, a.Message, a.EntityType, a.EntityID, a.CreatedAt)
	return err
}

func (p *Postgres) ListAlerts(ctx context.Context, tenantID string, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, severity, message, entity_type, entity_id, created_at
		 FROM alerts WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Severity, &a.Message,
			&a.EntityType, &a.EntityID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// ---- awb ----

func (p *Postgres) CreateAWBSubmission(ctx context.Context, s *AWBSubmission) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO awb_submissions (id, tenant_id, awb_number, carrier, shipper, consignee, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		s.ID, s.TenantID, s.AWBNumber, s.Carrier, s.Shipper, s.Consignee, s.Status, s.CreatedAt)
	return err
}

func (p *Postgres) ListAWBSubmissions(ctx context.Context, tenantID string, limit int) ([]*AWBSubmission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, awb_number, carrier, shipper, consignee, status, created_at
		 FROM awb_submissions WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*AWBSubmission
	for rows.Next() {
		var s AWBSubmission
		if err := rows.Scan(&s.ID, &s.TenantID, &s.AWBNumber, &s.Carrier,
			&s.Shipper, &s.Consignee, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListKnownParties(ctx context.Context, tenantID, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := prefix + "%"
	rows, err := p.q.QueryContext(ctx,
		`SELECT DISTINCT party FROM (
		     SELECT shipper AS party FROM awb_submissions WHERE tenant_id=$1
		     UNION
		     SELECT consignee FROM awb_submissions WHERE tenant_id=$1
		 ) parties
		 WHERE party <> '' AND party ILIKE $2
		 ORDER BY party LIMIT $3`, tenantID, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var party string
		if err := rows.Scan(&party); err != nil {
			return nil, err
		}
		out = append(out, party)
	}
	return out, rows.Err()
}

// ---- fiar ----

func (p *Postgres) CreateInvoiceExport(ctx context.Context, e *InvoiceExport) error {
	_, err := p.q.ExecContext(ctx,
		`INSERT INTO invoice_exports (id, tenant_id, invoice_ref, amount, currency, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.TenantID, e.InvoiceRef, e.Amount, e.Currency, e.Status, e.CreatedAt)
	return err
}

func (p *Postgres) ListInvoiceExports(ctx context.Context, tenantID string, limit int) ([]*InvoiceExport, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT id, tenant_id, invoice_ref, amount, currency, status, created_at
		 FROM invoice_exports WHERE tenant_id=$1 ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*InvoiceExport
	for rows.Next() {
		var e InvoiceExport
		if err := rows.Scan(&e.ID, &e.TenantID, &e.InvoiceRef, &e.Amount,
			&e.Currency, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ---- model registry ----

func (p *Postgres) RegisterModelVersion(ctx context.Context, m *ModelVersion) error {
	return p.RunInTransaction(ctx, func(s Store) error {
		tx := s.(*Postgres)
		if _, err := tx.q.ExecContext(ctx,
			`UPDATE model_versions SET active=FALSE WHERE name=$1`, m.Name); err != nil {
			return err
		}
		_, err := tx.q.ExecContext(ctx,
			`INSERT INTO model_versions (id, name, version, active, created_at)
			 VALUES ($1,$2,$3,TRUE,$4)`, m.ID, m.Name, m.Version, m.CreatedAt)
		return err
	})
}

func (p *Postgres) ListModelVersions(ctx context.Context, name string) ([]*ModelVersion, error) {
	query := `SELECT id, name, version, active, created_at FROM model_versions`
	args := []interface{}{}
	if name != "" {
		query += ` WHERE name=$1`
		args = append(args, name)
	}
	query += ` ORDER BY created_at`
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ModelVersion
	for rows.Next() {
		var m ModelVersion
		if err := rows.Scan(&m.ID, &m.Name, &m.Version, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (p *Postgres) ActivateModelVersion(ctx context.Context, name, version string) error {
	return p.RunInTransaction(ctx, func(s Store) error {
		tx := s.(*Postgres)
		res, err := tx.q.ExecContext(ctx,
			`UPDATE model_versions SET active = (version = $2) WHERE name=$1`, name, version)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		var exists bool
		if err := tx.q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM model_versions WHERE name=$1 AND version=$2)`,
			name, version).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return nil
	})
}

var _ Store = (*Postgres)(nil)
