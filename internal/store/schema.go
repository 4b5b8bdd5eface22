package store

// pgSchema bootstraps the Postgres store. Statements are idempotent so the
// server can run them on every start.
const pgSchema = `
CREATE TABLE IF NOT EXISTS tenants (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    email       TEXT NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS memberships (
    tenant_id   TEXT NOT NULL REFERENCES tenants(id),
    user_id     TEXT NOT NULL REFERENCES users(id),
    role        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (tenant_id, user_id)
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
    jti         TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    expires_at  TIMESTAMPTZ NOT NULL,
    revoked_at  TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    file_name       TEXT NOT NULL,
    content_type    TEXT NOT NULL,
    size_bytes      BIGINT NOT NULL,
    checksum_sha256 TEXT NOT NULL,
    storage_uri     TEXT NOT NULL,
    doc_type        TEXT NOT NULL,
    status          TEXT NOT NULL,
    confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
    model_version   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents (tenant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS document_versions (
    id               TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL,
    document_id      TEXT NOT NULL REFERENCES documents(id),
    version_number   INT NOT NULL,
    storage_uri      TEXT NOT NULL,
    extracted_fields JSONB NOT NULL DEFAULT '{}',
    field_confidence JSONB NOT NULL DEFAULT '{}',
    avg_confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
    model_version    TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (document_id, version_number)
);

CREATE TABLE IF NOT EXISTS extracted_entities (
    id           TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL,
    document_id  TEXT NOT NULL,
    field_name   TEXT NOT NULL,
    field_value  TEXT NOT NULL DEFAULT '',
    confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
    source_model TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_entities_doc ON extracted_entities (tenant_id, document_id);

CREATE TABLE IF NOT EXISTS validation_results (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    document_id TEXT NOT NULL,
    rule_code   TEXT NOT NULL,
    passed      BOOLEAN NOT NULL,
    severity    TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_validation_doc ON validation_results (tenant_id, document_id);

CREATE TABLE IF NOT EXISTS review_tasks (
    id           TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL,
    document_id  TEXT NOT NULL,
    status       TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    assigned_to  TEXT NOT NULL DEFAULT '',
    reason       TEXT NOT NULL DEFAULT '',
    confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_review_open_per_doc
    ON review_tasks (tenant_id, document_id) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS corrections (
    id             TEXT PRIMARY KEY,
    tenant_id      TEXT NOT NULL,
    review_task_id TEXT NOT NULL,
    field_name     TEXT NOT NULL,
    old_value      TEXT NOT NULL DEFAULT '',
    new_value      TEXT NOT NULL DEFAULT '',
    reason_tag     TEXT NOT NULL DEFAULT '',
    corrected_by   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_corrections_task ON corrections (tenant_id, review_task_id);

CREATE TABLE IF NOT EXISTS webhook_subscriptions (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    url         TEXT NOT NULL,
    event_types TEXT[] NOT NULL,
    secret_ref  TEXT NOT NULL,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS webhook_deliveries (
    id               TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL,
    subscription_id  TEXT NOT NULL,
    event_type       TEXT NOT NULL,
    payload          JSONB NOT NULL,
    idempotency_key  TEXT NOT NULL,
    status           TEXT NOT NULL,
    attempt_count    INT NOT NULL DEFAULT 0,
    next_attempt_at  TIMESTAMPTZ NOT NULL,
    last_attempt_at  TIMESTAMPTZ,
    last_error       TEXT,
    dead_lettered_at TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_webhook_idempotency UNIQUE (tenant_id, idempotency_key)
);
CREATE INDEX IF NOT EXISTS idx_deliveries_due
    ON webhook_deliveries (next_attempt_at)
    WHERE status IN ('pending', 'retry_scheduled');

CREATE TABLE IF NOT EXISTS idempotency_records (
    tenant_id    TEXT NOT NULL,
    key          TEXT NOT NULL,
    request_hash TEXT NOT NULL,
    response     JSONB NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_idempotency_tenant_key PRIMARY KEY (tenant_id, key)
);

CREATE TABLE IF NOT EXISTS audit_events (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    actor       TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    payload     JSONB,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_events (tenant_id, created_at DESC);

CREATE TABLE IF NOT EXISTS discrepancy_cases (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL,
    awb_number      TEXT NOT NULL DEFAULT '',
    document_id     TEXT NOT NULL DEFAULT '',
    declared_weight DOUBLE PRECISION NOT NULL,
    actual_weight   DOUBLE PRECISION NOT NULL,
    declared_value  DOUBLE PRECISION NOT NULL,
    assessed_value  DOUBLE PRECISION NOT NULL,
    weight_delta    DOUBLE PRECISION NOT NULL,
    value_delta     DOUBLE PRECISION NOT NULL,
    anomaly_score   DOUBLE PRECISION NOT NULL,
    risk_level      TEXT NOT NULL,
    mismatch        BOOLEAN NOT NULL,
    status          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS disputes (
    id               TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL,
    discrepancy_id   TEXT NOT NULL,
    status           TEXT NOT NULL,
    opened_by        TEXT NOT NULL DEFAULT '',
    resolution_notes TEXT NOT NULL DEFAULT '',
    opened_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    resolved_at      TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_dispute_active_per_case
    ON disputes (tenant_id, discrepancy_id) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS export_cases (
    id                  TEXT PRIMARY KEY,
    tenant_id           TEXT NOT NULL,
    reference           TEXT NOT NULL,
    destination_country TEXT NOT NULL,
    hs_code             TEXT NOT NULL,
    status              TEXT NOT NULL,
    submission_id       TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS compliance_checks (
    id           TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL,
    subject_type TEXT NOT NULL,
    subject_id   TEXT NOT NULL,
    check_type   TEXT NOT NULL,
    passed       BOOLEAN NOT NULL,
    details      JSONB,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vehicle_cases (
    id            TEXT PRIMARY KEY,
    tenant_id     TEXT NOT NULL,
    vin           TEXT NOT NULL,
    wmi           TEXT NOT NULL,
    vds           TEXT NOT NULL,
    vis           TEXT NOT NULL,
    arrival_date  TIMESTAMPTZ,
    bmsb_risk     BOOLEAN NOT NULL,
    permit_expiry TIMESTAMPTZ,
    status        TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS alerts (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    severity    TEXT NOT NULL,
    message     TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id   TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS awb_submissions (
    id         TEXT PRIMARY KEY,
    tenant_id  TEXT NOT NULL,
    awb_number TEXT NOT NULL,
    carrier    TEXT NOT NULL,
    shipper    TEXT NOT NULL DEFAULT '',
    consignee  TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS invoice_exports (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    invoice_ref TEXT NOT NULL,
    amount      DOUBLE PRECISION NOT NULL,
    currency    TEXT NOT NULL DEFAULT 'USD',
    status      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS model_versions (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    version    TEXT NOT NULL,
    active     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (name, version)
);
`
