package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func TestEnqueueDeliveryDedupesOnConflict(t *testing.T) {
	p, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	d := &WebhookDelivery{
		ID:             "whd_1",
		TenantID:       "tenant-a",
		SubscriptionID: "whs_1",
		EventType:      "document.validated",
		Payload:        map[string]interface{}{"document_id": "doc_1"},
		IdempotencyKey: "whs_1:document.validated:abc",
		Status:         DeliveryStatusPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
	}

	mock.ExpectExec(`INSERT INTO webhook_deliveries`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := p.EnqueueDelivery(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)

	// The unique (tenant, idempotency key) constraint swallows the redispatch.
	mock.ExpectExec(`INSERT INTO webhook_deliveries`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = p.EnqueueDelivery(ctx, d)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentNotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE id=\$1 AND tenant_id=\$2`).
		WithArgs("doc_missing", "tenant-a").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := p.GetDocument(context.Background(), "tenant-a", "doc_missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentScansRow(t *testing.T) {
	p, mock := newMockStore(t)
	now := time.Now().UTC()

	cols := []string{"id", "tenant_id", "file_name", "content_type", "size_bytes",
		"checksum_sha256", "storage_uri", "doc_type", "status", "confidence",
		"model_version", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT .+ FROM documents WHERE id=\$1 AND tenant_id=\$2`).
		WithArgs("doc_1", "tenant-a").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"doc_1", "tenant-a", "awb.pdf", "application/pdf", int64(42),
			"abc123", "file:///raw/awb.pdf", "awb", DocStatusValidated, 0.94,
			"clf-v1", now, now))

	doc, err := p.GetDocument(context.Background(), "tenant-a", "doc_1")
	require.NoError(t, err)
	assert.Equal(t, "awb", doc.DocType)
	assert.Equal(t, 0.94, doc.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDocumentNotFound(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE documents SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.UpdateDocument(context.Background(), &Document{ID: "doc_x", TenantID: "tenant-a"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := p.RunInTransaction(context.Background(), func(st Store) error {
		if err := st.CreateDocument(context.Background(), &Document{ID: "doc_1", TenantID: "tenant-a"}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransactionCommits(t *testing.T) {
	p, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO documents`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := p.RunInTransaction(context.Background(), func(st Store) error {
		return st.CreateDocument(context.Background(), &Document{ID: "doc_1", TenantID: "tenant-a"})
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
