// Package ingestion orchestrates the document intake pipeline: admission,
// storage, preprocessing, classification, extraction, validation and the
// review gate, all within one store transaction.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nexuscargo/backend/internal/audit"
	"github.com/nexuscargo/backend/internal/events"
	"github.com/nexuscargo/backend/internal/monitoring"
	"github.com/nexuscargo/backend/internal/pipeline"
	"github.com/nexuscargo/backend/internal/storage"
	"github.com/nexuscargo/backend/internal/store"
	"github.com/nexuscargo/backend/internal/validation"
	"github.com/google/uuid"
)

// ErrUnsupportedContentType rejects content types outside the allowlist.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// ReviewReason is the fixed reason recorded when the gate opens a task.
const ReviewReason = "low-confidence or validation-failure"

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/plain":      true,
}

// VirusScanner inspects raw bytes before storage. The default accepts
// everything; deployments wire a scanning service here.
type VirusScanner func(content []byte) error

type Input struct {
	FileName    string
	ContentType string
	Content     []byte
	Actor       string
}

type Result struct {
	Document   *store.Document           `json:"document"`
	Version    *store.DocumentVersion    `json:"version"`
	Entities   []*store.ExtractedEntity  `json:"entities"`
	Validation []*store.ValidationResult `json:"validation"`
	ReviewTask *store.ReviewTask         `json:"review_task,omitempty"`
}

type ReviewQueuer interface {
	QueueLowConfidenceReview(ctx context.Context, st store.Store, tenantID, documentID string, confidence float64, source, reason string) (*store.ReviewTask, error)
}

type Service struct {
	store        store.Store
	provider     storage.Provider
	bus          events.Publisher
	audit        *audit.Recorder
	preprocessor *pipeline.Preprocessor
	classifier   *pipeline.Classifier
	extractor    *pipeline.ExtractionService
	validator    *validation.Service
	reviews      ReviewQueuer
	scanner      VirusScanner
	threshold    float64
	logger       *log.Logger
}

func NewService(
	st store.Store,
	provider storage.Provider,
	bus events.Publisher,
	rec *audit.Recorder,
	preprocessor *pipeline.Preprocessor,
	classifier *pipeline.Classifier,
	extractor *pipeline.ExtractionService,
	validator *validation.Service,
	reviews ReviewQueuer,
	threshold float64,
) *Service {
	return &Service{
		store:        st,
		provider:     provider,
		bus:          bus,
		audit:        rec,
		preprocessor: preprocessor,
		classifier:   classifier,
		extractor:    extractor,
		validator:    validator,
		reviews:      reviews,
		scanner:      func([]byte) error { return nil },
		threshold:    threshold,
		logger:       log.New(log.Writer(), "[INGEST] ", log.LstdFlags),
	}
}

// SetVirusScanner replaces the admission scanner hook.
func (s *Service) SetVirusScanner(fn VirusScanner) {
	if fn != nil {
		s.scanner = fn
	}
}

// Ingest admits, stores, and runs the full pipeline on one document. The
// persisted rows (document, version, validation results, review task) are
// written atomically; storage upload happens first since object writes
// cannot join the transaction.
func (s *Service) Ingest(ctx context.Context, tenantID string, in Input) (*Result, error) {
	if !allowedContentTypes[in.ContentType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, in.ContentType)
	}
	if err := s.scanner(in.Content); err != nil {
		return nil, fmt.Errorf("virus scan rejected %s: %w", in.FileName, err)
	}

	sum := sha256.Sum256(in.Content)
	checksum := hex.EncodeToString(sum[:])

	objectName := fmt.Sprintf("raw/%s-%s", uuid.NewString(), in.FileName)
	storageURI, err := s.provider.UploadRaw(ctx, tenantID, objectName, in.Content, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("store raw document: %w", err)
	}

	now := time.Now().UTC()
	doc := &store.Document{
		ID:             store.NewID("doc"),
		TenantID:       tenantID,
		FileName:       in.FileName,
		ContentType:    in.ContentType,
		SizeBytes:      int64(len(in.Content)),
		ChecksumSHA256: checksum,
		StorageURI:     storageURI,
		DocType:        "unclassified",
		Status:         store.DocStatusReceived,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var result *Result
	err = s.store.RunInTransaction(ctx, func(st store.Store) error {
		if err := st.CreateDocument(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.audit.WithStore(st).Record(ctx, tenantID, in.Actor, "document.ingested", "document", doc.ID, map[string]interface{}{
			"file_name": in.FileName,
			"checksum":  checksum,
		}); err != nil {
			return err
		}
		s.bus.Publish(events.TopicDocumentReceived, map[string]interface{}{
			"tenant_id":   tenantID,
			"document_id": doc.ID,
			"file_name":   in.FileName,
		}, nil)

		// Preprocess
		preURI, processed, err := s.preprocessor.Run(ctx, storageURI, in.Content, in.ContentType)
		if err != nil {
			return fmt.Errorf("preprocess: %w", err)
		}
		s.bus.Publish(events.TopicDocumentPreprocessed, map[string]interface{}{
			"tenant_id":   tenantID,
			"document_id": doc.ID,
			"storage_uri": preURI,
		}, nil)

		// Classify
		cls := s.classifier.Classify(in.FileName)
		doc.DocType = cls.DocType
		doc.Confidence = cls.Confidence
		doc.ModelVersion = cls.ModelVersion
		if err := st.UpdateDocument(ctx, doc); err != nil {
			return fmt.Errorf("update classification: %w", err)
		}
		s.bus.Publish(events.TopicDocumentClassified, map[string]interface{}{
			"tenant_id":   tenantID,
			"document_id": doc.ID,
			"doc_type":    cls.DocType,
			"confidence":  cls.Confidence,
		}, nil)

		// Extract. The file name doubles as the text hint at this boundary.
		extraction := s.extractor.Extract(ctx, cls.DocType, processed, in.FileName)
		version := &store.DocumentVersion{
			ID:              store.NewID("dcv"),
			TenantID:        tenantID,
			DocumentID:      doc.ID,
			VersionNumber:   1,
			StorageURI:      preURI,
			ExtractedFields: extraction.Fields,
			FieldConfidence: extraction.Confidence,
			AvgConfidence:   extraction.AvgConfidence(),
			ModelVersion:    extraction.ModelVersion,
			CreatedAt:       time.Now().UTC(),
		}
		if err := st.CreateDocumentVersion(ctx, version); err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		var entities []*store.ExtractedEntity
		for name, value := range extraction.Fields {
			entities = append(entities, &store.ExtractedEntity{
				ID:          store.NewID("ent"),
				TenantID:    tenantID,
				DocumentID:  doc.ID,
				FieldName:   name,
				FieldValue:  fmt.Sprintf("%v", value),
				Confidence:  extraction.Confidence[name],
				SourceModel: extraction.ModelVersion,
				CreatedAt:   version.CreatedAt,
			})
		}
		if err := st.CreateExtractedEntities(ctx, entities); err != nil {
			return fmt.Errorf("create entities: %w", err)
		}
		s.bus.Publish(events.TopicDocumentExtracted, map[string]interface{}{
			"tenant_id":      tenantID,
			"document_id":    doc.ID,
			"version_number": version.VersionNumber,
			"avg_confidence": version.AvgConfidence,
		}, nil)

		// Validate
		valRows, allPassed, err := s.validator.ValidateDocument(ctx, st, doc, extraction.Fields)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}

		// Review gate: the document's effective confidence is the weaker of
		// classification and extraction.
		reviewConfidence := cls.Confidence
		if version.AvgConfidence < reviewConfidence {
			reviewConfidence = version.AvgConfidence
		}

		var task *store.ReviewTask
		if reviewConfidence < s.threshold || !allPassed {
			doc.Status = store.DocStatusReviewRequired
			task, err = s.reviews.QueueLowConfidenceReview(ctx, st, tenantID, doc.ID, reviewConfidence, "ingestion", ReviewReason)
			if err != nil {
				return fmt.Errorf("queue review: %w", err)
			}
		} else {
			doc.Status = store.DocStatusValidated
		}
		if err := st.UpdateDocument(ctx, doc); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		result = &Result{Document: doc, Version: version, Entities: entities, Validation: valRows, ReviewTask: task}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.DocumentsIngested.WithLabelValues(doc.DocType, doc.Status).Inc()
	if result.ReviewTask != nil {
		monitoring.ReviewTasksOpened.Inc()
	}

	s.logger.Printf("Ingested %s as %s (type=%s status=%s)", in.FileName, doc.ID, doc.DocType, doc.Status)
	return result, nil
}
