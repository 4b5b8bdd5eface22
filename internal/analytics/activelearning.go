package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TrainingSample is one reviewed document with its human corrections,
// appended to the per-tenant JSONL curation file.
type TrainingSample struct {
	TenantID    string                 `json:"tenant_id"`
	DocumentID  string                 `json:"document_id"`
	DocType     string                 `json:"doc_type"`
	Fields      map[string]interface{} `json:"fields"`
	Corrections map[string]interface{} `json:"corrections"`
	CuratedAt   time.Time              `json:"curated_at"`
}

// CurateSample appends the sample to {dir}/{tenant}.jsonl. One line per
// sample so downstream training jobs can stream the file.
func (s *Service) CurateSample(sample TrainingSample) error {
	if s.curdir == "" {
		return nil
	}
	if err := os.MkdirAll(s.curdir, 0o755); err != nil {
		return fmt.Errorf("create active learning dir: %w", err)
	}
	sample.CuratedAt = time.Now().UTC()

	path := filepath.Join(s.curdir, sample.TenantID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	s.logger.Printf("Curated training sample for %s (doc=%s)", sample.TenantID, sample.DocumentID)
	return nil
}
