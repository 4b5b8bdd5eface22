package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Provider abstracts raw document byte storage. URIs are scheme-prefixed
// (file:// or gs://) and always carry the tenant as the first path segment
// below the root.
type Provider interface {
	UploadRaw(ctx context.Context, tenantID, objectName string, data []byte, contentType string) (string, error)
	GenerateSignedURL(ctx context.Context, uri string, ttl time.Duration) (string, error)
}

// DefaultSignedURLTTL is how long download links stay valid.
const DefaultSignedURLTTL = 15 * time.Minute

// LocalProvider writes objects under a root directory. Used in dev and tests.
type LocalProvider struct {
	root   string
	logger *log.Logger
}

func NewLocalProvider(root string) *LocalProvider {
	return &LocalProvider{
		root:   root,
		logger: log.New(log.Writer(), "[STORAGE] ", log.LstdFlags),
	}
}

func (l *LocalProvider) UploadRaw(ctx context.Context, tenantID, objectName string, data []byte, contentType string) (string, error) {
	path := filepath.Join(l.root, tenantID, objectName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir for %s: %w", objectName, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", objectName, err)
	}
	uri := "file://" + path
	l.logger.Printf("Stored %d bytes at %s", len(data), uri)
	return uri, nil
}

// GenerateSignedURL for local storage is the URI itself. There is nothing
// to sign on a shared filesystem.
func (l *LocalProvider) GenerateSignedURL(ctx context.Context, uri string, ttl time.Duration) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return "", fmt.Errorf("not a local uri: %s", uri)
	}
	return uri, nil
}

var _ Provider = (*LocalProvider)(nil)
