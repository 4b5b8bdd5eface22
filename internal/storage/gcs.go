package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSProvider stores raw documents in a Google Cloud Storage bucket at
// gs://{bucket}/{tenant}/{object}.
type GCSProvider struct {
	client *gcs.Client
	bucket string
	logger *log.Logger
}

func NewGCSProvider(ctx context.Context, bucket string) (*GCSProvider, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	p := &GCSProvider{
		client: client,
		bucket: bucket,
		logger: log.New(log.Writer(), "[STORAGE] ", log.LstdFlags),
	}
	p.logger.Printf("✅ Connected to GCS bucket gs://%s", bucket)
	return p, nil
}

func (g *GCSProvider) UploadRaw(ctx context.Context, tenantID, objectName string, data []byte, contentType string) (string, error) {
	object := tenantID + "/" + objectName

	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("gcs write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", object, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", g.bucket, object)
	g.logger.Printf("📤 Stored %d bytes at %s", len(data), uri)
	return uri, nil
}

// GenerateSignedURL returns a V4 signed GET URL for a gs:// URI.
func (g *GCSProvider) GenerateSignedURL(ctx context.Context, uri string, ttl time.Duration) (string, error) {
	bucket, object, err := splitGSURI(uri)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	url, err := g.client.Bucket(bucket).SignedURL(object, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", uri, err)
	}
	return url, nil
}

func (g *GCSProvider) Close() error {
	return g.client.Close()
}

func splitGSURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if trimmed == uri {
		return "", "", fmt.Errorf("not a gcs uri: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed gcs uri: %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ Provider = (*GCSProvider)(nil)
