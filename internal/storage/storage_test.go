package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	root := t.TempDir()
	p := NewLocalProvider(root)
	ctx := context.Background()

	uri, err := p.UploadRaw(ctx, "tenant-a", "raw/awb.pdf", []byte("%PDF fake"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(filepath.Join(root, "tenant-a", "raw", "awb.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF fake"), data)

	signed, err := p.GenerateSignedURL(ctx, uri, DefaultSignedURLTTL)
	require.NoError(t, err)
	assert.Equal(t, uri, signed)
}

func TestLocalProviderRejectsForeignURI(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	_, err := p.GenerateSignedURL(context.Background(), "gs://bucket/object", DefaultSignedURLTTL)
	assert.Error(t, err)
}
