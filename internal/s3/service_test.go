package s3

import (
	"testing"

	"github.com/condohub/billing/internal/config"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	doc := NewNFSeXMLDocument("tenant-1", "doc-1", []byte("<nfse/>"))

	key, err := objectKey("billing", doc)
	require.NoError(t, err)
	assert.Equal(t, "billing/nfse/tenant-1/doc-1.xml", key)

	key, err = objectKey("", doc)
	require.NoError(t, err)
	assert.Equal(t, "nfse/tenant-1/doc-1.xml", key)

	_, err = objectKey("", &Document{ID: "x", Type: "receipt"})
	assert.True(t, ierr.Is(err, ierr.ErrSystem))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/xml", contentType(DocumentKindXML))
	assert.Equal(t, "application/pdf", contentType(DocumentKindPdf))
	assert.Equal(t, "application/octet-stream", contentType("zip"))
}

func TestNewServiceDisabled(t *testing.T) {
	svc, err := NewService(config.GetDefaultConfig(), logger.NewNoopLogger())
	require.NoError(t, err)
	assert.Nil(t, svc)
}
