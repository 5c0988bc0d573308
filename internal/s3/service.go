package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
	"github.com/condohub/billing/internal/config"
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
)

var validDocumentTypes = []DocumentType{DocumentTypeNFSe}

// Service archives fiscal artifacts. NewService returns nil when S3 is
// disabled, callers skip archival in that case.
type Service interface {
	UploadDocument(ctx context.Context, document *Document) (string, error)
	GetDocument(ctx context.Context, document *Document) ([]byte, error)
	Exists(ctx context.Context, document *Document) (bool, error)
}

type s3ServiceImpl struct {
	client *s3.Client
	config *config.S3Config
	logger *logger.Logger
}

func NewService(config *config.Configuration, logger *logger.Logger) (Service, error) {
	if !config.S3.Enabled {
		logger.Infow("s3 archival disabled")
		return nil, nil
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithRegion(config.S3.Region),
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to load aws config").
			Mark(ierr.ErrHTTPClient)
	}

	return &s3ServiceImpl{
		config: &config.S3,
		client: s3.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

func objectKey(prefix string, document *Document) (string, error) {
	switch document.Type {
	case DocumentTypeNFSe:
		return path.Join(prefix, string(document.Type), document.TenantID,
			fmt.Sprintf("%s.%s", document.ID, document.Kind)), nil
	default:
		return "", ierr.NewError("invalid document type").
			WithHintf("valid document types are: %v", validDocumentTypes).
			WithReportableDetails(map[string]any{"type": document.Type}).
			Mark(ierr.ErrSystem)
	}
}

func contentType(kind DocumentKind) string {
	switch kind {
	case DocumentKindXML:
		return "application/xml"
	case DocumentKindPdf:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Exists implements Service.
func (s *s3ServiceImpl) Exists(ctx context.Context, document *Document) (bool, error) {
	key, err := objectKey(s.config.Prefix, document)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return false, nil
		}
		return false, ierr.WithError(err).
			WithHint("failed to check if document exists").
			WithReportableDetails(map[string]any{"bucket": s.config.Bucket, "key": key}).
			Mark(ierr.ErrHTTPClient)
	}

	return true, nil
}

// UploadDocument implements Service. It returns the object key.
func (s *s3ServiceImpl) UploadDocument(ctx context.Context, document *Document) (string, error) {
	key, err := objectKey(s.config.Prefix, document)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(document.Data),
		ContentType: aws.String(contentType(document.Kind)),
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("failed to upload document").
			WithReportableDetails(map[string]any{"bucket": s.config.Bucket, "key": key}).
			Mark(ierr.ErrHTTPClient)
	}

	s.logger.Debugw("uploaded document", "bucket", s.config.Bucket, "key", key)
	return key, nil
}

// GetDocument implements Service.
func (s *s3ServiceImpl) GetDocument(ctx context.Context, document *Document) ([]byte, error) {
	key, err := objectKey(s.config.Prefix, document)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get document").
			WithReportableDetails(map[string]any{"bucket": s.config.Bucket, "key": key}).
			Mark(ierr.ErrHTTPClient)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}
