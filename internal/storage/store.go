// Package storage wraps the S3 object store used for transfer receipts
// and medical record attachments.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PresignAPI is the subset of the S3 presign client used by Store.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store reads and writes clinic documents in a single bucket. If the
// bucket is empty all operations are no-ops, so a local environment can
// run without AWS credentials.
type Store struct {
	bucket  string
	client  S3API
	presign PresignAPI
	logger  *logging.Logger
}

// NewStore creates a Store. presign may be built with
// s3.NewPresignClient over the same client.
func NewStore(client S3API, presign PresignAPI, bucket string, logger *logging.Logger) *Store {
	return &Store{bucket: bucket, client: client, presign: presign, logger: logger}
}

// Enabled reports whether an object store is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// ReceiptKey builds the object key for a transfer receipt.
func ReceiptKey(appointmentID int, ext string) string {
	return fmt.Sprintf("receipts/%d/%s%s", appointmentID, uuid.NewString(), normalizeExt(ext))
}

// AttachmentKey builds the object key for a medical record attachment.
func AttachmentKey(recordID int, attachmentID uuid.UUID, ext string) string {
	return fmt.Sprintf("records/%d/%s%s", recordID, attachmentID, normalizeExt(ext))
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Put uploads one object.
func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	s.logger.Debug("object stored", "key", key, "content_type", contentType)
	return nil
}

// Get streams one object. Callers must close the reader.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("storage: no bucket configured")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return out.Body, nil
}

// Delete removes one object. Missing objects are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a short-lived download URL for an object.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !s.Enabled() || s.presign == nil {
		return "", fmt.Errorf("storage: no bucket configured")
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		ResponseContentDisposition: aws.String(
			fmt.Sprintf("inline; filename=%q", path.Base(key)),
		),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return req.URL, nil
}
