package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oralflow/oralflow-api/pkg/logging"
)

// mockS3Client records calls and keeps objects in memory.
type mockS3Client struct {
	objects map[string][]byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &notFoundError{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "NoSuchKey: key not found" }

type mockPresigner struct{}

func (mockPresigner) PresignGetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{
		URL: "https://example.com/" + *input.Key + "?signed=1",
	}, nil
}

func newTestStore(mock *mockS3Client) *Store {
	return NewStore(mock, mockPresigner{}, "test-bucket", logging.New("debug").Component("storage"))
}

func TestStore_PutGetDelete(t *testing.T) {
	mock := newMockS3()
	store := newTestStore(mock)

	err := store.Put(context.Background(), "receipts/7/abc.pdf", "application/pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)

	body, err := store.Get(context.Background(), "receipts/7/abc.pdf")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	body.Close()
	assert.Equal(t, "pdf-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), "receipts/7/abc.pdf"))
	_, err = store.Get(context.Background(), "receipts/7/abc.pdf")
	assert.Error(t, err)
}

func TestStore_PresignGet(t *testing.T) {
	store := newTestStore(newMockS3())

	url, err := store.PresignGet(context.Background(), "receipts/7/abc.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "receipts/7/abc.pdf")
}

func TestStore_DisabledIsNoOp(t *testing.T) {
	store := NewStore(nil, nil, "", logging.New("debug"))

	assert.False(t, store.Enabled())
	assert.NoError(t, store.Put(context.Background(), "k", "text/plain", strings.NewReader("x")))
	_, err := store.PresignGet(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}

func TestObjectKeys(t *testing.T) {
	id := uuid.New()
	key := AttachmentKey(12, id, "PNG")
	assert.Equal(t, "records/12/"+id.String()+".png", key)

	receipt := ReceiptKey(7, ".pdf")
	assert.True(t, strings.HasPrefix(receipt, "receipts/7/"))
	assert.True(t, strings.HasSuffix(receipt, ".pdf"))
}
