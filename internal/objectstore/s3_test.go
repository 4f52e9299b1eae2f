package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// mockS3 implements s3API for testing.
type mockS3 struct {
	mock.Mock
}

func (m *mockS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func TestS3Store_List(t *testing.T) {
	client := &mockS3{}
	client.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Bucket) == "raw" &&
			aws.ToString(in.Prefix) == "daily/" &&
			aws.ToInt32(in.MaxKeys) == MaxListKeys
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("daily/a.csv"), Size: aws.Int64(12)},
			{Key: aws.String("daily/b.json")},
		},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}, nil).Once()

	store := NewS3WithClient(client)
	objects, err := store.List(context.Background(), "raw", "daily/")
	require.NoError(t, err)

	assert.Equal(t, []ObjectInfo{
		{Key: "daily/a.csv", Size: 12},
		{Key: "daily/b.json"},
	}, objects)

	// Truncated listings are not continued
	client.AssertNumberOfCalls(t, "ListObjectsV2", 1)
}

func TestS3Store_List_Error(t *testing.T) {
	client := &mockS3{}
	client.On("ListObjectsV2", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := NewS3WithClient(client).List(context.Background(), "raw", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, err.Error(), `bucket="raw"`)
}

func TestS3Store_Get(t *testing.T) {
	client := &mockS3{}
	client.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Bucket) == "raw" && aws.ToString(in.Key) == "a.csv"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("id\n1\n")),
	}, nil)

	data, err := NewS3WithClient(client).Get(context.Background(), "raw", "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
	client.AssertExpectations(t)
}

func TestS3Store_Get_Error(t *testing.T) {
	client := &mockS3{}
	client.On("GetObject", mock.Anything, mock.Anything).Return(nil, errors.New("no such key"))

	_, err := NewS3WithClient(client).Get(context.Background(), "raw", "missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.csv")
}

func TestNewS3WithClient_NilPanics(t *testing.T) {
	assert.Panics(t, func() { NewS3WithClient(nil) })
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.ObjectStoreConfig{Provider: "gcs"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNew_MinIORequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), config.ObjectStoreConfig{Provider: "minio"})
	assert.Error(t, err)
}

func TestNewMinIO(t *testing.T) {
	store, err := NewMinIO(config.ObjectStoreConfig{
		Endpoint:        "https://minio.local:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = NewMinIO(config.ObjectStoreConfig{Endpoint: "minio.local:9000"})
	assert.Error(t, err, "credentials are required")
}

func TestNew_S3WithStaticCredentials(t *testing.T) {
	store, err := New(context.Background(), config.ObjectStoreConfig{
		Provider:        "S3",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)
}
