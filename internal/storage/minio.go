package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// MinioStorage keeps uploads in a single MinIO (S3 compatible) bucket
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// NewMinioStorage connects to MinIO and makes sure the bucket exists
func NewMinioStorage(endpoint, accessKey, secretKey, bucket string, secure bool) (*MinioStorage, error) {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("error creating bucket %s: %w", bucket, err)
		}
		logger.Info("Created MinIO bucket", "bucket", bucket)
	}

	return &MinioStorage{client: client, bucket: bucket}, nil
}

// Upload streams an object into the bucket and returns its object name
func (s *MinioStorage) Upload(ctx context.Context, r io.Reader, size int64, filename, contentType, subDir string) (string, error) {
	name := objectName(subDir, filename)
	_, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload file %s to bucket %s: %w", name, s.bucket, err)
	}
	return name, nil
}

// UploadFromBytes uploads byte data and returns its object name
func (s *MinioStorage) UploadFromBytes(ctx context.Context, data []byte, filename, contentType, subDir string) (string, error) {
	return s.Upload(ctx, bytes.NewReader(data), int64(len(data)), filename, contentType, subDir)
}

// Download opens an object for reading
func (s *MinioStorage) Download(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucket, relativePath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s from bucket %s: %w", relativePath, s.bucket, err)
	}
	return object, nil
}

// Delete removes an object
func (s *MinioStorage) Delete(ctx context.Context, relativePath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, relativePath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file %s from bucket %s: %w", relativePath, s.bucket, err)
	}
	return nil
}

// Exists checks if an object exists
func (s *MinioStorage) Exists(ctx context.Context, relativePath string) bool {
	_, err := s.client.StatObject(ctx, s.bucket, relativePath, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			logger.Warn("MinIO stat failed", "object", relativePath, "error", err)
		}
		return false
	}
	return true
}
