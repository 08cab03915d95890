// Package blob archives composed cards in S3-compatible object storage.
package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ombulabs/rails-superhero-cards/internal/config"
)

// Store is the object storage interface.
type Store interface {
	// UploadImage stores a base64 PNG under a key derived from the timestamp
	// and session id, below the given folder prefix, and returns the key.
	UploadImage(ctx context.Context, imageBase64, sessionID, folderPrefix string) (string, error)

	// GetImageBase64 fetches an object and returns it base64-encoded.
	GetImageBase64(ctx context.Context, objectKey string) (string, error)
}

// S3Store implements Store using minio-go, which speaks to AWS S3 as well as
// LocalStack/minio endpoints in development.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store connects to the configured endpoint and makes sure the bucket
// exists.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	s := &S3Store{client: client, bucket: cfg.Bucket}
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *S3Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	slog.Info("created bucket", "bucket", s.bucket)
	return nil
}

func (s *S3Store) UploadImage(ctx context.Context, imageBase64, sessionID, folderPrefix string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	objectKey := fmt.Sprintf("%s/%s_%s.png", folderPrefix, timestamp, sessionID)

	_, err = s.client.PutObject(ctx, s.bucket, objectKey,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}

	slog.Info("uploaded card image", "bucket", s.bucket, "key", objectKey)
	return objectKey, nil
}

func (s *S3Store) GetImageBase64(ctx context.Context, objectKey string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", objectKey, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

var _ Store = (*S3Store)(nil)
