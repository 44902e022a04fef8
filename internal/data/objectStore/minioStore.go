package objectStore

import (
	"context"
	"io"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStore struct {
	client *minio.Client
	bucket string
	logger *logger_i.Logger
}

// NewMinioStore connects to an S3 compatible endpoint and creates the bucket if missing.
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "object store init failed", err)
	}

	s := &MinioStore{client: client, bucket: cfg.S3Bucket, logger: logger_i.NewLogger("ObjectStore")}

	exists, err := client.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "object store unreachable", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperr.Wrap(apperr.UpstreamUnavailable, "could not create bucket", err)
		}
		s.logger.Info("bucket created", "bucket", s.bucket)
	}
	return s, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "could not store file", err)
	}
	s.logger.FromContext(ctx).Debug("object stored", "key", key, "size", info.Size)
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "could not read file", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller starts reading.
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, apperr.New(apperr.NotFound, "stored file not found")
		}
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "could not read file", err)
	}
	return obj, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "could not delete file", err)
	}
	return nil
}
