// Package storage reads judgment source files from MinIO.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mesopotato/enrich-justice/internal/config"
	"github.com/mesopotato/enrich-justice/pkg/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the subset of object storage the enrichment and download paths use.
type ObjectStore interface {
	// Open streams objectName; the caller closes the reader.
	Open(ctx context.Context, objectName string) (io.ReadCloser, error)
	// PresignedURL returns a time-limited download link for objectName.
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

// MinIO is an ObjectStore backed by one bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

// NewMinIO connects to MinIO and makes sure the configured bucket exists.
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (*MinIO, error) {
	// 1. client
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	log.Info("[MinIO] client initialised")

	// 2. bucket
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check minio bucket: %w", err)
	}
	if !exists {
		log.Infof("[MinIO] bucket '%s' missing, creating it", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create minio bucket: %w", err)
		}
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &MinIO{client: client, bucket: cfg.BucketName, expiry: expiry}, nil
}

func (m *MinIO) Open(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", objectName, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller starts reading.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat object %s: %w", objectName, err)
	}
	return obj, nil
}

func (m *MinIO) PresignedURL(ctx context.Context, objectName string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, m.expiry, nil)
	if err != nil {
		log.Errorf("[MinIO] presigning %s failed: %v", objectName, err)
		return "", err
	}
	return u.String(), nil
}
