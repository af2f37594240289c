package modelstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/allergy-risk/internal/domain/risk"
)

// ObjectStore keeps the artifact as one object in S3-compatible storage
// (S3, R2, MinIO). A PUT replaces the object atomically.
type ObjectStore struct {
	client *minio.Client
	bucket string
	object string
	logger *slog.Logger
}

// NewObjectStore constructs the storage adapter. An explicit http:// endpoint
// disables TLS regardless of useSSL.
func NewObjectStore(endpoint, accessKey, secretKey, bucket, region, object string, useSSL bool, logger *slog.Logger) (*ObjectStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "http://") {
		useSSL = false
	}
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object storage client: %w", err)
	}
	return &ObjectStore{
		client: client,
		bucket: bucket,
		object: object,
		logger: logger.With("component", "modelstore.object"),
	}, nil
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return err
	}
	s.logger.Info("model bucket created", "bucket", s.bucket)
	return nil
}

// Load implements risk.ArtifactStore.
func (s *ObjectStore) Load(ctx context.Context) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, objectError(err)
	}
	defer obj.Close()
	if _, err := obj.Stat(); err != nil {
		return nil, false, objectError(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, fmt.Errorf("read model object: %w", err)
	}
	return data, true, nil
}

// Save implements risk.ArtifactStore.
func (s *ObjectStore) Save(ctx context.Context, data []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure model bucket: %w", err)
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      "application/json",
		DisableMultipart: true,
	})
	if err != nil {
		return fmt.Errorf("put model object: %w", err)
	}
	return nil
}

// objectError maps a missing bucket or key to nil so Load reports found=false.
func objectError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return nil
	}
	return fmt.Errorf("get model object: %w", err)
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if idx := strings.Index(raw, "/"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

var _ risk.ArtifactStore = (*ObjectStore)(nil)
