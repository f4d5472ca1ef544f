package minioctrl

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docqa/src/fsutil"
)

// MinioService reads documents stored as objects in a single bucket.
type MinioService struct {
	client *minio.Client
	bucket string
}

func NewMinioService(endpoint, accessKeyID, secretAccessKey, bucket string, useSSL bool) (*MinioService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
		bucket: bucket,
	}, nil
}

// ReadFile implements fsutil.FileStore; name is an object key in the bucket.
func (s *MinioService) ReadFile(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.translate(name, "failed to read object data", err)
	}

	return data, nil
}

// Stat implements fsutil.FileStore.
func (s *MinioService) Stat(ctx context.Context, name string) (fsutil.FileInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		return fsutil.FileInfo{}, s.translate(name, "failed to stat object", err)
	}
	return fsutil.FileInfo{Name: path.Base(info.Key), Size: info.Size}, nil
}

func (s *MinioService) translate(name, msg string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%s: %w: %s/%s", msg, fsutil.ErrNotFound, s.bucket, name)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
