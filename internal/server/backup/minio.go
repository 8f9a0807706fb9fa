package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig параметры S3-совместимого хранилища
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioStore хранит копии в S3-совместимом бакете
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore подключается к хранилищу и создает бакет, если его нет
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = Bucket
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Put загружает объект, если объекта с таким именем еще нет
func (m *MinioStore) Put(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := m.client.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{})
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrObjectExists, name)
	case !isNotFound(err):
		return fmt.Errorf("failed to stat object %s: %w", name, err)
	}

	_, err = m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: "max-age=3600",
		},
	)
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", name, err)
	}
	return nil
}

// List возвращает все объекты бакета
func (m *MinioStore) List(ctx context.Context) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		out = append(out, ObjectInfo{
			Name:         obj.Key,
			LastModified: obj.LastModified,
			Size:         obj.Size,
		})
	}
	return out, nil
}

// Remove удаляет объекты по именам
func (m *MinioStore) Remove(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if err := m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}
