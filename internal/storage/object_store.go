package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"studio/api/internal/config"
)

// Object is an upload handed to a media store.
type Object struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredObject is what a media store returns for an accepted upload: a
// durable URL and the handle used to delete it later.
type StoredObject struct {
	URL    string
	Handle string
	Size   int64
}

type ObjectStore struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.BucketName)
	}

	return &ObjectStore{
		client:    client,
		bucket:    cfg.BucketName,
		region:    cfg.Region,
		publicURL: publicURL,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *ObjectStore) Put(ctx context.Context, obj Object) (StoredObject, error) {
	info, err := s.client.PutObject(ctx, s.bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("put object %s: %w", obj.Key, err)
	}
	return StoredObject{
		URL:    s.publicURL + "/" + obj.Key,
		Handle: obj.Key,
		Size:   info.Size,
	}, nil
}

// Remove deletes the object behind handle. Removing a missing object
// succeeds, so repeated cleanups stay harmless.
func (s *ObjectStore) Remove(ctx context.Context, handle string) error {
	err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return fmt.Errorf("remove object %s: %w", handle, err)
}

func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
