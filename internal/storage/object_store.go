package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"moonlit/gallery/internal/config"
)

// CacheControlImmutable is applied to every uploaded photo. Keys are never
// reused, so the content behind a URL never changes.
const CacheControlImmutable = "public, max-age=31536000"

var ErrObjectNotFound = errors.New("object not found")

type PutOptions struct {
	ContentType  string
	CacheControl string
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	CacheControl string
}

// ObjectStore writes photos to an S3 compatible bucket.
type ObjectStore struct {
	client *minio.Client
	bucket string
	region string
	base   string
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

	return &ObjectStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		base:   PublicBase(cfg),
	}, nil
}

// PublicBase is the URL prefix objects are served from: the configured
// public base, or the endpoint itself.
func PublicBase(cfg config.StorageConfig) string {
	base := cfg.PublicBase
	if base == "" {
		base = cfg.Endpoint
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base
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

// Put streams r into the bucket. A negative size lets the client upload in
// parts without knowing the length up front.
func (s *ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}, nil
}

func (s *ObjectStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("stat object %s: %w", key, err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		CacheControl: info.Metadata.Get("Cache-Control"),
	}, nil
}

func (s *ObjectStore) PublicURL(key string) string {
	return BuildURL(s.base, s.bucket, key)
}

// Ping checks the bucket is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func (s *ObjectStore) Bucket() string {
	return s.bucket
}

// BuildURL yields <base>/<bucket>/<key>.
func BuildURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), bucket, key)
}
