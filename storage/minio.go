package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"MusicFlow/config"
	"MusicFlow/core/offline"
	"MusicFlow/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultPrefix = "offline/"
	metaStatus    = "Status"
)

// MinioCache is an offline.Cache that keeps each partition under its own
// object prefix. Object names are the base64url form of the cache key, the
// response status travels in user metadata.
type MinioCache struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ offline.Cache = (*MinioCache)(nil)

// NewMinioCache connects to MinIO with the configured credentials and makes
// sure the bucket exists.
func NewMinioCache(ctx context.Context, cfg *config.Config) (*MinioCache, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	c := &MinioCache{client: client, bucket: cfg.MinioBucket, prefix: defaultPrefix}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.ensureBucket(ctx, cfg.MinioRegion); err != nil {
		return nil, err
	}
	logger.Info("connected to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return c, nil
}

func (c *MinioCache) ensureBucket(ctx context.Context, region string) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	logger.Info("created bucket", logger.String("bucket", c.bucket))
	return nil
}

func (c *MinioCache) Open(_ context.Context, name string) (offline.Partition, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid partition name %q", name)
	}
	return &minioPartition{cache: c, dir: c.prefix + name + "/"}, nil
}

// Names lists partitions that hold at least one entry.
func (c *MinioCache) Names(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: c.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list partitions: %w", obj.Err)
		}
		if name, ok := strings.CutSuffix(strings.TrimPrefix(obj.Key, c.prefix), "/"); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (c *MinioCache) Delete(ctx context.Context, name string) error {
	dir := c.prefix + name + "/"
	objects := c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: dir, Recursive: true})

	var removed int
	toRemove := make(chan minio.ObjectInfo)
	go func() {
		defer close(toRemove)
		for obj := range objects {
			if obj.Err != nil {
				logger.Warn("failed to list object for removal", logger.String("partition", name), logger.ErrorField(obj.Err))
				continue
			}
			removed++
			toRemove <- obj
		}
	}()
	// Results are drained to the end so the lister above never blocks.
	var firstErr error
	for res := range c.client.RemoveObjects(ctx, c.bucket, toRemove, minio.RemoveObjectsOptions{}) {
		if res.Err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s: %w", res.ObjectName, res.Err)
		}
	}
	if firstErr != nil {
		return firstErr
	}
	logger.Info("removed partition", logger.String("partition", name), logger.Int("objects", removed))
	return nil
}

type minioPartition struct {
	cache *MinioCache
	dir   string
}

func objectName(dir, key string) string {
	return dir + base64.RawURLEncoding.EncodeToString([]byte(key))
}

func keyFromObject(dir, object string) (string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(object, dir))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (p *minioPartition) Match(ctx context.Context, key string) (*offline.Entry, bool, error) {
	c := p.cache
	obj, err := c.client.GetObject(ctx, c.bucket, objectName(p.dir, key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, err
	}
	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, err
	}

	status := http.StatusOK
	for k, v := range info.UserMetadata {
		if strings.EqualFold(k, metaStatus) {
			if n, err := strconv.Atoi(v); err == nil {
				status = n
			}
		}
	}
	header := http.Header{}
	if info.ContentType != "" {
		header.Set("Content-Type", info.ContentType)
	}
	header.Set("Content-Length", strconv.Itoa(len(body)))
	return &offline.Entry{Status: status, Header: header, Body: body}, true, nil
}

func (p *minioPartition) Put(ctx context.Context, key string, entry *offline.Entry) error {
	c := p.cache
	_, err := c.client.PutObject(ctx, c.bucket, objectName(p.dir, key),
		bytes.NewReader(entry.Body), int64(len(entry.Body)),
		minio.PutObjectOptions{
			ContentType:  entry.Header.Get("Content-Type"),
			UserMetadata: map[string]string{metaStatus: strconv.Itoa(entry.Status)},
		})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (p *minioPartition) Keys(ctx context.Context) ([]string, error) {
	c := p.cache
	var keys []string
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: p.dir, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", p.dir, obj.Err)
		}
		if key, ok := keyFromObject(p.dir, obj.Key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
