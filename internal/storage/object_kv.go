package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/store"
)

// ObjectKV stores each document as one JSON object in an S3-compatible bucket.
type ObjectKV struct {
	client *minio.Client
	bucket string
	prefix string
	log    *zap.SugaredLogger
}

// ObjectKVConfig describes the bucket ObjectKV writes to.
type ObjectKVConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // prepended to every object name
	UseSSL    bool
}

// NewObjectKV connects to the endpoint and creates the bucket if it is missing.
func NewObjectKV(ctx context.Context, cfg ObjectKVConfig, log *zap.SugaredLogger) (*ObjectKV, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Infow("Created object storage bucket", "bucket", cfg.Bucket)
	}

	return &ObjectKV{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}, nil
}

func (o *ObjectKV) objectName(key string) string {
	return o.prefix + key + ".json"
}

func (o *ObjectKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, _, err := o.read(ctx, key)
	return data, err
}

// read returns the object body with the ETag it was served at.
func (o *ObjectKV) read(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("object get %s: %w", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing object surfaces on the first request.
	info, err := obj.Stat()
	if err != nil {
		if isNotFound(err) {
			return nil, "", store.ErrKeyNotFound
		}
		return nil, "", fmt.Errorf("object stat %s: %w", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("object read %s: %w", key, err)
	}
	return data, info.ETag, nil
}

// Set overwrites the object in a single PUT, which S3 applies atomically.
func (o *ObjectKV) Set(ctx context.Context, key string, value []byte) error {
	return o.put(ctx, key, value, minio.PutObjectOptions{})
}

// Update writes back with If-Match on the ETag it read, or If-None-Match: *
// when the object did not exist. A failed precondition retries the cycle.
func (o *ObjectKV) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	return store.RetryOnConflict(ctx, key, func() (bool, error) {
		current, etag, err := o.read(ctx, key)
		opts := minio.PutObjectOptions{}
		switch {
		case errors.Is(err, store.ErrKeyNotFound):
			opts.SetMatchETagExcept("*")
		case err != nil:
			return false, err
		default:
			opts.SetMatchETag(etag)
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return true, err
		}

		err = o.put(ctx, key, next, opts)
		if isPreconditionFailed(err) {
			return false, nil
		}
		return err == nil, err
	})
}

func (o *ObjectKV) put(ctx context.Context, key string, value []byte, opts minio.PutObjectOptions) error {
	opts.ContentType = "application/json"
	_, err := o.client.PutObject(ctx, o.bucket, o.objectName(key), bytes.NewReader(value), int64(len(value)), opts)
	if err != nil {
		return fmt.Errorf("object put %s: %w", key, err)
	}
	return nil
}

// Delete removes the objects with one multi-object delete request. Missing
// objects are not an error.
func (o *ObjectKV) Delete(ctx context.Context, keys ...string) error {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: o.objectName(k)}
	}
	close(objects)

	var firstErr error
	for rErr := range o.client.RemoveObjects(ctx, o.bucket, objects, minio.RemoveObjectsOptions{}) {
		if isNotFound(rErr.Err) {
			continue
		}
		o.log.Warnw("Failed to remove object", "bucket", o.bucket, "object", rErr.ObjectName, "error", rErr.Err)
		if firstErr == nil {
			firstErr = fmt.Errorf("object delete %s: %w", rErr.ObjectName, rErr.Err)
		}
	}
	return firstErr
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// isPreconditionFailed reports a conditional PUT that lost to another writer.
func isPreconditionFailed(err error) bool {
	if err == nil {
		return false
	}
	resp := minio.ToErrorResponse(err)
	return resp.Code == "PreconditionFailed" || resp.Code == "ConditionalRequestConflict" ||
		resp.StatusCode == http.StatusPreconditionFailed
}
