// Package minio provides a MinIO implementation of reportstore.Store.
//
// Usage:
//
//	cfg := reportstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	key, err := store.Put(ctx, report)
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/fkguard/internal/errs"
	"github.com/koustreak/fkguard/internal/reportstore"
)

const contentType = "application/json"

// Driver is a MinIO implementation of reportstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO, creating cfg.Bucket when it does not exist yet.
func New(ctx context.Context, cfg *reportstore.Config) (*Driver, error) {
	if cfg.Bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "report bucket name is empty")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, bucket: cfg.Bucket}
	if err := d.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) ensureBucket(ctx context.Context, region string) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "failed to check report bucket")
	}
	if ok {
		return nil
	}

	err = d.client.MakeBucket(ctx, d.bucket, miniogo.MakeBucketOptions{Region: region})
	if err != nil && !alreadyOwned(err) {
		return mapError(err, fmt.Sprintf("failed to create bucket %q", d.bucket))
	}
	return nil
}

// --- reportstore.Store implementation ---

// Ping verifies the report bucket is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !ok {
		return errs.New(errs.ErrKindNotFound, fmt.Sprintf("bucket %q does not exist", d.bucket))
	}
	return nil
}

// Close is a no-op: the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// Put uploads r as JSON under r.Key().
func (d *Driver) Put(ctx context.Context, r *reportstore.Report) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(r)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "failed to encode report", err)
	}

	key := r.Key()
	_, err = d.client.PutObject(ctx, d.bucket, key, bytes.NewReader(body), int64(len(body)),
		miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", mapError(err, "failed to upload report")
	}
	return key, nil
}

// Get downloads and decodes the report stored under key.
func (d *Driver) Get(ctx context.Context, key string) (*reportstore.Report, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get report")
	}
	defer obj.Close()

	var r reportstore.Report
	if err := json.NewDecoder(obj).Decode(&r); err != nil {
		// GetObject is lazy: a missing key surfaces on the first read.
		if resp := miniogo.ToErrorResponse(err); resp.Code != "" {
			return nil, mapError(err, "failed to read report")
		}
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to decode report", err)
	}
	return &r, nil
}

// List returns report keys under prefix in key order.
func (d *Driver) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := make([]string, 0)
	for obj := range d.client.ListObjects(ctx, d.bucket, miniogo.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list reports")
		}
		keys = append(keys, obj.Key)
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	return keys, nil
}

var _ reportstore.Store = (*Driver)(nil)
