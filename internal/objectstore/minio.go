// Package objectstore publishes the batch result to an S3 compatible
// bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/paragraph-tools/multigrm/internal/model"
)

const (
	ObjectName  = "genotypes.json.gz"
	contentType = "application/gzip"
)

func NewMinIOClient(cfg model.S3) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// Uploader puts the result under <prefix>/<run id>/genotypes.json.gz.
type Uploader struct {
	logger *slog.Logger
	client *minio.Client
	bucket string
	region string
	key    string
}

func NewUploader(cfg model.S3, runID string, logger *slog.Logger) (*Uploader, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uploader{
		logger: logger,
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		key:    Key(cfg.Prefix, runID),
	}, nil
}

// Key returns the object name for a run.
func Key(prefix, runID string) string {
	return path.Join(prefix, runID, ObjectName)
}

func (u *Uploader) Upload(ctx context.Context, raw []byte) error {
	if u.client == nil {
		return errors.New("uploader already closed")
	}
	if err := ensureBucket(ctx, u.client, u.bucket, u.region); err != nil {
		return fmt.Errorf("ensure bucket %s: %w", u.bucket, err)
	}
	info, err := u.client.PutObject(ctx, u.bucket, u.key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading %s/%s: %w", u.bucket, u.key, err)
	}
	u.logger.InfoContext(ctx, "result uploaded", "bucket", info.Bucket, "key", info.Key, "size", info.Size)
	return nil
}

func (u *Uploader) Close() error {
	if u.client == nil {
		return errors.New("uploader already closed")
	}
	u.client = nil
	return nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
