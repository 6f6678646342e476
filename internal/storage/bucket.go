// Package storage delivers exports to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/amishk599/geolens/internal/export"
)

// Ensure BucketTarget implements export.Target.
var _ export.Target = (*BucketTarget)(nil)

// Options configures a bucket connection.
type Options struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	UseSSL     bool
	Prefix     string        // key prefix, e.g. "exports/"
	PresignTTL time.Duration // lifetime of returned download URLs
}

// BucketTarget uploads downloads as objects and returns a presigned GET URL.
type BucketTarget struct {
	client *minio.Client
	bucket string
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewBucketTarget connects to the endpoint. No request is made until
// EnsureBucket or Deliver is called.
func NewBucketTarget(opts Options) (*BucketTarget, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", opts.Endpoint, err)
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BucketTarget{
		client: cli,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (t *BucketTarget) EnsureBucket(ctx context.Context) error {
	exists, err := t.client.BucketExists(ctx, t.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", t.bucket, err)
	}
	if exists {
		return nil
	}
	if err := t.client.MakeBucket(ctx, t.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", t.bucket, err)
	}
	return nil
}

// Deliver uploads the blob under prefix/<date>/<file name> and returns a
// presigned URL that downloads it as an attachment.
func (t *BucketTarget) Deliver(ctx context.Context, link export.Link, urls *export.ObjectURLs) (string, error) {
	blob, err := export.Resolve(link, urls)
	if err != nil {
		return "", err
	}

	name := path.Base(link.Download)
	key := path.Join(t.prefix, t.now().UTC().Format("2006-01-02"), name)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})

	_, err = t.client.PutObject(ctx, t.bucket, key, bytes.NewReader(blob.Body), int64(len(blob.Body)), minio.PutObjectOptions{
		ContentType:        blob.MIMEType,
		ContentDisposition: disposition,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", disposition)
	u, err := t.client.PresignedGetObject(ctx, t.bucket, key, t.ttl, params)
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return u.String(), nil
}
