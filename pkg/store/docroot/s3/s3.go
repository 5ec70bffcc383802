// Package s3 serves documents from an Amazon S3 (or S3-compatible) bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/marmos91/dittoweb/pkg/store/docroot"
)

// S3Store implements docroot.WritableStore on an S3 bucket.
//
// Key Layout:
// The object key of a document is KeyPrefix followed by its path without the
// leading "/". With KeyPrefix "site/", the document "/img/logo.png" lives at
// "site/img/logo.png", so the bucket mirrors the served tree.
//
// Thread Safety:
// Safe for concurrent use; the underlying s3.Client is.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3StoreConfig contains configuration for the S3 store.
type S3StoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string
}

// NewS3Store creates an S3-backed store and verifies that the bucket is
// reachable.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3Store: Store ready for use
//   - error: If the configuration is incomplete or the bucket cannot be accessed
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// objectKey maps a document path to its object key.
func (s *S3Store) objectKey(path string) string {
	return s.keyPrefix + strings.TrimPrefix(path, "/")
}

// Open streams the object for path. The returned reader is the GetObject
// body, so nothing is buffered here.
func (s *S3Store) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := s.objectKey(path)
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", path, docroot.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}

	return result.Body, nil
}

// Put uploads data as the object for path.
func (s *S3Store) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := s.objectKey(path)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write object %q: %w", key, err)
	}

	return nil
}

// Close is a no-op; the S3 client needs no explicit shutdown.
func (s *S3Store) Close() error {
	return nil
}

// isNotFound recognizes both the typed NoSuchKey error and the generic
// NotFound code some S3-compatible services return instead.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
