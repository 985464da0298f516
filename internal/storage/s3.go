package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
)

// S3Store keeps media in an S3 bucket fronted by a CDN
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	now     func() time.Time
}

// S3Option customizes the S3 client
type S3Option func(*s3.Options)

// WithEndpoint points the client at an S3-compatible endpoint using path-style addressing
func WithEndpoint(endpoint string) S3Option {
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	}
}

// NewS3Store creates a store from the default AWS credential chain.
// baseURL is the public prefix of the bucket, e.g. the CDN origin.
func NewS3Store(ctx context.Context, region, bucket, baseURL string, opts ...S3Option) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{ServiceName: "s3"})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3StoreFromConfig(cfg, bucket, baseURL, opts...), nil
}

// NewS3StoreFromConfig creates a store from an already loaded AWS config
func NewS3StoreFromConfig(cfg aws.Config, bucket, baseURL string, opts ...S3Option) *S3Store {
	clientOpts := make([]func(*s3.Options), len(opts))
	for i, o := range opts {
		clientOpts[i] = o
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, cfg.Region)
	}
	return &S3Store{
		client:  s3.NewFromConfig(cfg, clientOpts...),
		bucket:  bucket,
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Put uploads data under a fresh key for ownerID
func (s *S3Store) Put(ctx context.Context, kind Kind, ownerID, filename string, body io.Reader, size int64) (*UploadResult, error) {
	now := s.now()
	key := objectKey(kind, ownerID, filename, now)

	ctx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalCallAttrs{Service: "s3", Operation: "put_object", ResourceID: key})
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(filepath.Ext(key))),
		CacheControl:  aws.String("max-age=86400"),
		Metadata: map[string]string{
			"owner-id":          ownerID,
			"original-filename": filename,
			"upload-timestamp":  now.Format(time.RFC3339),
			"file-type":         string(kind),
		},
	})
	telemetry.EndExternalCall(span, err)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{Key: key, URL: publicURL(s.baseURL, key), Size: size}, nil
}

// Delete removes an object
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// CheckBucketAccess verifies that the bucket is reachable
func (s *S3Store) CheckBucketAccess(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", s.bucket, err)
	}
	return nil
}
