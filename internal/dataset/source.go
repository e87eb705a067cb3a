package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/BruksfildServices01/homeservices-coverage/internal/config"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

// Source opens a reference-dataset file by location.
type Source interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// ======================================================
// LOCAL FILES
// ======================================================

type LocalSource struct{}

func (LocalSource) Open(_ context.Context, location string) (io.ReadCloser, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return f, nil
}

// ======================================================
// S3
// ======================================================

// ObjectGetter is the slice of the S3 client the source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Source struct {
	client ObjectGetter
}

func NewS3Source(client ObjectGetter) *S3Source {
	return &S3Source{client: client}
}

// NewS3Client builds a client from the S3_* settings. A custom endpoint
// (minio, localstack) switches to path-style addressing.
func NewS3Client(cfg *config.Config) *s3.Client {
	opts := s3.Options{
		Region: cfg.S3Region,
	}
	if cfg.S3AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// Open takes an s3://bucket/key location.
func (s *S3Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func ParseS3URI(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location needs a bucket and a key: %q", location)
	}
	return bucket, key, nil
}

// ======================================================
// ROUTING
// ======================================================

// Router picks S3 for s3:// locations and the local filesystem otherwise.
type Router struct {
	Local Source
	S3    Source
}

func (r Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, "s3://") {
		if r.S3 == nil {
			return nil, fmt.Errorf("s3 source not configured for %s", location)
		}
		return r.S3.Open(ctx, location)
	}
	local := r.Local
	if local == nil {
		local = LocalSource{}
	}
	return local.Open(ctx, location)
}

// ReadRecords opens location and parses it as a gazetteer.
func ReadRecords(ctx context.Context, src Source, location string) ([]postalcode.Record, []string, error) {
	rc, err := src.Open(ctx, location)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	recs, warnings, err := ParseGazetteer(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", location, err)
	}
	return recs, warnings, nil
}

// ReadAll returns the raw bytes at location, used for GeoJSON boundary files.
func ReadAll(ctx context.Context, src Source, location string) ([]byte, error) {
	rc, err := src.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}
