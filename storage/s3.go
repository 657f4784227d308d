package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Resolver.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Resolver materialises s3: references. The object is cached with its
// original extension so it is parsed in its own format.
type S3Resolver struct {
	client S3API
	logger *slog.Logger
}

// NewS3Resolver creates a resolver over an S3 client.
func NewS3Resolver(client S3API) *S3Resolver {
	return &S3Resolver{
		client: client,
		logger: slog.Default().With("component", "s3-resolver"),
	}
}

// NewDefaultS3Resolver creates a resolver using the default AWS credential chain.
func NewDefaultS3Resolver(ctx context.Context) (*S3Resolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Resolver(s3.NewFromConfig(cfg)), nil
}

// Resolve downloads the object into dir unless it is already cached.
func (r *S3Resolver) Resolve(ctx context.Context, ref Ref, dir string) (string, error) {
	bucket, key, _ := strings.Cut(ref.Dataset, "/")
	ext := FormatOf(key)
	if ext == "" {
		return "", fmt.Errorf("%w: s3 object %q has no extension", ErrUnsupportedFormat, key)
	}
	target := filepath.Join(dir, "s3_"+unsafeChars.ReplaceAllString(bucket+"_"+key, "_"))
	if fileExists(target) {
		r.logger.Debug("using cached object", "ref", ref.String(), "path", target)
		return target, nil
	}

	r.logger.Info("downloading object", "bucket", bucket, "key", key)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("%w: s3://%s/%s: %w", ErrRemoteFetch, bucket, key, err)
	}
	defer out.Body.Close()
	if err := writeAtomic(target, out.Body); err != nil {
		return "", err
	}
	return target, nil
}
