package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/testbench/internal/util/naming"
)

// S3Options configures an S3Sink. Endpoint is only needed for
// S3-compatible stores other than AWS.
type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// S3OptionsFromEnv reads TESTBENCH_S3_ENDPOINT, TESTBENCH_S3_REGION,
// TESTBENCH_S3_ACCESS_KEY and TESTBENCH_S3_SECRET_KEY.
func S3OptionsFromEnv(bucket, prefix string) S3Options {
	region := os.Getenv("TESTBENCH_S3_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return S3Options{
		Endpoint:  os.Getenv("TESTBENCH_S3_ENDPOINT"),
		Region:    region,
		AccessKey: os.Getenv("TESTBENCH_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("TESTBENCH_S3_SECRET_KEY"),
		Bucket:    bucket,
		Prefix:    prefix,
	}
}

// S3Sink uploads kubeconfigs to <Prefix>/kubeconfigs/<cluster>.yaml in a
// bucket, creating the bucket on first use.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string

	bucketOnce sync.Once
	bucketErr  error
}

// NewS3Sink creates a sink from opts. Without static keys the default AWS
// credential chain is used.
func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Sink(client, opts.Bucket, opts.Prefix), nil
}

func newS3Sink(client *s3.Client, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Sink) Write(ctx context.Context, cluster string, kubeconfig []byte) (string, error) {
	s.bucketOnce.Do(func() { s.bucketErr = s.ensureBucket(ctx) })
	if s.bucketErr != nil {
		return "", s.bucketErr
	}

	key := naming.ArtifactKey(s.prefix, cluster)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(kubeconfig),
		ContentLength: aws.Int64(int64(len(kubeconfig))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s in bucket %s: %w", key, s.bucket, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil && !isBucketOwned(err) {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func isBucketOwned(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "BucketAlreadyOwnedByYou"
	}
	return false
}

func isNotFound(err error) bool {
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "404"
	}
	return false
}
