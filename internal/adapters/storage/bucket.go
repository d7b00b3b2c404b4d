// Package storage provisions the data lake bucket and writes objects into it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/okian/nbalake/pkg/logger"
)

// Readiness defaults, used when no option overrides them.
const (
	defaultReadinessTimeout  = 2 * time.Minute
	defaultReadinessMinDelay = time.Second
	defaultReadinessMaxDelay = 20 * time.Second
)

// usEast1 is the only region where CreateBucket must not carry a location
// constraint.
const usEast1 = "us-east-1"

// S3API is the subset of the S3 client used by this package.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BucketProvisioner makes sure the lake bucket exists and is visible.
type BucketProvisioner struct {
	client   S3API
	logger   logger.Logger
	timeout  time.Duration
	minDelay time.Duration
	maxDelay time.Duration
}

// Option configures a BucketProvisioner.
type Option func(*BucketProvisioner)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *BucketProvisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithReadiness bounds the wait for a newly created bucket to become visible.
func WithReadiness(timeout, minDelay, maxDelay time.Duration) Option {
	return func(p *BucketProvisioner) {
		if timeout > 0 {
			p.timeout = timeout
		}
		if minDelay > 0 && maxDelay >= minDelay {
			p.minDelay = minDelay
			p.maxDelay = maxDelay
		}
	}
}

// NewBucketProvisioner creates a provisioner around an S3 client.
func NewBucketProvisioner(client S3API, opts ...Option) *BucketProvisioner {
	p := &BucketProvisioner{
		client:   client,
		timeout:  defaultReadinessTimeout,
		minDelay: defaultReadinessMinDelay,
		maxDelay: defaultReadinessMaxDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named("storage")
	}
	return p
}

// Ensure checks the bucket and creates it when the check fails for any
// reason. It reports whether a bucket was created. An existing bucket costs
// exactly one check. After creation it polls until the bucket is visible or
// the readiness timeout passes; both creation and readiness failures are
// returned.
func (p *BucketProvisioner) Ensure(ctx context.Context, bucket, region string) (bool, error) {
	if bucket == "" {
		return false, ErrBucketName
	}

	_, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		p.logger.Info(ctx, "bucket exists", logger.String("bucket", bucket))
		return false, nil
	}
	p.logger.Info(ctx, "bucket check failed, creating bucket",
		logger.String("bucket", bucket),
		logger.String("head_error", errorCode(err)),
	)

	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if region != "" && region != usEast1 {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := p.client.CreateBucket(ctx, in); err != nil {
		p.logger.Error(ctx, "error creating bucket", logger.String("bucket", bucket), logger.Error(err))
		return false, fmt.Errorf("%w: %s: %w", ErrCreateBucket, bucket, err)
	}
	p.logger.Info(ctx, "created bucket", logger.String("bucket", bucket), logger.String("region", region))

	if err := p.waitReady(ctx, bucket); err != nil {
		p.logger.Error(ctx, "bucket never became visible", logger.String("bucket", bucket), logger.Error(err))
		return true, err
	}
	return true, nil
}

// waitReady polls HeadBucket with backoff between minDelay and maxDelay.
func (p *BucketProvisioner) waitReady(ctx context.Context, bucket string) error {
	start := time.Now()
	waiter := s3.NewBucketExistsWaiter(p.client, func(o *s3.BucketExistsWaiterOptions) {
		o.MinDelay = p.minDelay
		o.MaxDelay = p.maxDelay
	})
	if err := waiter.Wait(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}, p.timeout); err != nil {
		return fmt.Errorf("%w: %s after %s: %w", ErrBucketNotReady, bucket, p.timeout, err)
	}
	p.logger.Debug(ctx, "bucket visible", logger.String("bucket", bucket), logger.Duration("waited", time.Since(start)))
	return nil
}

// errorCode extracts the service error code, falling back to the message.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return err.Error()
}
