package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/okian/nbalake/internal/domain/lake"
	"github.com/okian/nbalake/pkg/logger"
)

// UploadResult describes one Upload call.
type UploadResult struct {
	Key     string
	Records int
	Bytes   int
	ETag    string
	Skipped bool
}

// Uploader writes line-delimited record blobs into the bucket.
type Uploader struct {
	client S3API
	logger logger.Logger
}

// NewUploader creates an uploader around an S3 client.
func NewUploader(client S3API, l logger.Logger) *Uploader {
	if l == nil {
		l = logger.Named("storage")
	}
	return &Uploader{client: client, logger: l}
}

// Upload encodes records as line-delimited JSON and writes them to key with
// one PutObject. Zero records is a skip: nothing is written.
func (u *Uploader) Upload(ctx context.Context, bucket, key string, records []lake.Record) (UploadResult, error) {
	res := UploadResult{Key: key, Records: len(records)}
	if len(records) == 0 {
		u.logger.Info(ctx, "no data to upload, skipping", logger.String("key", key))
		res.Skipped = true
		return res, nil
	}

	blob, err := lake.EncodeLines(records)
	if err != nil {
		return res, fmt.Errorf("%w: encode: %w", ErrUpload, err)
	}
	res.Bytes = len(blob)

	out, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          strings.NewReader(blob),
		ContentLength: aws.Int64(int64(len(blob))),
		ContentType:   aws.String(lake.ContentTypeJSON),
	})
	if err != nil {
		u.logger.Error(ctx, "error uploading data", logger.String("bucket", bucket), logger.String("key", key), logger.Error(err))
		return res, fmt.Errorf("%w: s3://%s/%s: %w", ErrUpload, bucket, key, err)
	}
	res.ETag = aws.ToString(out.ETag)

	u.logger.Info(ctx, "uploaded data",
		logger.String("uri", lake.S3URI(bucket, key)),
		logger.Int("records", res.Records),
		logger.Int("bytes", res.Bytes),
		logger.String("etag", res.ETag),
	)
	return res, nil
}
