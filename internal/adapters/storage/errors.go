package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrBucketName     = errors.New("bucket name is empty")
	ErrCreateBucket   = errors.New("create bucket failed")
	ErrBucketNotReady = errors.New("bucket not visible")
	ErrUpload         = errors.New("upload failed")
)
