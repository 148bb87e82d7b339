package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/studiowebux/dlts/internal/types"
)

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Options configures an S3 store
type S3Options struct {
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint, for S3-compatible servers
	Endpoint string
}

// S3 keeps objects in an S3 bucket
type S3 struct {
	bucket    string
	uploader  uploader
	presigner presigner
}

var _ Store = (*S3)(nil)

// NewS3 creates a store using the default AWS credential chain
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		bucket:    opts.Bucket,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}, nil
}

// Put uploads r to the bucket under path
func (s *S3) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return &types.TransportError{Op: "upload " + path, Err: err}
	}
	return nil
}

// URL returns a presigned GET link valid for expires
func (s *S3) URL(ctx context.Context, path string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultURLExpiry
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", &types.TransportError{Op: "presign " + path, Err: err}
	}
	return req.URL, nil
}
