package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config holds the settings for an AWS S3 (or S3-compatible) connection.
type S3Config struct {
	Endpoint       string // empty for AWS
	Region         string
	AccessKey      string // empty uses the default credential chain
	SecretKey      string
	ForcePathStyle bool
}

// S3 implements Provider using aws-sdk-go-v2.
type S3 struct {
	client *s3.Client
}

// NewS3 creates an S3 client from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return &S3{client: client}, nil
}

// NewS3FromClient wraps an existing client.
func NewS3FromClient(client *s3.Client) *S3 {
	return &S3{client: client}
}

// Upload puts localPath at bucket/key.
func (s *S3) Upload(ctx context.Context, bucket, key, localPath string, opts UploadOptions) (attrs *ObjectAttrs, err error) {
	start := time.Now()
	defer func() { observe(s.Name(), "upload", bucket, key, start, err) }()

	body, err := readBody(localPath, opts.Gzip)
	if err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(body.Size()),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		input.CacheControl = aws.String(opts.CacheControl)
	}
	if opts.Gzip {
		input.ContentEncoding = aws.String("gzip")
	}
	if opts.Public {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if opts.IfNotExists {
		input.IfNoneMatch = aws.String("*")
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if apiErrorCode(err) == "PreconditionFailed" || httpStatus(err) == http.StatusPreconditionFailed {
			return nil, ErrObjectExists
		}
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	return &ObjectAttrs{
		Bucket:          bucket,
		Name:            key,
		ContentType:     opts.ContentType,
		ContentEncoding: contentEncoding(opts.Gzip),
		CacheControl:    opts.CacheControl,
		Etag:            trimETag(aws.ToString(out.ETag)),
		Size:            body.Size(),
		Updated:         time.Now().UTC(),
	}, nil
}

// Delete removes bucket/key.
func (s *S3) Delete(ctx context.Context, bucket, key string) (err error) {
	start := time.Now()
	defer func() { observe(s.Name(), "delete", bucket, key, start, err) }()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

// Attrs issues a HeadObject and returns nil when the key is missing.
func (s *S3) Attrs(ctx context.Context, bucket, key string) (attrs *ObjectAttrs, err error) {
	start := time.Now()
	defer func() { observe(s.Name(), "attrs", bucket, key, start, err) }()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) || httpStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("head object %q: %w", key, err)
	}

	return &ObjectAttrs{
		Bucket:          bucket,
		Name:            key,
		ContentType:     aws.ToString(out.ContentType),
		ContentEncoding: aws.ToString(out.ContentEncoding),
		CacheControl:    aws.ToString(out.CacheControl),
		Etag:            trimETag(aws.ToString(out.ETag)),
		Size:            aws.ToInt64(out.ContentLength),
		Updated:         aws.ToTime(out.LastModified),
	}, nil
}

// Name returns "s3".
func (s *S3) Name() string { return "s3" }

// Close is a no-op for S3.
func (s *S3) Close() error { return nil }

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func httpStatus(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// S3 returns ETags wrapped in double quotes.
func trimETag(etag string) string {
	return strings.Trim(etag, `"`)
}
