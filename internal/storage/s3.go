package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// presignTTL is the longest lifetime SigV4 allows for a presigned URL.
const presignTTL = 7 * 24 * time.Hour

// S3API is the subset of *s3.Client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner is the subset of *s3.PresignClient the store uses.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Config selects the bucket and endpoint.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible services; enables path-style addressing
	PublicURL string // optional; when set, URLs are PublicURL/<path> instead of presigned
}

// S3 stores objects in an S3 bucket.
type S3 struct {
	api       S3API
	presigner Presigner
	bucket    string
	publicURL string
}

// NewS3 loads AWS credentials from the default chain and builds the store.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("storage.NewS3: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, s3.NewPresignClient(client), cfg.Bucket, cfg.PublicURL), nil
}

// NewS3WithClient builds the store over explicit clients.
func NewS3WithClient(api S3API, presigner Presigner, bucket, publicURL string) *S3 {
	return &S3{api: api, presigner: presigner, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *S3) Put(ctx context.Context, objectPath, contentType string, body io.Reader, size int64) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("storage.S3.Put: %w: %w", domain.ErrRemote, err)
	}

	if s.publicURL != "" {
		return s.publicURL + "/" + escapePath(objectPath), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return "", fmt.Errorf("storage.S3.Put: presign: %w: %w", domain.ErrRemote, err)
	}
	return req.URL, nil
}

// Delete checks existence first: S3 reports success for deleting a missing
// key, but callers need to tell the two apart.
func (s *S3) Delete(ctx context.Context, objectPath string) error {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("storage.S3.Delete: %s: %w", objectPath, ErrObjectNotFound)
		}
		return fmt.Errorf("storage.S3.Delete: %w: %w", domain.ErrRemote, err)
	}

	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectPath),
	}); err != nil {
		return fmt.Errorf("storage.S3.Delete: %w: %w", domain.ErrRemote, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
