package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/awsconf"
)

// S3 implements Provider on an S3-compatible bucket (AWS S3, Cloudflare R2,
// MinIO).
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds a client from cfg and checks that the bucket is reachable.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	awsCfg, err := awsconf.Load(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("storage: head bucket %s: %w", cfg.Bucket, err)
	}
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads the attachment. Non-seekable readers are buffered because the
// SDK signs the payload.
func (s *S3) Put(ctx context.Context, name string, r io.Reader, contentType string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("storage: read upload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("storage: put %s: %w", name, err)
	}
	return nil
}

// Get opens the object for reading.
func (s *S3) Get(ctx context.Context, name string) (*Object, error) {
	if err := ValidateName(name); err != nil {
		return nil, apperr.ErrNotFound
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("storage: get %s: %w", name, err)
	}
	obj := &Object{
		Body:        out.Body,
		ContentType: aws.ToString(out.ContentType),
		ETag:        aws.ToString(out.ETag),
		Size:        aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		obj.ModTime = *out.LastModified
	}
	return obj, nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *S3) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}); err != nil && !isNotFound(err) {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
