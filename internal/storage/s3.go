package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/domain"
)

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store keeps images in an S3 (or S3-compatible) bucket.
type S3Store struct {
	client  ObjectAPI
	bucket  string
	baseURL string
}

func NewS3Store(client ObjectAPI, bucket, baseURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, baseURL: baseURL}
}

func newS3Client(cfg config.StorageConfig) *s3.Client {
	opts := s3.Options{
		Region: cfg.Region,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "blog-service",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		}))
	}
	return s3.New(opts)
}

func (s *S3Store) Put(ctx context.Context, obj Object) (domain.Image, error) {
	key, err := NewPublicID(obj.Folder, obj.ContentType)
	if err != nil {
		return domain.Image{}, err
	}

	// request signing needs a seekable body
	body, ok := obj.Body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(obj.Body)
		if err != nil {
			return domain.Image{}, fmt.Errorf("failed to read image: %w", err)
		}
		body = bytes.NewReader(data)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(obj.ContentType),
	}
	if obj.Size > 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return domain.Image{}, fmt.Errorf("s3 upload failed: %w", err)
	}

	return domain.Image{URL: s.baseURL + "/" + key, PublicID: key}, nil
}

// Delete removes the object. S3 reports success for keys that do not exist.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	if !ValidPublicID(publicID) {
		return ErrInvalidPublicID
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}
