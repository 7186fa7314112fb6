package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3Options conveys upload destination metadata.
type S3Options struct {
	Bucket    string
	KeyPrefix string
}

// S3Service stores uploads in Amazon S3 (or compatible APIs) as public-read objects.
type S3Service struct {
	client   *s3.Client
	uploader *manager.Uploader
	opts     S3Options
}

func NewS3Service(client *s3.Client, opts S3Options) (*S3Service, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	opts.KeyPrefix = strings.Trim(opts.KeyPrefix, "/")
	return &S3Service{
		client:   client,
		uploader: manager.NewUploader(client),
		opts:     opts,
	}, nil
}

var _ Service = (*S3Service)(nil)

func (s *S3Service) Upload(ctx context.Context, localPath string) (Object, error) {
	if strings.TrimSpace(localPath) == "" {
		return Object{}, fmt.Errorf("local path is required")
	}
	defer os.Remove(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return Object{}, fmt.Errorf("open file %s: %w", localPath, err)
	}
	defer f.Close()

	key := objectKey(s.opts.KeyPrefix, localPath)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
		Body:   f,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", localPath, err)
	}
	return Object{Key: key, URL: out.Location}, nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func objectKey(prefix, localPath string) string {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
