package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes the bucket final artifacts are delivered to.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // S3-compatible endpoint override (LocalStack, MinIO)
	AccessKeyID     string
	SecretAccessKey string
}

// S3Storage delivers final artifacts to an S3 bucket. Temp files and work
// directories still live on local disk through the embedded LocalStorage.
type S3Storage struct {
	*LocalStorage
	client *s3.Client
	bucket string
	region string
}

// NewS3Storage builds the S3 client from cfg and wraps a LocalStorage rooted
// at tempDir. Static credentials take precedence over the default AWS
// credential chain when both are present.
func NewS3Storage(tempDir string, cfg S3Config) (*S3Storage, error) {
	local, err := NewLocalStorage(tempDir)
	if err != nil {
		return nil, err
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		provider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(provider))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Custom endpoints rarely support virtual-hosted bucket addressing.
			o.UsePathStyle = true
		})
	}

	return &S3Storage{
		LocalStorage: local,
		client:       s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:       cfg.Bucket,
		region:       cfg.Region,
	}, nil
}

// UploadToS3 puts the object under key and returns its public URL.
func (s *S3Storage) UploadToS3(ctx context.Context, key string, data io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}
	return s.objectURL(key), nil
}

func (s *S3Storage) objectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
