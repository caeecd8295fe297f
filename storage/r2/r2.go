package r2

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jrsteele09/go-sponsor-gate/internal/config"
	"github.com/jrsteele09/go-sponsor-gate/storage"
)

var _ storage.Backend = (*Bucket)(nil)

// Bucket presigns GET requests against an S3-compatible bucket (Cloudflare R2).
// Presigning is local; no request is made until the URL is fetched.
type Bucket struct {
	name    string
	presign *s3.PresignClient
}

func New(cfg config.StorageConfig) (*Bucket, error) {
	if cfg.GetBucketName() == "" {
		return nil, errors.New("[r2 New] bucket name is required")
	}
	if cfg.GetBucketEndpoint() == "" {
		return nil, errors.New("[r2 New] bucket endpoint is required")
	}

	awsCfg := aws.Config{
		Region: "auto",
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.GetBucketAccessKeyID(), cfg.GetBucketSecretAccessKey(), ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.GetBucketEndpoint())
		o.UsePathStyle = true
	})
	return &Bucket{
		name:    cfg.GetBucketName(),
		presign: s3.NewPresignClient(client),
	}, nil
}

func (b *Bucket) SignedURL(ctx context.Context, contentID, filename string, ttl time.Duration) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(storage.Key(contentID, filename)),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("[r2 SignedURL] %w", err)
	}
	return req.URL, nil
}
