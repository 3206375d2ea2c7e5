package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bilgisen/agcofeed/internal/config"
)

// ObjectPutter is the subset of the S3 client used for publishing.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Publisher uploads the rendered feed to a Cloudflare R2 bucket
type R2Publisher struct {
	client ObjectPutter
	bucket string
	key    string
}

func NewR2Publisher(ctx context.Context, cfg *config.Config) (*R2Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	endpoint := cfg.R2BaseEndpoint()
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return NewR2PublisherWithClient(client, cfg.R2Bucket, cfg.R2ObjectKey), nil
}

func NewR2PublisherWithClient(client ObjectPutter, bucket, key string) *R2Publisher {
	return &R2Publisher{client: client, bucket: bucket, key: key}
}

// Publish writes data to the configured object key
func (p *R2Publisher) Publish(ctx context.Context, data []byte, contentType string) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(p.key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=300"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload feed to r2://%s/%s: %w", p.bucket, p.key, err)
	}
	return nil
}

// Location describes where the feed is published
func (p *R2Publisher) Location() string {
	return fmt.Sprintf("r2://%s/%s", p.bucket, p.key)
}
