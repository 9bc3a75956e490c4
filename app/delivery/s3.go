package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lysyi3m/rss-digest/app/document"
)

// S3Config selects the bucket and key prefix. Region and Profile fall back
// to the standard AWS configuration chain when empty.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Profile      string
	UsePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads artifacts to an S3 (or S3 compatible) bucket.
type S3Sink struct {
	client objectPutter
	bucket string
	prefix string
}

func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Sink(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Sink(client objectPutter, bucket, prefix string) *S3Sink {
	if prefix == "" {
		prefix = DefaultFolder
	}
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Sink) key(artifact *document.Artifact) string {
	return path.Join(s.prefix, artifact.FileName())
}

func (s *S3Sink) Deliver(ctx context.Context, artifact *document.Artifact) error {
	body, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer body.Close()

	key := s.key(artifact)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if artifact.ContentType != "" {
		in.ContentType = aws.String(artifact.ContentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", s.bucket, key, err)
	}

	slog.Info("Artifact delivered", "sink", KindS3, "bucket", s.bucket, "key", key)

	return nil
}
