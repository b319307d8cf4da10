package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/manualrebuild/internal/config"
)

const htmlContentType = "text/html; charset=utf-8"

// S3Client publishes reconstructed pages to S3 or an S3-compatible store (R2).
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucketName string
	prefix     string
}

// NewS3Client creates a new S3 client
func NewS3Client(ctx context.Context, sc config.StorageConfig) (*S3Client, error) {
	if sc.Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET not set")
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(sc.Region)}
	if sc.AccessKeyID != "" && sc.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sc.AccessKeyID, sc.SecretAccessKey, ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		bucketName: sc.Bucket,
		prefix:     sc.Prefix,
	}, nil
}

// Ping checks that the bucket is reachable with the configured credentials.
func (s *S3Client) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	return err
}

// UploadHTML stores one page of HTML under key and returns its location.
func (s *S3Client) UploadHTML(ctx context.Context, key, html, pageRange string) (string, error) {
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        strings.NewReader(html),
		ContentType: aws.String(htmlContentType),
		Metadata:    map[string]string{"page-range": pageRange},
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("UploadHTML: upload failed")
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("key", key).Str("location", out.Location).Int("size", len(html)).Msg("uploaded page html")
	return out.Location, nil
}

// PublishPage uploads html under key, or under the next free versioned key
// for the page range when key is empty.
func (s *S3Client) PublishPage(ctx context.Context, key, pageRange, html string) (string, string, error) {
	if key == "" {
		base := PageBaseKey(s.prefix, pageRange)
		n, err := s.ListNextVersion(ctx, base)
		if err != nil {
			return "", "", err
		}
		key = VersionedKey(base, n)
	}
	loc, err := s.UploadHTML(ctx, key, html, pageRange)
	return key, loc, err
}

// ListNextVersion returns the next available integer suffix for a base key using pattern baseKey_v{N}.html
func (s *S3Client) ListNextVersion(ctx context.Context, baseKey string) (int, error) {
	if baseKey == "" {
		return 1, nil
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(baseKey + "_v"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 1, fmt.Errorf("list versions failed: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return nextVersion(baseKey, keys), nil
}

func nextVersion(baseKey string, keys []string) int {
	prefix := baseKey + "_v"
	maxVersion := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		verStr := strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".html")
		if n, err := strconv.Atoi(verStr); err == nil && n > maxVersion {
			maxVersion = n
		}
	}
	return maxVersion + 1
}

// PageBaseKey builds the unversioned key for a page range, e.g. manuals/page-15-17.
func PageBaseKey(prefix, pageRange string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(pageRange) {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "unknown"
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + "page-" + name
}

// VersionedKey appends the version suffix and extension to a base key.
func VersionedKey(baseKey string, version int) string {
	return fmt.Sprintf("%s_v%d.html", baseKey, version)
}
