package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	StorageClass    string
}

type S3Store struct {
	bucket       string
	publicBase   string
	storageClass *types.StorageClass
	client       *s3.Client
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	publicBase := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBase == "" {
		publicBase = strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			strings.TrimSpace(cfg.AccessKeyID),
			strings.TrimSpace(cfg.SecretAccessKey),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	store := &S3Store{bucket: bucket, publicBase: publicBase, client: client}
	if v := strings.ToUpper(strings.TrimSpace(cfg.StorageClass)); v != "" {
		sc := types.StorageClass(v)
		store.storageClass = &sc
	}
	return store, nil
}

func (s *S3Store) PublicURL(key string) string {
	return s.publicBase + "/" + cleanKey(key)
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	key = cleanKey(key)
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		ct = "application/octet-stream"
	}
	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(ct),
		CacheControl: aws.String(defaultCacheControl),
	}
	if s.storageClass != nil {
		input.StorageClass = *s.storageClass
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *S3Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(cleanKey(prefix)),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Contents {
			if item.Key != nil {
				out = append(out, *item.Key)
			}
		}
	}
	return out, nil
}

func (s *S3Store) deleteKey(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleanKey(key)),
	})
	return err
}

func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.listKeys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.deleteKey(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// KeyFromURL maps a public or path-style URL back to an object key.
func (s *S3Store) KeyFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.HasPrefix(raw, s.publicBase+"/") {
		return cleanKey(raw[len(s.publicBase):]), true
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	parts := strings.Split(strings.TrimLeft(parsed.Path, "/"), "/")
	if len(parts) >= 2 && parts[0] == s.bucket {
		return strings.Join(parts[1:], "/"), true
	}
	return "", false
}

func (s *S3Store) DeleteURL(ctx context.Context, raw string) error {
	key, ok := s.KeyFromURL(raw)
	if !ok {
		return ErrUnmanagedURL
	}
	return s.deleteKey(ctx, key)
}

var _ Blobs = (*S3Store)(nil)
