package aws

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client creates a new S3 client from AWS config. Path-style addressing
// is forced when a custom endpoint is configured.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != nil {
			o.UsePathStyle = true
		}
	})
}

var unsafeObjectChars = regexp.MustCompile(`[^a-zA-Z0-9.]`)

// SanitizeObjectName replaces every character outside [a-zA-Z0-9.] with '_'.
func SanitizeObjectName(name string) string {
	return unsafeObjectChars.ReplaceAllString(name, "_")
}

// ImageStore uploads catalog images to a bucket and builds their public URLs.
type ImageStore struct {
	uploader  *manager.Uploader
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	endpoint  string
	cdnDomain string
}

func NewImageStore(client *s3.Client, bucket, prefix, endpoint, cdnDomain string) *ImageStore {
	return &ImageStore{
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		prefix:    prefix,
		endpoint:  endpoint,
		cdnDomain: cdnDomain,
	}
}

// ObjectKey returns `<prefix><sanitized name>`.
func (s *ImageStore) ObjectKey(name string) string {
	return s.prefix + SanitizeObjectName(name)
}

// Upload streams body to `<prefix><sanitized name>` and returns the public URL.
func (s *ImageStore) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	key := s.ObjectKey(name)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(s.bucket),
		Key:         sdkaws.String(key),
		Body:        body,
		ContentType: sdkaws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// PresignPut returns a presigned PUT URL, the object key and the public URL.
func (s *ImageStore) PresignPut(ctx context.Context, name, contentType string, expires time.Duration) (string, string, string, error) {
	key := s.ObjectKey(name)
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(s.bucket),
		Key:         sdkaws.String(key),
		ContentType: sdkaws.String(contentType),
	}, func(o *s3.PresignOptions) {
		o.Expires = expires
	})
	if err != nil {
		return "", "", "", fmt.Errorf("failed to presign put object: %w", err)
	}
	return req.URL, key, s.PublicURL(key), nil
}

func (s *ImageStore) PublicURL(key string) string {
	switch {
	case s.cdnDomain != "":
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(s.cdnDomain, "/"), key)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
}
