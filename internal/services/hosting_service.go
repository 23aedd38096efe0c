package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/logging"
	"github.com/roomify/backend/internal/config"
	"github.com/roomify/backend/pkg/validation"
)

// HostingService uploads source and rendered images to durable blob
// storage and hands back a stable URL. It is a pure upload primitive:
// it never touches project records.
type HostingService struct {
	client     *s3.Client
	cfg        *config.Config
	httpClient *http.Client

	// Bucket provisioning is lazy and must happen at most once even
	// with concurrent first uploads.
	mu          sync.Mutex
	provisioned bool
}

func NewHostingService(cfg *config.Config) (*HostingService, error) {
	client, err := buildClient(cfg.HostingS3Endpoint, cfg.HostingS3Region, cfg.HostingS3AccessKeyID, cfg.HostingS3SecretAccessKey, cfg.HostingS3UsePathStyle)
	if err != nil {
		return nil, err
	}
	return &HostingService{
		client:     client,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func buildClient(endpoint, region, key, secret string, pathStyle bool) (*s3.Client, error) {
	resolver := awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
		func(service, rgn string, options ...interface{}) (aws.Endpoint, error) {
			if endpoint != "" {
				return aws.Endpoint{URL: endpoint, SigningRegion: region}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}))
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		resolver,
		awsconfig.WithLogger(logging.NewStandardLogger(nil)),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})
	return client, nil
}

// ensureConfig provisions the hosting bucket on first use. Create-if-absent,
// memoized so concurrent callers cannot double-provision.
func (s *HostingService) ensureConfig(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provisioned {
		return nil
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.cfg.HostingBucket})
	if err != nil {
		_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &s.cfg.HostingBucket})
		if err != nil && !strings.Contains(err.Error(), "BucketAlreadyOwnedByYou") {
			return fmt.Errorf("failed to provision hosting bucket: %w", err)
		}
	}

	s.provisioned = true
	return nil
}

// Upload accepts a data: URI or an already-hosted URL plus a project id
// and a label ("source" or "rendered") and returns a durable URL.
func (s *HostingService) Upload(ctx context.Context, urlOrDataURL, projectID, label string) (string, error) {
	if projectID == "" {
		return "", fmt.Errorf("project id is required")
	}

	data, mimeType, err := s.resolveBytes(ctx, urlOrDataURL)
	if err != nil {
		return "", err
	}

	if !validation.ValidImageType("", mimeType) {
		return "", fmt.Errorf("unsupported image type: %s", mimeType)
	}
	if !validation.ValidImageSize(int64(len(data)), s.cfg.UploadMaxImageSize) {
		return "", fmt.Errorf("image too large: %d bytes (max: %d)", len(data), s.cfg.UploadMaxImageSize)
	}

	if err := s.ensureConfig(ctx); err != nil {
		return "", err
	}

	key := fmt.Sprintf("projects/%s/%s%s", projectID, label, validation.ExtensionForMime(mimeType))

	uploader := manager.NewUploader(s.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &s.cfg.HostingBucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &mimeType,
		ACL:         s3types.ObjectCannedACLPublicRead,
	}, func(u *manager.Uploader) { u.PartSize = 10 * 1024 * 1024 })
	if err != nil {
		return "", fmt.Errorf("failed to upload %s image: %w", label, err)
	}

	return s.hostedURL(key), nil
}

// resolveBytes turns either input form into raw bytes plus a MIME type
func (s *HostingService) resolveBytes(ctx context.Context, urlOrDataURL string) ([]byte, string, error) {
	if validation.IsDataURL(urlOrDataURL) {
		payload, mimeType, err := validation.ParseDataURL(urlOrDataURL)
		if err != nil {
			return nil, "", err
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode image payload: %w", err)
		}
		return data, mimeType, nil
	}

	if !validation.IsHostedURL(urlOrDataURL) {
		return nil, "", fmt.Errorf("unsupported image source")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlOrDataURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to fetch image: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.UploadMaxImageSize+1))
	if err != nil {
		return nil, "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

func (s *HostingService) hostedURL(key string) string {
	escaped := escapeKey(key)
	if s.cfg.HostingPublicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.HostingPublicURL, "/"), escaped)
	}
	if s.cfg.HostingS3Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.HostingS3Endpoint, "/"), s.cfg.HostingBucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.HostingBucket, s.cfg.HostingS3Region, escaped)
}

// escapeKey escapes each path segment of an object key while keeping
// the "/" separators intact.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
