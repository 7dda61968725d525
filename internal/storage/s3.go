package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UseSSL          bool
}

// S3Backend stores objects in an S3 compatible service (AWS, MinIO, R2).
type S3Backend struct {
	client *minio.Client
	logger *slog.Logger
}

// parseEndpoint accepts host:port or a full URL; a scheme overrides useSSL.
func parseEndpoint(endpoint string, defaultUseSSL bool) (string, bool) {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return parsed.Host, parsed.Scheme == "https"
	}
	return endpoint, defaultUseSSL
}

func NewS3Backend(cfg S3Config, logger *slog.Logger) (*S3Backend, error) {
	endpoint, useSSL := parseEndpoint(cfg.Endpoint, cfg.UseSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &S3Backend{client: client, logger: logger.With("component", "s3_storage")}, nil
}

// EnsureBuckets creates any missing bucket.
func (s *S3Backend) EnsureBuckets(ctx context.Context, region string, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		s.logger.Info("creating bucket", "bucket", bucket)
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (s *S3Backend) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	_, err := s.client.StatObject(ctx, bucket, path, minio.StatObjectOptions{})
	if err == nil {
		return fmt.Errorf("%s/%s: %w", bucket, path, ErrObjectExists)
	}
	if code := minio.ToErrorResponse(err).Code; code != "NoSuchKey" && code != "NotFound" {
		return fmt.Errorf("failed to stat %s/%s: %w", bucket, path, err)
	}

	_, err = s.client.PutObject(ctx, bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, path, err)
	}
	return nil
}

func (s *S3Backend) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", bucket, path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, path, err)
	}
	return data, nil
}

func (s *S3Backend) Remove(ctx context.Context, bucket string, paths ...string) error {
	for _, path := range paths {
		if err := s.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s/%s: %w", bucket, path, err)
		}
	}
	return nil
}

// BucketPublic reports whether the bucket policy grants anonymous reads.
func (s *S3Backend) BucketPublic(ctx context.Context, bucket string) (bool, error) {
	policy, err := s.client.GetBucketPolicy(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("failed to read policy for %s: %w", bucket, err)
	}
	return policyAllowsAnonymousRead(policy), nil
}

func (s *S3Backend) PublicURL(bucket, path string) string {
	endpoint := s.client.EndpointURL()
	if endpoint == nil {
		return ""
	}
	return strings.TrimRight(endpoint.String(), "/") + "/" + bucket + "/" + path
}

func (s *S3Backend) SignedURL(ctx context.Context, bucket, path string, expirySeconds int) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, bucket, path, time.Duration(expirySeconds)*time.Second, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", bucket, path, err)
	}
	return signed.String(), nil
}

type bucketPolicy struct {
	Statement []struct {
		Effect    string          `json:"Effect"`
		Principal json.RawMessage `json:"Principal"`
		Action    json.RawMessage `json:"Action"`
	} `json:"Statement"`
}

func policyAllowsAnonymousRead(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	var policy bucketPolicy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		return false
	}
	for _, stmt := range policy.Statement {
		if !strings.EqualFold(stmt.Effect, "Allow") {
			continue
		}
		if !principalIsAnyone(stmt.Principal) {
			continue
		}
		for _, action := range stringOrList(stmt.Action) {
			if action == "s3:GetObject" || action == "s3:*" || action == "*" {
				return true
			}
		}
	}
	return false
}

func principalIsAnyone(raw json.RawMessage) bool {
	for _, p := range stringOrList(raw) {
		if p == "*" {
			return true
		}
	}
	var aws struct {
		AWS json.RawMessage `json:"AWS"`
	}
	if err := json.Unmarshal(raw, &aws); err == nil && aws.AWS != nil {
		for _, p := range stringOrList(aws.AWS) {
			if p == "*" {
				return true
			}
		}
	}
	return false
}

func stringOrList(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}
