// Package s3store implements upload.Store on S3-compatible object storage (AWS S3, MinIO).
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yriy-kuskov/cakereact-core/records/config"
)

const defaultRegion = "us-east-1"

// ErrEmptyBucket is returned when a Store is configured without a bucket.
var ErrEmptyBucket = errors.New("s3 bucket required")

// Config holds explicit construction parameters.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; enables a custom endpoint (e.g. MinIO)
	PublicBaseURL   string // optional; base of the URLs returned by Upload
	AccessKeyID     string // optional, falls back to the default credentials chain
	SecretAccessKey string
	PathStyle       bool
}

// Store implements upload.Store on one bucket. Keys map to object keys directly.
type Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// New creates a Store from Config. optFns are applied to the S3 client options last.
func New(ctx context.Context, cfg Config, optFns ...func(*s3.Options)) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, ErrEmptyBucket
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)...)

	return &Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: publicBase(cfg, region),
	}, nil
}

// FromConfig creates a Store from the blob section of the records configuration.
func FromConfig(ctx context.Context, blob config.Blob, optFns ...func(*s3.Options)) (*Store, error) {
	return New(ctx, Config{
		Region:        blob.Region,
		Bucket:        blob.Bucket,
		Endpoint:      blob.Endpoint,
		PublicBaseURL: blob.PublicBaseURL,
		PathStyle:     blob.PathStyle,
	}, optFns...)
}

// Upload stores body under key and returns its public URL.
func (s *Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	// the SDK needs a seekable body to sign the payload
	if _, ok := body.(io.ReadSeeker); !ok {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", err
		}
		body = bytes.NewReader(raw)
	}

	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: body}
	if contentType != "" {
		input.ContentType = &contentType
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", err
	}

	return s.PublicURL(key), nil
}

// Delete removes the object stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	return err
}

// PublicURL returns the URL under which key is served.
func (s *Store) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return s.publicBaseURL + "/" + strings.Join(segments, "/")
}

// KeyFromURL strips query and fragment from publicURL and maps it back to an object key.
func (s *Store) KeyFromURL(publicURL string) (string, bool) {
	clean, _, _ := strings.Cut(publicURL, "?")
	clean, _, _ = strings.Cut(clean, "#")

	rest, ok := strings.CutPrefix(clean, s.publicBaseURL+"/")
	if !ok {
		_, rest, ok = strings.Cut(clean, "/"+s.bucket+"/")
	}

	if !ok || rest == "" {
		return "", false
	}

	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}

	return key, true
}

func publicBase(cfg Config, region string) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
}
