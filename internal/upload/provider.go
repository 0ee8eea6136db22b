// Package upload wraps the S3-compatible object store behind the two
// operations the engine consumes: a time-boxed signed upload authorization,
// and binary in / stable URL out. File bytes are never inspected.
package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the object store connection settings
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
	SignedExpiry  time.Duration
}

// Auth is a time-boxed authorization for a direct client upload
type Auth struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Provider implements the upload collaborator against a MinIO/S3 bucket
type Provider struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	signedExpiry  time.Duration
}

// New connects to the object store and verifies the bucket exists
func New(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	expiry := cfg.SignedExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &Provider{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		signedExpiry:  expiry,
	}, nil
}

// SignUpload exchanges the server-side credentials for a presigned PUT
// authorization the client can use directly against the store
func (p *Provider) SignUpload(ctx context.Context, objectName string) (*Auth, error) {
	signed, err := p.client.PresignedPutObject(ctx, p.bucket, objectName, p.signedExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload for %q: %w", objectName, err)
	}
	return &Auth{
		URL:       signed.String(),
		Method:    "PUT",
		ExpiresAt: time.Now().Add(p.signedExpiry),
	}, nil
}

// Store writes the binary content and returns its stable public URL
func (p *Provider) Store(ctx context.Context, objectName, contentType string, r io.Reader, size int64) (string, error) {
	_, err := p.client.PutObject(ctx, p.bucket, objectName, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("store object %q: %w", objectName, err)
	}
	return p.PublicURL(objectName), nil
}

// PublicURL returns the stable URL an object is served from
func (p *Provider) PublicURL(objectName string) string {
	if p.publicBaseURL != "" {
		return p.publicBaseURL + "/" + url.PathEscape(objectName)
	}
	scheme := "http"
	if p.client.EndpointURL().Scheme == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, p.client.EndpointURL().Host, p.bucket, url.PathEscape(objectName))
}
