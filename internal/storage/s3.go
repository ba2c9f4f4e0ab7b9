// Package storage provides an S3-compatible blob store for listing images.
// It wraps the AWS SDK v2 and is configured for path-style access so it
// works against MinIO and other S3-compatible backends.
package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadTarget is a presigned single-use PUT destination for a client upload.
type UploadTarget struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BlobStore is the boundary the services use for image bytes. The database
// only ever stores opaque keys.
type BlobStore interface {
	PresignUpload(ctx context.Context, filename, contentType string) (*UploadTarget, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

const presignTTL = 15 * time.Minute

// Client wraps an S3 client for media operations on a single bucket.
type Client struct {
	s3        *s3.Client
	presigner *s3.PresignClient
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for public files
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to start
// without storage.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}

	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// PresignUpload reserves a fresh object key and returns a presigned PUT URL
// the client can upload to directly.
func (c *Client) PresignUpload(ctx context.Context, filename, contentType string) (*UploadTarget, error) {
	ext := filepath.Ext(filename)
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}

	key := fmt.Sprintf("uploads/%s/%s%s", time.Now().Format("2006/01"), uuid.New().String(), ext)

	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return nil, fmt.Errorf("s3 presign %s/%s: %w", c.bucket, key, err)
	}

	return &UploadTarget{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: c.PublicURL(key),
		ExpiresAt: time.Now().Add(presignTTL),
	}, nil
}

// Delete removes an object from the bucket.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// PublicURL returns the serving URL for an object. Uses the configured
// public URL if set, otherwise builds a path-style URL.
func (c *Client) PublicURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, key)
}
