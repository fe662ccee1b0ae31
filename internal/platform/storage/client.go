package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
)

// Client stores and removes image objects in a single Cloud Storage bucket.
type Client struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
	cacheControl  string
}

// ClientOption customises client behaviour.
type ClientOption func(*Client)

// WithPublicBaseURL overrides the host used when composing public object URLs.
func WithPublicBaseURL(base string) ClientOption {
	return func(c *Client) {
		if trimmed := strings.TrimRight(strings.TrimSpace(base), "/"); trimmed != "" {
			c.publicBaseURL = trimmed
		}
	}
}

// WithCacheControl sets the Cache-Control metadata written with each object.
func WithCacheControl(value string) ClientOption {
	return func(c *Client) {
		c.cacheControl = strings.TrimSpace(value)
	}
}

// NewClient wraps a Cloud Storage client bound to bucket.
func NewClient(client *gcs.Client, bucket string, opts ...ClientOption) (*Client, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	c := &Client{
		client:        client,
		bucket:        bucket,
		publicBaseURL: "https://storage.googleapis.com",
		cacheControl:  "public, max-age=31536000, immutable",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Put streams body into the object named key. The write is only committed
// when Close succeeds.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errInvalidObject
	}
	w := c.client.Bucket(c.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = c.cacheControl
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: commit %s: %w", key, err)
	}
	return nil
}

// Delete removes the object. A missing object counts as deleted.
func (c *Client) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errInvalidObject
	}
	err := c.client.Bucket(c.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the URL under which key is publicly readable.
func (c *Client) PublicURL(key string) string {
	return PublicURL(c.publicBaseURL, c.bucket, key)
}

// PublicURL joins base, bucket and key, escaping each key segment.
func PublicURL(base, bucket, key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
