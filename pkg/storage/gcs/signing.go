package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SignedURL produces a V2 signed PUT URL for direct client uploads.
func (c *Client) SignedURL(bucket, object, contentType string, ttl time.Duration) (string, error) {
	if err := c.signingReady(); err != nil {
		return "", err
	}
	bucket = c.resolveBucket(bucket)
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if strings.TrimSpace(object) == "" {
		return "", errors.New("object is required")
	}
	if strings.TrimSpace(contentType) == "" {
		return "", errors.New("content type is required")
	}
	if ttl <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expires := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("PUT\n\n%s\n%d\n/%s/%s", contentType, expires, bucket, object)
	signature, err := c.signPayload(payload)
	if err != nil {
		return "", err
	}
	return c.buildSignedURL(bucket, object, expires, signature), nil
}

// SignedReadURL produces a V2 signed GET URL for time-limited downloads.
func (c *Client) SignedReadURL(bucket, object string, ttl time.Duration) (string, error) {
	if err := c.signingReady(); err != nil {
		return "", err
	}
	bucket = c.resolveBucket(bucket)
	if bucket == "" {
		return "", errors.New("bucket is required")
	}
	if strings.TrimSpace(object) == "" {
		return "", errors.New("object is required")
	}
	if ttl <= 0 {
		return "", errors.New("expiry must be positive")
	}

	expires := time.Now().Add(ttl).Unix()
	payload := fmt.Sprintf("GET\n\n\n%d\n/%s/%s", expires, bucket, object)
	signature, err := c.signPayload(payload)
	if err != nil {
		return "", err
	}
	return c.buildSignedURL(bucket, object, expires, signature), nil
}

// DeleteObject removes an object. Missing objects are treated as success so
// retries stay idempotent.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	bucket = c.resolveBucket(bucket)
	if bucket == "" {
		return errors.New("bucket is required")
	}
	if strings.TrimSpace(object) == "" {
		return errors.New("object is required")
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(
		"https://storage.googleapis.com/storage/v1/b/%s/o/%s",
		url.PathEscape(bucket),
		url.PathEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(body) > 0 {
		return fmt.Errorf("gcs delete failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("gcs delete failed: %s", resp.Status)
}

func (c *Client) signingReady() error {
	if c == nil || c.serviceAccount == nil || c.serviceAccount.privateKey == nil {
		return errors.New("signed urls require service account credentials")
	}
	return nil
}

func (c *Client) resolveBucket(bucket string) string {
	if bucket != "" {
		return bucket
	}
	return c.defaultBucket
}

func (c *Client) signPayload(payload string) (string, error) {
	hash := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.serviceAccount.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing url payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (c *Client) buildSignedURL(bucket, object string, expires int64, signature string) string {
	query := url.Values{}
	query.Set("GoogleAccessId", c.serviceAccount.clientEmail)
	query.Set("Expires", strconv.FormatInt(expires, 10))
	query.Set("Signature", signature)
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s?%s", bucket, object, query.Encode())
}
