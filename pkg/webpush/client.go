// Package webpush sends Web Push messages with aes128gcm content
// encryption (RFC 8291) and VAPID authorization (RFC 8292).
package webpush

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config holds the VAPID identity used for every send.
type Config struct {
	// Subject is a mailto: or https: URL identifying the sender.
	Subject string
	// PublicKey is the base64url uncompressed P-256 public key.
	PublicKey string
	// PrivateKey is the base64url 32-byte P-256 scalar.
	PrivateKey string
}

// Subscription is one browser push endpoint with its encryption keys.
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Options are per-message delivery hints.
type Options struct {
	TTL     int
	Urgency string
	Topic   string
}

// StatusError is returned when the push service answers with a non-2xx
// status. Callers classify outcomes by StatusCode.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("push service returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	cfg        Config
	signingKey *ecdsa.PrivateKey
	httpClient *http.Client
}

// NewClient validates the config and parses the VAPID signing key once.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Subject == "" {
		return nil, errors.New("webpush: subject is required")
	}
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, errors.New("webpush: VAPID key pair is required")
	}

	signingKey, err := parseSigningKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("webpush: %w", err)
	}

	return &Client{
		cfg:        cfg,
		signingKey: signingKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Send encrypts message for the subscription and posts it to the endpoint.
// A non-2xx response comes back as *StatusError.
func (c *Client) Send(ctx context.Context, sub Subscription, message []byte, opts Options) error {
	body, err := encrypt(message, sub.P256dh, sub.Auth)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	authorization, err := c.authorizationHeader(sub.Endpoint, time.Now())
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", authorization)
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("TTL", strconv.Itoa(opts.TTL))
	if opts.Urgency != "" {
		req.Header.Set("Urgency", opts.Urgency)
	}
	if opts.Topic != "" {
		req.Header.Set("Topic", opts.Topic)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(detail)),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
