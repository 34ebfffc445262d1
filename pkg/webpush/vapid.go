package webpush

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateVAPIDKeys creates a fresh P-256 key pair encoded the way push
// services expect: base64url scalar and base64url uncompressed point.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}

	privateKey = base64.RawURLEncoding.EncodeToString(key.Bytes())
	publicKey = base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
	return privateKey, publicKey, nil
}

// parseSigningKey turns the base64url scalar into an ECDSA key for ES256.
func parseSigningKey(privB64 string) (*ecdsa.PrivateKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(privB64)
	if err != nil {
		return nil, fmt.Errorf("invalid VAPID private key encoding: %w", err)
	}

	key, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid VAPID private key: %w", err)
	}

	pub := key.PublicKey().Bytes() // 0x04 || X || Y
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(pub[1:33]),
			Y:     new(big.Int).SetBytes(pub[33:65]),
		},
		D: new(big.Int).SetBytes(raw),
	}, nil
}

// authorizationHeader builds the RFC 8292 header for one endpoint. The
// JWT audience is the push service origin, not the full endpoint.
func (c *Client) authorizationHeader(endpoint string, now time.Time) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}

	claims := jwt.MapClaims{
		"aud": u.Scheme + "://" + u.Host,
		"exp": now.Add(12 * time.Hour).Unix(),
		"sub": c.cfg.Subject,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign VAPID token: %w", err)
	}

	return fmt.Sprintf("vapid t=%s, k=%s", signed, c.cfg.PublicKey), nil
}
