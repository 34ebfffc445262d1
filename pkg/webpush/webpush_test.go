package webpush

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	priv, pub, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	client, err := NewClient(Config{
		Subject:    "mailto:ops@example.com",
		PublicKey:  pub,
		PrivateKey: priv,
	})
	require.NoError(t, err)
	return client
}

func newTestSubscription(t *testing.T, endpoint string) (Subscription, *ecdh.PrivateKey, []byte) {
	t.Helper()

	subPriv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	authSecret := make([]byte, 16)
	_, err = rand.Read(authSecret)
	require.NoError(t, err)

	sub := Subscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(subPriv.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(authSecret),
	}
	return sub, subPriv, authSecret
}

// decryptBody reverses the aes128gcm encoding using the subscriber's keys.
func decryptBody(t *testing.T, subPriv *ecdh.PrivateKey, authSecret, body []byte) []byte {
	t.Helper()

	require.GreaterOrEqual(t, len(body), 16+4+1+65)
	salt := body[:16]
	require.Equal(t, uint32(4096), binary.BigEndian.Uint32(body[16:20]))
	idlen := int(body[20])
	require.Equal(t, 65, idlen)
	asPublicRaw := body[21 : 21+idlen]
	ciphertext := body[21+idlen:]

	asPub, err := ecdh.P256().NewPublicKey(asPublicRaw)
	require.NoError(t, err)
	sharedSecret, err := subPriv.ECDH(asPub)
	require.NoError(t, err)

	subPubRaw := subPriv.PublicKey().Bytes()
	info := make([]byte, 0, 14+len(subPubRaw)+len(asPublicRaw))
	info = append(info, "WebPush: info"...)
	info = append(info, 0x00)
	info = append(info, subPubRaw...)
	info = append(info, asPublicRaw...)

	ikm := make([]byte, 32)
	_, err = io.ReadFull(hkdf.New(sha256.New, sharedSecret, authSecret, info), ikm)
	require.NoError(t, err)

	cek := make([]byte, 16)
	_, err = io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: aes128gcm\x00")), cek)
	require.NoError(t, err)

	nonce := make([]byte, 12)
	_, err = io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: nonce\x00")), nonce)
	require.NoError(t, err)

	block, err := aes.NewCipher(cek)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	record, err := gcm.Open(nil, nonce, ciphertext, nil)
	require.NoError(t, err)

	require.NotEmpty(t, record)
	require.Equal(t, byte(0x02), record[len(record)-1])
	return record[:len(record)-1]
}

func TestEncryptRoundTrip(t *testing.T) {
	sub, subPriv, authSecret := newTestSubscription(t, "https://push.example.com/send/abc")
	message := []byte(`{"title":"Milestone broken","url":"/projects/42"}`)

	body, err := encrypt(message, sub.P256dh, sub.Auth)
	require.NoError(t, err)

	// Header (86 bytes) plus message, delimiter and GCM tag.
	assert.Equal(t, 86+len(message)+1+16, len(body))

	plaintext := decryptBody(t, subPriv, authSecret, body)
	assert.Equal(t, message, plaintext)
}

func TestEncryptRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name   string
		p256dh string
		auth   string
	}{
		{"garbage p256dh", "!!!not-base64!!!", base64.RawURLEncoding.EncodeToString(make([]byte, 16))},
		{"short p256dh", base64.RawURLEncoding.EncodeToString(make([]byte, 10)), base64.RawURLEncoding.EncodeToString(make([]byte, 16))},
		{"garbage auth", validP256dh(t), "!!!not-base64!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encrypt([]byte("hello"), tt.p256dh, tt.auth)
			assert.Error(t, err)
		})
	}
}

func validP256dh(t *testing.T) string {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
}

func TestSendDeliversEncryptedMessage(t *testing.T) {
	client := newTestClient(t)
	message := []byte(`{"title":"New crew request","url":"/crew"}`)

	var (
		gotAuth     string
		gotEncoding string
		gotTTL      string
		gotUrgency  string
		gotBody     []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotEncoding = r.Header.Get("Content-Encoding")
		gotTTL = r.Header.Get("TTL")
		gotUrgency = r.Header.Get("Urgency")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sub, subPriv, authSecret := newTestSubscription(t, server.URL+"/send/abc")

	err := client.WithHTTPClient(server.Client()).Send(context.Background(), sub, message, Options{TTL: 300, Urgency: "normal"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotAuth, "vapid t="), "authorization header: %q", gotAuth)
	assert.Contains(t, gotAuth, ", k="+client.cfg.PublicKey)
	assert.Equal(t, "aes128gcm", gotEncoding)
	assert.Equal(t, "300", gotTTL)
	assert.Equal(t, "normal", gotUrgency)

	plaintext := decryptBody(t, subPriv, authSecret, gotBody)
	assert.Equal(t, message, plaintext)
}

func TestSendReturnsStatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"gone subscription", http.StatusGone, "subscription expired"},
		{"unknown endpoint", http.StatusNotFound, ""},
		{"key mismatch", http.StatusForbidden, "vapid key mismatch"},
		{"rate limited", http.StatusTooManyRequests, "slow down"},
		{"server error", http.StatusInternalServerError, "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t)
			sub, _, _ := newTestSubscription(t, server.URL)

			err := client.Send(context.Background(), sub, []byte("hi"), Options{TTL: 60})
			require.Error(t, err)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.body, statusErr.Body)
		})
	}
}

func TestSendNetworkErrorIsNotStatusError(t *testing.T) {
	client := newTestClient(t)
	sub, _, _ := newTestSubscription(t, "http://127.0.0.1:1/push")

	err := client.Send(context.Background(), sub, []byte("hi"), Options{TTL: 60})
	require.Error(t, err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestAuthorizationHeaderClaims(t *testing.T) {
	client := newTestClient(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	header, err := client.authorizationHeader("https://fcm.googleapis.com/fcm/send/xyz?auth=1", now)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(header, "vapid t="))
	rest := strings.TrimPrefix(header, "vapid t=")
	parts := strings.SplitN(rest, ", k=", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, client.cfg.PublicKey, parts[1])

	token, err := jwt.Parse(parts[0], func(token *jwt.Token) (interface{}, error) {
		return client.signingKey.Public(), nil
	}, jwt.WithValidMethods([]string{"ES256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "https://fcm.googleapis.com", claims["aud"])
	assert.Equal(t, "mailto:ops@example.com", claims["sub"])
	assert.Equal(t, float64(now.Add(12*time.Hour).Unix()), claims["exp"])
}

func TestGenerateVAPIDKeys(t *testing.T) {
	priv, pub, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	privRaw, err := base64.RawURLEncoding.DecodeString(priv)
	require.NoError(t, err)
	assert.Len(t, privRaw, 32)

	pubRaw, err := base64.RawURLEncoding.DecodeString(pub)
	require.NoError(t, err)
	require.Len(t, pubRaw, 65)
	assert.Equal(t, byte(0x04), pubRaw[0])
}

func TestNewClientValidation(t *testing.T) {
	priv, pub, err := GenerateVAPIDKeys()
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing subject", Config{PublicKey: pub, PrivateKey: priv}},
		{"missing keys", Config{Subject: "mailto:ops@example.com"}},
		{"bad private key", Config{Subject: "mailto:ops@example.com", PublicKey: pub, PrivateKey: "not-a-key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			assert.Error(t, err)
		})
	}
}
