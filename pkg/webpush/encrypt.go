package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const recordSize = 4096

// encrypt seals message for one subscription per RFC 8291, producing the
// full aes128gcm body: header block followed by a single record.
func encrypt(message []byte, p256dh, auth string) ([]byte, error) {
	subPubRaw, err := decodeKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("invalid p256dh key: %w", err)
	}
	authSecret, err := decodeKey(auth)
	if err != nil {
		return nil, fmt.Errorf("invalid auth secret: %w", err)
	}

	curve := ecdh.P256()
	subPub, err := curve.NewPublicKey(subPubRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid p256dh key: %w", err)
	}

	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	sharedSecret, err := ephemeral.ECDH(subPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh agreement failed: %w", err)
	}

	asPublic := ephemeral.PublicKey().Bytes()

	// Mix the ECDH secret with the subscriber's auth secret.
	info := make([]byte, 0, len("WebPush: info")+1+len(subPubRaw)+len(asPublic))
	info = append(info, "WebPush: info"...)
	info = append(info, 0x00)
	info = append(info, subPubRaw...)
	info = append(info, asPublic...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, authSecret, info), ikm); err != nil {
		return nil, err
	}

	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	cek := make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: aes128gcm\x00")), cek); err != nil {
		return nil, err
	}

	nonce := make([]byte, 12)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: nonce\x00")), nonce); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// Single final record: message then the 0x02 delimiter, no padding.
	record := make([]byte, 0, len(message)+1)
	record = append(record, message...)
	record = append(record, 0x02)

	ciphertext := gcm.Seal(nil, nonce, record, nil)

	// Header block: salt, record size, key id length, ephemeral public key.
	body := make([]byte, 0, 16+4+1+len(asPublic)+len(ciphertext))
	body = append(body, salt...)
	body = binary.BigEndian.AppendUint32(body, recordSize)
	body = append(body, byte(len(asPublic)))
	body = append(body, asPublic...)
	body = append(body, ciphertext...)

	return body, nil
}

// decodeKey accepts both unpadded base64url and standard base64, since
// browsers are not consistent about which they hand to the page.
func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
