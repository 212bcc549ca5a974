package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignaturePrefix precedes the hex digest in X-Hub-Signature-256 headers.
const SignaturePrefix = "sha256="

var (
	// ErrMissingSignature indicates the signature header is absent
	ErrMissingSignature = errors.New("signature header is missing")
	// ErrMalformedSignature indicates the header is not sha256=<hex>
	ErrMalformedSignature = errors.New("signature header is malformed")
	// ErrSignatureMismatch indicates the payload was not signed with the app secret
	ErrSignatureMismatch = errors.New("signature does not match payload")
	// ErrEmptySecret indicates no app secret was supplied
	ErrEmptySecret = errors.New("app secret cannot be empty")
)

// SignPayload returns the X-Hub-Signature-256 header value for body.
func SignPayload(body []byte, secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature checks header against the HMAC-SHA256 of body in constant time.
func VerifySignature(body []byte, header, secret string) error {
	if secret == "" {
		return ErrEmptySecret
	}
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, SignaturePrefix) {
		return ErrMalformedSignature
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, SignaturePrefix))
	if err != nil || len(got) != sha256.Size {
		return ErrMalformedSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}
