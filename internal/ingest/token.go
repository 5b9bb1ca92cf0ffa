package ingest

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenTTL bounds how long a minted bearer credential is valid. The worker
// mints a fresh token per fetch cycle rather than reusing one indefinitely,
// so a leaked token has a short blast radius.
const tokenTTL = 2 * time.Minute

// claims are the minimal service-identity claims the read-only input API
// expects from a trusted batch client.
type claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// tokenSigner mints short-lived HMAC-signed bearer tokens from the
// configured API key, so the long-lived secret itself is never sent on
// the wire with every request.
type tokenSigner struct {
	secret []byte
	issuer string
}

func newTokenSigner(apiKey string) *tokenSigner {
	return &tokenSigner{secret: []byte(apiKey), issuer: "triagecore-worker"}
}

func (s *tokenSigner) mint() (string, error) {
	now := time.Now().UTC()
	c := claims{
		Subject: s.issuer,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("ingest: sign bearer token: %w", err)
	}
	return signed, nil
}
