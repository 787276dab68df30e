// Package auth extracts the caller's identity from inbound requests.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity errors.
var (
	ErrMissingAuthHeader   = errors.New("authorization header is missing")
	ErrMalformedAuthHeader = errors.New("authorization header is malformed")
	ErrMissingSubject      = errors.New("token has no subject claim")
)

const bearerPrefix = "Bearer "

// parser decodes tokens without checking signatures. Tokens are verified
// upstream (API gateway authorizer) before they reach this service.
var parser = jwt.NewParser()

// UserIDFromRequest returns the subject claim of the bearer token carried
// in the Authorization header.
func UserIDFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMalformedAuthHeader
	}

	return UserIDFromToken(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
}

// UserIDFromToken decodes a JWT and returns its "sub" claim.
func UserIDFromToken(raw string) (string, error) {
	if raw == "" {
		return "", ErrMalformedAuthHeader
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedAuthHeader, err)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedAuthHeader, err)
	}
	if sub == "" {
		return "", ErrMissingSubject
	}

	return sub, nil
}
