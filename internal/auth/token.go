package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrMissingToken = errors.New("missing Authorization header")
	ErrInvalidToken = errors.New("invalid Authorization header format")
)

// ExtractTokenFromRequest gets the bearer token from the Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}
