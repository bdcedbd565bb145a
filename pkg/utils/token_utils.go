package utils

import (
	"strings"

	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
)

// ExtractBearerToken returns the token carried by an Authorization header value.
// An empty header yields ErrMissingAuthHeader; a header without a bearer token segment
// yields ErrMissingBearerToken.
func ExtractBearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.ErrMissingAuthHeader
	}
	parts := strings.Fields(header)
	if len(parts) < 2 || !strings.EqualFold(parts[0], constants.TokenTypeBearer) {
		return "", errors.ErrMissingBearerToken
	}
	return parts[1], nil
}
