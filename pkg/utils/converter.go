// Package utils provides small helpers shared by the HTTP and gRPC layers: request value
// conversion, bearer token extraction, and validation.
package utils

import (
	"strconv"
	"strings"
)

// StringToInt converts s to an int, returning defaultValue when s is empty or invalid.
func StringToInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return val
	}
	return defaultValue
}

// ParseID parses a positive integer identifier.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseOptionalBool parses "true"/"false". An empty or unrecognised value yields nil.
func ParseOptionalBool(s string) *bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

// ClampPage normalises pagination input to a page >= 1 and 1 <= limit <= maxLimit.
func ClampPage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
