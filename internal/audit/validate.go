package audit

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL signals that a submitted value is not an absolute URL.
var ErrInvalidURL = errors.New("invalid url")

// ValidateURL checks that raw carries a scheme and a host. It performs no network
// access and returns the trimmed input on success.
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: scheme and host required", ErrInvalidURL)
	}
	return trimmed, nil
}
