// Package invite hides the secret invite link behind base64 so it does not
// appear verbatim in config files or page source.
package invite

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotConfigured is returned when no invite is set.
var ErrNotConfigured = errors.New("invite not configured")

// Encode returns the base64 form of rawURL after validating it.
func Encode(rawURL string) (string, error) {
	if err := validate(rawURL); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(rawURL)), nil
}

// Decode reverses Encode and validates the result.
func Decode(encoded string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", ErrNotConfigured
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid invite encoding: %w", err)
	}
	s := string(raw)
	if err := validate(s); err != nil {
		return "", err
	}
	return s, nil
}

func validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid invite url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid invite url %q: want absolute http(s) url", rawURL)
	}
	return nil
}
