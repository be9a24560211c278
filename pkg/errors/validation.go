package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxKeyLength bounds snapshot keys accepted from the outside world.
const maxKeyLength = 128

// keyRegex matches keys that are safe as file names, Redis keys and SQL values.
var keyRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey checks a persistence key supplied by a client (HTTP path
// parameter, CLI flag). File-backed stores turn keys into file names, so
// path separators, traversal sequences and control characters are rejected.
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "key cannot be empty")
	}
	if len(key) > maxKeyLength {
		return New(ErrCodeInvalidInput, "key too long (max %d characters)", maxKeyLength)
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "key contains invalid control characters")
		}
	}
	if strings.Contains(key, "..") {
		return New(ErrCodeInvalidInput, "key cannot contain path traversal sequences (..)")
	}
	if !keyRegex.MatchString(key) {
		return New(ErrCodeInvalidInput, "invalid key: %q", key)
	}
	return nil
}

// ValidateURL validates a manifest URL. Only http and https are accepted.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
