package validation

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var (
	allowedMimeTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
	}
	allowedExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
)

var ErrInvalidDataURL = errors.New("invalid data URL")

// ValidImageType accepts JPEG and PNG, by MIME type or file extension
func ValidImageType(filename, mimeType string) bool {
	if allowedMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))] {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return allowedExtensions[ext]
}

// ValidImageSize checks the upload size limit (enforced client-side in the
// original app, re-checked here before any hosting call)
func ValidImageSize(size, max int64) bool {
	return size > 0 && size <= max
}

// IsDataURL reports whether s is a data: URI
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// IsHostedURL reports whether s is an already-hosted http(s) URL
func IsHostedURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ParseDataURL splits a data URL into its base64 payload and MIME type.
// Mirrors the client contract: the payload is everything after the first
// comma, the MIME type sits between "data:" and the first semicolon.
// Either part missing is a validation error, caught before any network call.
func ParseDataURL(s string) (payload, mimeType string, err error) {
	if !IsDataURL(s) {
		return "", "", ErrInvalidDataURL
	}
	comma := strings.Index(s, ",")
	if comma < 0 {
		return "", "", ErrInvalidDataURL
	}
	payload = s[comma+1:]

	header := s[:comma]
	semi := strings.Index(header, ";")
	if semi < 0 {
		semi = len(header)
	}
	mimeType = strings.TrimPrefix(header[:semi], "data:")

	if payload == "" || mimeType == "" {
		return "", "", ErrInvalidDataURL
	}
	return payload, mimeType, nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	return emailRegex.MatchString(email)
}

// ValidatePassword validates password strength
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case strings.ContainsRune("@$!%*?&", char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasNumber && hasSpecial
}

// ExtensionForMime maps an image MIME type to a file extension for
// hosted object keys
func ExtensionForMime(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	default:
		return ".img"
	}
}
