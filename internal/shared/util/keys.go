// Package util holds small helpers for building object-store keys.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFileNameRunes bounds the user-supplied part of an object key.
const maxFileNameRunes = 120

var errInvalidFileName = errors.New("invalid file name")

// HashUserKey returns a path-safe identifier for a user ID.
func HashUserKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// ObjectKey joins prefix, the hashed user ID and name into a slash-separated key.
func ObjectKey(prefix, userID, name string) string {
	prefix = strings.Trim(prefix, "/")
	return path.Join(prefix, HashUserKey(userID), name)
}

// SanitizeFileName flattens separators, drops control characters and keeps the
// extension when the name has to be shortened.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return "", errInvalidFileName
	}
	if utf8.RuneCountInString(s) > maxFileNameRunes {
		ext := filepath.Ext(s)
		if utf8.RuneCountInString(ext) > 16 {
			ext = ""
		}
		stem := []rune(strings.TrimSuffix(s, ext))
		s = string(stem[:maxFileNameRunes-utf8.RuneCountInString(ext)]) + ext
	}
	return s, nil
}
