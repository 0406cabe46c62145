// Package objectkey validates and renders storage object keys before they
// reach the wire, so malformed keys fail locally instead of burning a
// round-trip.
package objectkey

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrEmpty means the key was empty after trimming.
	ErrEmpty = errors.New("object key is empty")
	// ErrTraversal means the key contained a ".." segment.
	ErrTraversal = errors.New("object key must not contain \"..\"")
)

// Clean normalizes a key: trims whitespace and the leading slash, and
// rejects empty keys and path traversal.
func Clean(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrEmpty
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", ErrTraversal
		}
	}
	return key, nil
}

// Join prefixes a key with an optional bucket folder.
func Join(bucket, key string) string {
	if bucket == "" {
		return key
	}
	return strings.TrimSuffix(bucket, "/") + "/" + key
}

// EscapePath escapes each segment of a key for use in a URL path while
// keeping the slashes that separate folders.
func EscapePath(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
