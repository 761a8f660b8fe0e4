package docstore

import (
	"fmt"
	"strings"
)

// Join builds a path from segments, rejecting empty segments and segments
// containing a slash.
func Join(segments ...string) (string, error) {
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") {
			return "", fmt.Errorf("%w: bad segment %q", ErrInvalidPath, s)
		}
	}
	return strings.Join(segments, "/"), nil
}

func segments(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}

// IsDocument reports whether path addresses a document (even segment count).
func IsDocument(path string) bool {
	s := segments(path)
	return path != "" && len(s)%2 == 0
}

// IsCollection reports whether path addresses a collection (odd segment count).
func IsCollection(path string) bool {
	s := segments(path)
	return path != "" && len(s)%2 == 1
}

// Parent returns the collection containing the document at path.
func Parent(path string) string {
	p := strings.Trim(path, "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Base returns the last segment of path.
func Base(path string) string {
	p := strings.Trim(path, "/")
	return p[strings.LastIndex(p, "/")+1:]
}

func CheckDocument(path string) error {
	if !IsDocument(path) {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	for _, s := range segments(path) {
		if s == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return nil
}

func CheckCollection(path string) error {
	if !IsCollection(path) {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, path)
	}
	for _, s := range segments(path) {
		if s == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return nil
}
