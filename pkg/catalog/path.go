package catalog

import (
	"strings"

	"github.com/cartridgeio/cartridge/pkg/cartridgeerr"
)

// Normalize canonicalizes a path the way the catalog stores it: a
// leading slash, forward-slash separators, "." and ".." components
// resolved, empty components collapsed, case preserved. Paths whose ".."
// components would escape the root are rejected with InvalidPath rather
// than silently clamped, so an external policy evaluator consulted after
// normalization cannot be bypassed by a traversal path.
func Normalize(p string) (string, error) {
	segments := strings.Split(p, "/")
	stack := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", cartridgeerr.New(cartridgeerr.InvalidPath, p)
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, seg)
		}
	}
	return "/" + strings.Join(stack, "/"), nil
}

// NormalizePrefix normalizes p for use as a scan/listing prefix. Unlike
// Normalize, an empty string means "the root" rather than an error, and
// a malformed traversal prefix clamps to root instead of failing, since
// prefix matching is a read-only convenience API.
func NormalizePrefix(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	norm, err := Normalize(p)
	if err != nil {
		return "/"
	}
	return norm
}

// Name returns the last path segment (the "base name").
func Name(p string) string {
	norm := strings.TrimRight(p, "/")
	if i := strings.LastIndex(norm, "/"); i >= 0 {
		return norm[i+1:]
	}
	return norm
}

// Parent returns the parent path of p, or "" if p is already at the
// root.
func Parent(p string) string {
	norm := strings.TrimRight(p, "/")
	i := strings.LastIndex(norm, "/")
	if i <= 0 {
		return ""
	}
	return norm[:i]
}

// HasPrefix reports whether path lies under prefix, treating prefix as a
// directory boundary so that "/foo" does not match "/foobar".
func HasPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
