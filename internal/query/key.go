package query

import "strings"

// Key identifies a cached query, e.g. Key{"result", eliminationID}
type Key []string

// String returns the key's canonical form, used as the map index
func (k Key) String() string {
	return strings.Join(k, "\x1f")
}

// Display returns a human readable form for logs and websocket payloads
func (k Key) Display() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether prefix is a leading sub-tuple of k.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both keys hold the same elements
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// ParseKey is the inverse of Display
func ParseKey(s string) Key {
	if s == "" {
		return nil
	}
	return Key(strings.Split(s, "/"))
}
