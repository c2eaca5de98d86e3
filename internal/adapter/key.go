package adapter

import (
	"path"
	"strings"
)

// Characters that are legal in URIs but rejected in object keys.
const reservedKeyChars = "!'()#*+? "

const (
	upperHex = "0123456789ABCDEF"
	lowerHex = "0123456789abcdef"
)

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

func removeLeadingSlash(p string) string {
	return strings.TrimPrefix(p, "/")
}

// resolveKey joins base and filename with POSIX semantics: an absolute
// filename wins, dot segments are resolved, and the result is absolute.
func resolveKey(base, filename string) string {
	if strings.HasPrefix(filename, "/") {
		return path.Clean(filename)
	}
	return path.Join(ensureLeadingSlash(base), filename)
}

// storedFilename expresses the provider's object name relative to base, so
// that resolveKey(base, storedFilename(base, name)) addresses the object.
func storedFilename(base, name string) string {
	abs := ensureLeadingSlash(name)
	prefix := strings.TrimSuffix(ensureLeadingSlash(base), "/") + "/"
	if rel, ok := strings.CutPrefix(abs, prefix); ok && rel != "" {
		return rel
	}
	return abs
}

// EncodeKey percent-encodes everything encodeURI would plus the reserved
// key characters. encodeURI escapes use uppercase hex and reserved characters
// lowercase hex (%2a, %3f), so URLs match the ones stored by earlier versions.
// Existing %XX escapes are kept, so EncodeKey is idempotent.
func EncodeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '%' && i+2 < len(key) && isHex(key[i+1]) && isHex(key[i+2]):
			b.WriteByte(c)
		case isKeySafe(c):
			b.WriteByte(c)
		case strings.IndexByte(reservedKeyChars, c) >= 0:
			b.WriteByte('%')
			b.WriteByte(lowerHex[c>>4])
			b.WriteByte(lowerHex[c&0x0f])
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0f])
		}
	}
	return b.String()
}

func isKeySafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case strings.IndexByte(reservedKeyChars, c) >= 0:
		return false
	}
	return strings.IndexByte(";,/:@&=$-_.~", c) >= 0
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
