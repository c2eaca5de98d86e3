// Package naming provides filename-generation strategies for uploaded files.
package naming

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyName is returned when a strategy needs the original name and none was given.
var ErrEmptyName = errors.New("original filename is empty")

// Strategy returns a storage filename derived from original. attempt is 0 for
// the first try and increases after each collision.
type Strategy func(original string, attempt int) (string, error)

// Random returns 32 hex characters followed by the lower-cased extension of original.
func Random(original string, attempt int) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf) + ext(original), nil
}

// UUID returns a random UUID followed by the lower-cased extension of original.
func UUID(original string, attempt int) (string, error) {
	return uuid.NewString() + ext(original), nil
}

// Original keeps the client's base name with "%" replaced by "_", since keys
// are never decoded and a literal "%41" would read as an escape in the URL.
// Retries insert "-N" before the extension: photo.png, photo-1.png, photo-2.png.
func Original(original string, attempt int) (string, error) {
	base := strings.ReplaceAll(baseName(original), "%", "_")
	if base == "" {
		return "", ErrEmptyName
	}
	if attempt == 0 {
		return base, nil
	}
	e := path.Ext(base)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(base, e), attempt, e), nil
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	switch name {
	case "", "random":
		return Random, nil
	case "uuid":
		return UUID, nil
	case "original":
		return Original, nil
	default:
		return nil, fmt.Errorf("unknown filename strategy: %s", name)
	}
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(strings.TrimSpace(name))
	if base == "." || base == "/" {
		return ""
	}
	return base
}

func ext(name string) string {
	return strings.ToLower(path.Ext(baseName(name)))
}
