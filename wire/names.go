package wire

import (
	"errors"
	"strings"
	"unicode"
)

// MaxNameLength matches the common filesystem limit for a single path element.
const MaxNameLength = 255

// ErrInvalidName is returned for names that cannot address a store entry.
var ErrInvalidName = errors.New("invalid file name")

// reserved names would read back as a status token in a LIST reply.
var reserved = map[string]bool{
	StatusNoFiles:        true,
	StatusNotFound:       true,
	StatusInvalidRequest: true,
}

// ValidateName accepts only plain names of a single flat directory entry.
// Separators, parent references and control characters are rejected; a
// newline inside a name would also corrupt a LIST reply.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || reserved[name] {
		return ErrInvalidName
	}
	if len(name) > MaxNameLength {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return ErrInvalidName
		}
	}
	// Windows drive-relative names such as "C:x" resolve outside the root.
	if len(name) >= 2 && name[1] == ':' {
		return ErrInvalidName
	}
	return nil
}
