package entry

import (
	"fmt"
	"strings"
)

// Type restricts an operation to files, directories or either.
type Type string

// Entry types. TypeAny is the zero value.
const (
	TypeAny  Type = ""
	TypeFile Type = "file"
	TypeDir  Type = "dir"
)

// Allows reports whether an entry of kind other satisfies the restriction t.
func (t Type) Allows(other Type) bool {
	return t == TypeAny || t == other
}

func (t Type) String() string {
	if t == TypeAny {
		return "any"
	}
	return string(t)
}

// ParseType accepts "", "any", "all", "file", "dir" and "directory".
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return TypeAny, nil
	case "file":
		return TypeFile, nil
	case "dir", "directory":
		return TypeDir, nil
	}
	return TypeAny, fmt.Errorf("unknown entry type %q", s)
}
