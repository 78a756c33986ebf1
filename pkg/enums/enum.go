package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parse matches raw input against the known values of an enum. Surrounding
// whitespace and letter case are ignored.
func parse[T ~string](kind string, valid []T, value string) (T, error) {
	normalized := T(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(valid, normalized) {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
