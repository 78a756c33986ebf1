// Package env reads process settings that must be available before the
// envconfig backed configuration loads (log format, worker identity).
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable the services read.
const Prefix = "QUOTEMARKET_"

// Get returns QUOTEMARKET_<key>, then the bare <key>, then fallback.
func Get(key, fallback string) string {
	if val, ok := Lookup(key); ok {
		return val
	}
	return fallback
}

// Lookup reports the first non-blank value of the prefixed or bare key.
func Lookup(key string) (string, bool) {
	key = strings.TrimPrefix(key, Prefix)
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val, true
		}
	}
	return "", false
}
