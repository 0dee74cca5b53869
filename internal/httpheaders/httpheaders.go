// Package httpheaders manipulates plain header maps with case-insensitive keys.
package httpheaders

import (
	"net/http"
	"sort"
	"strings"
)

// Clone returns a copy of headers, dropping blank names.
func Clone(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers)+2)
	for _, key := range sortedKeys(headers) {
		Set(out, key, headers[key])
	}
	return out
}

// Set writes a header value using case-insensitive key matching.
// If an equivalent key already exists with different casing, it is replaced.
func Set(headers map[string]string, name, value string) map[string]string {
	name = strings.TrimSpace(name)
	if name == "" {
		return headers
	}

	if headers == nil {
		headers = make(map[string]string, 1)
	}
	if existing, ok := lookupKeyFold(headers, name); ok && existing != name {
		delete(headers, existing)
	}
	headers[name] = value
	return headers
}

// SetDefault writes a header value only when no equivalent key exists.
func SetDefault(headers map[string]string, name, value string) map[string]string {
	if _, ok := lookupKeyFold(headers, name); ok {
		return headers
	}
	return Set(headers, name, value)
}

// Get returns the value of a header using case-insensitive key matching.
func Get(headers map[string]string, name string) (string, bool) {
	key, ok := lookupKeyFold(headers, name)
	if !ok {
		return "", false
	}
	return headers[key], true
}

// ToHTTP converts the map into an http.Header in deterministic order.
func ToHTTP(headers map[string]string) http.Header {
	out := make(http.Header, len(headers))
	for _, key := range sortedKeys(headers) {
		out.Set(key, headers[key])
	}
	return out
}

func sortedKeys(src map[string]string) []string {
	keys := make([]string, 0, len(src))
	for key := range src {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		li := strings.ToLower(strings.TrimSpace(keys[i]))
		lj := strings.ToLower(strings.TrimSpace(keys[j]))
		if li == lj {
			return keys[i] < keys[j]
		}
		return li < lj
	})
	return keys
}

func lookupKeyFold(headers map[string]string, name string) (string, bool) {
	for key := range headers {
		if strings.EqualFold(strings.TrimSpace(key), strings.TrimSpace(name)) {
			return key, true
		}
	}
	return "", false
}
