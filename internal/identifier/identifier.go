// Package identifier parses plugin unique identifiers of the form
// "org/name:version@checksum".
package identifier

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Identifier represents a parsed plugin unique identifier.
type Identifier struct {
	Raw string

	// Organization is empty for plugins without an author prefix.
	Organization string
	Name         string
	Version      string

	// Checksum is empty when the identifier omits "@checksum".
	Checksum string
}

// Parse splits a plugin unique identifier into its parts.
func Parse(input string) (*Identifier, error) {
	if input == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	rest, checksum, hasChecksum := strings.Cut(input, "@")
	if hasChecksum && checksum == "" {
		return nil, fmt.Errorf("empty checksum in identifier '%s'", input)
	}

	i := strings.LastIndex(rest, ":")
	if i < 0 {
		return nil, fmt.Errorf("invalid identifier format '%s'\nExpected: org/name:version[@checksum]", input)
	}
	pluginID, version := rest[:i], rest[i+1:]
	if version == "" {
		return nil, fmt.Errorf("empty version in identifier '%s'", input)
	}

	id := &Identifier{Raw: input, Version: version, Checksum: checksum}
	parts := strings.Split(pluginID, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		id.Name = parts[0]
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		id.Organization, id.Name = parts[0], parts[1]
	default:
		return nil, fmt.Errorf("invalid plugin id '%s' in identifier '%s'", pluginID, input)
	}
	return id, nil
}

// PluginID returns the "org/name" part of the identifier.
func (id *Identifier) PluginID() string {
	if id.Organization == "" {
		return id.Name
	}
	return id.Organization + "/" + id.Name
}

// String returns the identifier in canonical form.
func (id *Identifier) String() string {
	s := id.PluginID() + ":" + id.Version
	if id.Checksum != "" {
		s += "@" + id.Checksum
	}
	return s
}

// CompareVersions compares two plugin versions as semantic versions. It
// returns -1, 0 or +1, or an error if either version is not valid.
func CompareVersions(a, b string) (int, error) {
	va, vb := ensureVPrefix(a), ensureVPrefix(b)
	if !semver.IsValid(va) {
		return 0, fmt.Errorf("invalid version '%s'", a)
	}
	if !semver.IsValid(vb) {
		return 0, fmt.Errorf("invalid version '%s'", b)
	}
	return semver.Compare(va, vb), nil
}

// ensureVPrefix ensures the version string has a 'v' prefix for semver.
func ensureVPrefix(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
