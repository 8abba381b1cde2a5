package manifest

import (
	"sort"
	"strings"
)

// Unknown is reported for components absent from a manifest
const Unknown = "unknown"

// Well-known component keys published in Versions.txt
const (
	Launcher          = "launcher"
	Updater           = "updater"
	MinVersionUpdater = "minversionupdater"
)

// Manifest maps component identifiers to their published version
type Manifest map[string]string

// Parse reads key=value lines. Blank lines and lines without '=' are skipped;
// only the first '=' separates key and value.
func Parse(data []byte) Manifest {
	m := make(Manifest)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok || key == "" {
			continue
		}
		m[key] = value
	}
	return m
}

// Lookup returns the version published for component, or Unknown
func (m Manifest) Lookup(component string) string {
	if v, ok := m[component]; ok {
		return v
	}
	return Unknown
}

// Versions resolves several components at once
func (m Manifest) Versions(components []string) map[string]string {
	out := make(map[string]string, len(components))
	for _, c := range components {
		out[c] = m.Lookup(c)
	}
	return out
}

// String serializes the manifest with keys sorted
func (m Manifest) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
		b.WriteByte('\n')
	}
	return b.String()
}
