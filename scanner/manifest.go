package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ManifestName is the npm manifest file name.
const ManifestName = "package.json"

// Dependency sections, in the order they are flattened.
const (
	SectionDependencies         = "dependencies"
	SectionDevDependencies      = "devDependencies"
	SectionOptionalDependencies = "optionalDependencies"
)

var dependencySections = []string{
	SectionDependencies,
	SectionDevDependencies,
	SectionOptionalDependencies,
}

// Install hooks npm runs automatically, in evaluation order.
var installHooks = []string{"preinstall", "postinstall", "install"}

// DependencyEntry is one declared dependency.
type DependencyEntry struct {
	Name string
	// Specifier is the raw value: semver range, URL or git spec.
	Specifier string
	Section   string
}

// InstallScript is a lifecycle script npm runs on install.
type InstallScript struct {
	Kind    string
	Command string
}

// Manifest is the normalized view of a package.json.
type Manifest struct {
	Path         string
	Name         string
	Dependencies []DependencyEntry
	Scripts      []InstallScript
	Raw          []byte
}

// ParseManifest reads and normalizes a package.json. Missing sections yield
// empty results; only unreadable files and invalid JSON are errors. For
// invalid JSON the returned Manifest still carries Raw alongside the
// *ParseError.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Format: ManifestName, Err: err}
	}
	m, err := parseManifestData(data)
	if err != nil {
		return &Manifest{Path: path, Raw: data}, &ParseError{Path: path, Format: ManifestName, Err: err}
	}
	m.Path = path
	return m, nil
}

func parseManifestData(data []byte) (*Manifest, error) {
	if !json.Valid(data) {
		var v any
		return nil, fmt.Errorf("invalid JSON: %w", json.Unmarshal(data, &v))
	}

	m := &Manifest{Raw: data}
	// A valid document that is not an object has no sections to read.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return m, nil
	}
	_ = json.Unmarshal(fields["name"], &m.Name)

	for _, section := range dependencySections {
		entries := stringMap(fields[section])
		names := make([]string, 0, len(entries))
		for name := range entries {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m.Dependencies = append(m.Dependencies, DependencyEntry{
				Name:      name,
				Specifier: entries[name],
				Section:   section,
			})
		}
	}

	scripts := stringMap(fields["scripts"])
	for _, hook := range installHooks {
		if command, ok := scripts[hook]; ok {
			m.Scripts = append(m.Scripts, InstallScript{Kind: hook, Command: command})
		}
	}
	return m, nil
}

// stringMap decodes a JSON object keeping only string values. Anything else,
// including a section that is not an object, yields an empty map.
func stringMap(raw json.RawMessage) map[string]string {
	out := make(map[string]string)
	if len(raw) == 0 {
		return out
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out
	}
	for key, value := range fields {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			out[key] = s
		}
	}
	return out
}
