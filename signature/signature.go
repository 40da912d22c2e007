// Package signature holds the fixed indicator set the detection engine
// matches against. A Signature is built once at startup and shared read-only
// by every worker.
package signature

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed phantomraven.yaml
var embeddedSignature []byte

// Signature is an immutable set of known-bad identifiers.
type Signature struct {
	Name    string
	Version string

	// Domain and IP are the campaign's payload host.
	Domain string
	IP     string

	packages       map[string]struct{}
	scriptPatterns []*regexp.Regexp
}

// file is the on-disk YAML layout.
type file struct {
	Name           string   `yaml:"name"`
	Version        string   `yaml:"version"`
	Domain         string   `yaml:"domain"`
	IP             string   `yaml:"ip"`
	Packages       []string `yaml:"packages"`
	ScriptPatterns []string `yaml:"script_patterns"`
}

var (
	defaultOnce sync.Once
	defaultSig  *Signature
)

// Default returns the embedded PhantomRaven signature.
func Default() *Signature {
	defaultOnce.Do(func() {
		sig, err := Parse(embeddedSignature)
		if err != nil {
			panic(fmt.Sprintf("signature: embedded signature is invalid: %v", err))
		}
		defaultSig = sig
	})
	return defaultSig
}

// Load reads a signature file from disk.
func Load(path string) (*Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature file: %w", err)
	}
	sig, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

// Parse builds a Signature from YAML.
func Parse(data []byte) (*Signature, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse signature: %w", err)
	}

	f.Domain = strings.TrimSpace(f.Domain)
	f.IP = strings.TrimSpace(f.IP)
	if f.Domain == "" && f.IP == "" && len(f.Packages) == 0 {
		return nil, fmt.Errorf("signature %q has no indicators", f.Name)
	}

	sig := &Signature{
		Name:     f.Name,
		Version:  f.Version,
		Domain:   f.Domain,
		IP:       f.IP,
		packages: make(map[string]struct{}, len(f.Packages)),
	}
	for _, name := range f.Packages {
		if name = strings.TrimSpace(name); name != "" {
			sig.packages[name] = struct{}{}
		}
	}
	for i, expr := range f.ScriptPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("script pattern %d: %w", i, err)
		}
		sig.scriptPatterns = append(sig.scriptPatterns, re)
	}
	return sig, nil
}

// WithPackages returns a copy of s whose package set also contains names.
// s itself is left untouched.
func (s *Signature) WithPackages(names ...string) *Signature {
	out := &Signature{
		Name:           s.Name,
		Version:        s.Version,
		Domain:         s.Domain,
		IP:             s.IP,
		packages:       make(map[string]struct{}, len(s.packages)+len(names)),
		scriptPatterns: s.scriptPatterns,
	}
	for name := range s.packages {
		out.packages[name] = struct{}{}
	}
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out.packages[name] = struct{}{}
		}
	}
	return out
}

// IsMaliciousPackage reports whether name is in the package set. Matching is
// exact: "eslint-plugin-unused-imports" does not match "unused-imports".
func (s *Signature) IsMaliciousPackage(name string) bool {
	_, ok := s.packages[name]
	return ok
}

// PackageNames returns the package set in sorted order.
func (s *Signature) PackageNames() []string {
	names := make([]string, 0, len(s.packages))
	for name := range s.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScriptPatterns returns the compiled script patterns in evaluation order.
func (s *Signature) ScriptPatterns() []*regexp.Regexp {
	return append([]*regexp.Regexp(nil), s.scriptPatterns...)
}

// MatchScript returns the first pattern matching command, or nil.
func (s *Signature) MatchScript(command string) *regexp.Regexp {
	for _, re := range s.scriptPatterns {
		if re.MatchString(command) {
			return re
		}
	}
	return nil
}

// MatchIndicator returns the campaign domain or IP embedded in text, or "".
// Host names are case-insensitive, so the domain is matched ignoring case.
func (s *Signature) MatchIndicator(text string) string {
	if s.Domain != "" && strings.Contains(strings.ToLower(text), strings.ToLower(s.Domain)) {
		return s.Domain
	}
	if s.IP != "" && strings.Contains(text, s.IP) {
		return s.IP
	}
	return ""
}

// ContainsIndicator reports whether text embeds the campaign domain or IP.
func (s *Signature) ContainsIndicator(text string) bool {
	return s.MatchIndicator(text) != ""
}

// String identifies the signature for log lines.
func (s *Signature) String() string {
	if s.Version == "" {
		return s.Name
	}
	return s.Name + "@" + s.Version
}
