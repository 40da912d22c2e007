package scanner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported lock file formats, named after their file.
const (
	LockPackageJSON = "package-lock.json"
	LockYarn        = "yarn.lock"
	LockPnpm        = "pnpm-lock.yaml"
)

// LockFileNames lists the lock files looked up next to each manifest.
var LockFileNames = []string{LockPackageJSON, LockYarn, LockPnpm}

// ResolvedURL is a download URL pinned by a lock file.
type ResolvedURL struct {
	URL    string
	Origin string
}

// LockFile is the normalized view shared by all lock formats.
type LockFile struct {
	Path     string
	Format   string
	URLs     []ResolvedURL
	Packages []string
	// Raw is the unparsed content, searched even when parsing fails.
	Raw []byte
}

var (
	yarnResolvedPattern = regexp.MustCompile(`^\s+resolved:?\s+"?([^"\s]+)"?`)
	pnpmV5KeyPattern    = regexp.MustCompile(`^(@[^/]+/[^/@]+|[^/@]+)/\d[^/]*$`)
)

// ParseLockFile extracts resolved URLs and package names from a lock file,
// choosing the format from the file name. When the content cannot be parsed
// the returned LockFile still carries Raw alongside the *ParseError.
func ParseLockFile(path string) (*LockFile, error) {
	format := filepath.Base(path)
	switch format {
	case LockPackageJSON, LockYarn, LockPnpm:
	default:
		return nil, &ParseError{Path: path, Format: "lock file", Err: fmt.Errorf("unsupported lock file %q", format)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Format: format, Err: err}
	}

	lock := &LockFile{Path: path, Format: format, Raw: data}
	switch format {
	case LockPackageJSON:
		err = parseNPMLock(lock)
	case LockYarn:
		err = parseYarnLock(lock)
	case LockPnpm:
		err = parsePnpmLock(lock)
	}
	if err != nil {
		return &LockFile{Path: path, Format: format, Raw: data}, &ParseError{Path: path, Format: format, Err: err}
	}
	return lock, nil
}

// collector dedupes URLs and names while keeping first-seen order.
type collector struct {
	lock  *LockFile
	urls  map[string]struct{}
	names map[string]struct{}
}

func newCollector(lock *LockFile) *collector {
	return &collector{
		lock:  lock,
		urls:  make(map[string]struct{}),
		names: make(map[string]struct{}),
	}
}

func (c *collector) addURL(url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	if _, ok := c.urls[url]; ok {
		return
	}
	c.urls[url] = struct{}{}
	c.lock.URLs = append(c.lock.URLs, ResolvedURL{URL: url, Origin: c.lock.Format})
}

func (c *collector) addName(name string) {
	if name == "" {
		return
	}
	if _, ok := c.names[name]; ok {
		return
	}
	c.names[name] = struct{}{}
	c.lock.Packages = append(c.lock.Packages, name)
}

// parseNPMLock handles lockfileVersion 1 (nested "dependencies") as well as
// 2 and 3 ("packages" keyed by node_modules path).
func parseNPMLock(lock *LockFile) error {
	var root any
	if err := json.Unmarshal(lock.Raw, &root); err != nil {
		return err
	}
	c := newCollector(lock)

	walkJSON(root, func(key string, value any) {
		if key != "resolved" {
			return
		}
		if url, ok := value.(string); ok {
			c.addURL(url)
		}
	})

	obj, ok := root.(map[string]any)
	if !ok {
		return nil
	}
	if packages, ok := obj["packages"].(map[string]any); ok {
		for _, path := range sortedKeys(packages) {
			c.addName(extractPackageName(path))
		}
	}
	if deps, ok := obj["dependencies"].(map[string]any); ok {
		collectLegacyDeps(deps, c)
	}
	return nil
}

func collectLegacyDeps(deps map[string]any, c *collector) {
	for _, name := range sortedKeys(deps) {
		c.addName(name)
		if entry, ok := deps[name].(map[string]any); ok {
			if nested, ok := entry["dependencies"].(map[string]any); ok {
				collectLegacyDeps(nested, c)
			}
		}
	}
}

// walkJSON visits every object member below v in sorted key order.
func walkJSON(v any, visit func(key string, value any)) {
	switch node := v.(type) {
	case map[string]any:
		for _, key := range sortedKeys(node) {
			visit(key, node[key])
			walkJSON(node[key], visit)
		}
	case []any:
		for _, item := range node {
			walkJSON(item, visit)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// extractPackageName extracts the package name from a node_modules path.
// Workspace entries without node_modules yield "".
func extractPackageName(path string) string {
	parts := strings.Split(path, "node_modules/")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSuffix(parts[len(parts)-1], "/")
}

// parseYarnLock reads the line-oriented yarn format. Entry headers start at
// column zero and end with ':'; their "resolved" lines are indented.
func parseYarnLock(lock *LockFile) error {
	c := newCollector(lock)

	scanner := bufio.NewScanner(bytes.NewReader(lock.Raw))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := yarnResolvedPattern.FindStringSubmatch(line); m != nil {
			c.addURL(m[1])
			continue
		}
		if line[0] != ' ' && line[0] != '\t' && strings.HasSuffix(line, ":") {
			for _, name := range yarnHeaderNames(strings.TrimSuffix(line, ":")) {
				c.addName(name)
			}
		}
	}
	return scanner.Err()
}

// yarnHeaderNames handles both `"a@^1", "a@^2"` (v1) and `"a@npm:^1, a@npm:^2"`
// (berry) headers.
func yarnHeaderNames(header string) []string {
	var names []string
	for _, spec := range strings.Split(header, ",") {
		spec = strings.Trim(strings.TrimSpace(spec), `"`)
		if len(spec) < 2 {
			continue
		}
		idx := strings.Index(spec[1:], "@")
		if idx < 0 {
			continue
		}
		names = append(names, spec[:idx+1])
	}
	return names
}

// parsePnpmLock walks the YAML tree for tarball/resolution values and reads
// package names from the "packages" keys.
func parsePnpmLock(lock *LockFile) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(lock.Raw, &doc); err != nil {
		return err
	}
	c := newCollector(lock)
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]

	walkYAML(root, func(key string, value *yaml.Node) {
		if value.Kind != yaml.ScalarNode {
			return
		}
		if key == "tarball" || key == "resolution" {
			c.addURL(value.Value)
		}
	})

	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "packages" || root.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		packages := root.Content[i+1]
		for j := 0; j+1 < len(packages.Content); j += 2 {
			c.addName(pnpmPackageName(packages.Content[j].Value))
		}
	}
	return nil
}

// walkYAML visits every mapping member below n in document order.
func walkYAML(n *yaml.Node, visit func(key string, value *yaml.Node)) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range n.Content {
			walkYAML(child, visit)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			visit(n.Content[i].Value, n.Content[i+1])
			walkYAML(n.Content[i+1], visit)
		}
	}
}

// pnpmPackageName accepts the key styles of lockfile v5 ("/name/1.0.0"),
// v6 ("/name@1.0.0") and v9 ("name@1.0.0(peer@2.0.0)").
func pnpmPackageName(key string) string {
	key = strings.TrimPrefix(key, "/")
	if m := pnpmV5KeyPattern.FindStringSubmatch(key); m != nil {
		return m[1]
	}
	if idx := strings.Index(key, "("); idx >= 0 {
		key = key[:idx]
	}
	if len(key) < 2 {
		return ""
	}
	if idx := strings.Index(key[1:], "@"); idx >= 0 {
		return key[:idx+1]
	}
	return ""
}
