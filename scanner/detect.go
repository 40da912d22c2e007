package scanner

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/headers-cz/sec-phantomraven-checker/signature"
)

var (
	httpURLPattern       = regexp.MustCompile(`^https?://`)
	gitURLPattern        = regexp.MustCompile(`^git(\+https|\+ssh)?://`)
	githubArchivePattern = regexp.MustCompile(`^/[^/]+/[^/]+/(tarball|zipball)/`)
)

// Registries that serve reviewed tarballs.
var allowedRegistryHosts = map[string]struct{}{
	"registry.npmjs.org":   {},
	"registry.yarnpkg.com": {},
}

// Git hosts not flagged by the git dependency heuristic. Private hosts are
// reported and may be false positives.
var trustedGitHosts = map[string]struct{}{
	"github.com":    {},
	"gitlab.com":    {},
	"bitbucket.org": {},
}

// Input is everything Detect looks at for one manifest. Manifest may hold
// only Raw when its JSON could not be parsed.
type Input struct {
	Manifest *Manifest
	Locks    []*LockFile
}

// Detect applies every rule to in and returns the findings in a fixed order:
// manifest rules first, then each lock file in turn. It has no state; the
// same input always yields the same findings.
func Detect(in Input, sig *signature.Signature) []Finding {
	var findings []Finding
	if m := in.Manifest; m != nil {
		findings = append(findings, checkMaliciousPackages(m, sig)...)
		findings = append(findings, checkRemoteDependencies(m, sig)...)
		findings = append(findings, checkGitDependencies(m)...)
		findings = append(findings, checkManifestDomain(m, sig)...)
		findings = append(findings, checkInstallScripts(m, sig)...)
	}
	for _, lock := range in.Locks {
		if lock == nil {
			continue
		}
		findings = append(findings, checkLockPackages(lock, sig)...)
		findings = append(findings, checkLockURLs(lock, sig)...)
		findings = append(findings, checkLockDomain(lock, sig)...)
	}
	return findings
}

func checkMaliciousPackages(m *Manifest, sig *signature.Signature) []Finding {
	var findings []Finding
	for _, dep := range m.Dependencies {
		if sig.IsMaliciousPackage(dep.Name) {
			findings = append(findings, Finding{
				Kind:       KindMaliciousPackage,
				Detail:     dep.Name,
				Severity:   SeverityCritical,
				SourceFile: m.Path,
				Section:    dep.Section,
			})
		}
	}
	return findings
}

func checkRemoteDependencies(m *Manifest, sig *signature.Signature) []Finding {
	var findings []Finding
	for _, dep := range m.Dependencies {
		if f, ok := remoteURLFinding(dep.Specifier, m.Path, sig); ok {
			f.Section = dep.Section
			findings = append(findings, f)
		}
	}
	return findings
}

// remoteURLFinding is the allow-list check shared by manifest specifiers and
// lock file URLs.
func remoteURLFinding(raw, source string, sig *signature.Signature) (Finding, bool) {
	raw = strings.TrimSpace(raw)
	if !httpURLPattern.MatchString(strings.ToLower(raw)) || isAllowedURL(raw) {
		return Finding{}, false
	}
	severity := SeverityWarning
	if sig.ContainsIndicator(raw) {
		severity = SeverityCritical
	}
	return Finding{
		Kind:       KindRemoteDynamicDependency,
		Detail:     raw,
		Severity:   severity,
		SourceFile: source,
	}, true
}

// isAllowedURL matches on the parsed host so a registry name placed in the
// path or query of another host is not trusted.
func isAllowedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if _, ok := allowedRegistryHosts[host]; ok {
		return true
	}
	return host == "github.com" && githubArchivePattern.MatchString(u.Path)
}

func checkGitDependencies(m *Manifest) []Finding {
	var findings []Finding
	for _, dep := range m.Dependencies {
		spec := strings.TrimSpace(dep.Specifier)
		if !gitURLPattern.MatchString(spec) {
			continue
		}
		if _, ok := trustedGitHosts[gitHost(spec)]; ok {
			continue
		}
		findings = append(findings, Finding{
			Kind:       KindSuspiciousGitDependency,
			Detail:     spec,
			Severity:   SeverityWarning,
			SourceFile: m.Path,
			Section:    dep.Section,
		})
	}
	return findings
}

// gitHost returns the lowercased host of a git URL such as
// "git+ssh://git@host.example:org/repo.git".
func gitHost(spec string) string {
	rest := spec
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if end := strings.IndexAny(rest, "/#"); end >= 0 {
		rest = rest[:end]
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	if colon := strings.Index(rest, ":"); colon >= 0 {
		rest = rest[:colon]
	}
	return strings.ToLower(rest)
}

func checkManifestDomain(m *Manifest, sig *signature.Signature) []Finding {
	indicator := sig.MatchIndicator(string(m.Raw))
	if indicator == "" {
		return nil
	}
	return []Finding{{
		Kind:       KindMaliciousDomainMatch,
		Detail:     indicator,
		Severity:   SeverityCritical,
		SourceFile: m.Path,
	}}
}

// checkInstallScripts reports at most one finding per script: the first
// matching pattern wins.
func checkInstallScripts(m *Manifest, sig *signature.Signature) []Finding {
	var findings []Finding
	for _, script := range m.Scripts {
		if sig.MatchScript(script.Command) == nil {
			continue
		}
		findings = append(findings, Finding{
			Kind:       KindSuspiciousInstallScript,
			Detail:     script.Command,
			Severity:   SeverityWarning,
			SourceFile: m.Path,
			Section:    script.Kind,
		})
	}
	return findings
}

func checkLockPackages(lock *LockFile, sig *signature.Signature) []Finding {
	var findings []Finding
	for _, name := range lock.Packages {
		if sig.IsMaliciousPackage(name) {
			findings = append(findings, Finding{
				Kind:       KindMaliciousPackage,
				Detail:     name,
				Severity:   SeverityCritical,
				SourceFile: lock.Path,
			})
		}
	}
	return findings
}

func checkLockURLs(lock *LockFile, sig *signature.Signature) []Finding {
	var findings []Finding
	for _, resolved := range lock.URLs {
		if f, ok := remoteURLFinding(resolved.URL, lock.Path, sig); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// checkLockDomain searches the raw content so formats or layouts the parser
// does not understand are still covered.
func checkLockDomain(lock *LockFile, sig *signature.Signature) []Finding {
	indicator := sig.MatchIndicator(string(lock.Raw))
	if indicator == "" {
		return nil
	}
	return []Finding{{
		Kind:       KindMaliciousDomainInLock,
		Detail:     indicator,
		Severity:   SeverityCritical,
		SourceFile: lock.Path,
	}}
}
