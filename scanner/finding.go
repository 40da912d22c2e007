package scanner

import "fmt"

// Kind classifies a Finding.
type Kind string

const (
	KindMaliciousPackage        Kind = "MaliciousPackage"
	KindRemoteDynamicDependency Kind = "RemoteDynamicDependency"
	KindSuspiciousGitDependency Kind = "SuspiciousGitDependency"
	KindMaliciousDomainMatch    Kind = "MaliciousDomainMatch"
	KindSuspiciousInstallScript Kind = "SuspiciousInstallScript"
	KindMaliciousDomainInLock   Kind = "MaliciousDomainInLock"
)

// Severity of a Finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Finding represents one detected indicator of compromise. Findings are
// values; nothing mutates them after Detect returns.
type Finding struct {
	Kind       Kind     `json:"kind"`
	Detail     string   `json:"detail"`
	Severity   Severity `json:"severity"`
	SourceFile string   `json:"source_file"`
	// Section is the manifest section or script hook the hit came from.
	Section string `json:"section,omitempty"`
}

// String condenses f to one line for reports.
func (f Finding) String() string {
	if f.Section != "" {
		return fmt.Sprintf("%s [%s] %s (%s)", f.Kind, f.Severity, f.Detail, f.Section)
	}
	return fmt.Sprintf("%s [%s] %s", f.Kind, f.Severity, f.Detail)
}

// Status of a scanned project.
type Status string

const (
	StatusClean    Status = "clean"
	StatusInfected Status = "infected"
	StatusError    Status = "error"
)

// ProjectResult is the outcome of scanning one manifest and its lock files.
type ProjectResult struct {
	ProjectPath  string    `json:"project_path"`
	ManifestPath string    `json:"manifest_path"`
	Findings     []Finding `json:"findings"`
	Status       Status    `json:"status"`
	ErrorDetail  string    `json:"error,omitempty"`
	// Warnings lists lock files that could not be parsed. Their raw content
	// was still searched, so they do not change Status.
	Warnings []string `json:"warnings,omitempty"`
}
