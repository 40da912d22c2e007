package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/headers-cz/sec-phantomraven-checker/signature"
)

// Dependency-install trees and framework build/cache output. Matched against
// whole path segments, so "build-tools" or "next" are still walked.
var skipDirs = map[string]struct{}{
	"node_modules": {}, "bower_components": {}, ".git": {},
	".next": {}, ".nuxt": {}, ".svelte-kit": {}, ".output": {},
	".turbo": {}, ".cache": {}, ".parcel-cache": {},
	".yarn": {}, ".pnpm-store": {},
}

// SkipDir reports whether a directory named name is excluded from manifest
// discovery.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip
}

// Scanner applies Detect to every manifest under a project root.
type Scanner struct {
	sig *signature.Signature
}

// New creates a Scanner using sig.
func New(sig *signature.Signature) *Scanner {
	return &Scanner{sig: sig}
}

// Signature returns the signature the scanner matches against.
func (s *Scanner) Signature() *signature.Signature {
	return s.sig
}

// Scan returns one ProjectResult per manifest found under root. A root
// without manifests yields an empty slice; a root that cannot be walked
// yields a single error result.
func (s *Scanner) Scan(root string) []ProjectResult {
	manifests, walkErrs, err := findManifests(root)
	if err != nil {
		return []ProjectResult{{
			ProjectPath: root,
			Status:      StatusError,
			ErrorDetail: err.Error(),
		}}
	}
	return s.scanManifests(root, manifests, walkErrs)
}

// scanManifests scans each manifest in turn. Directories the walk could not
// read are reported as warnings on the first result so a partial walk stays
// visible without changing any status.
func (s *Scanner) scanManifests(root string, manifests, walkErrs []string) []ProjectResult {
	results := make([]ProjectResult, 0, len(manifests))
	for _, manifestPath := range manifests {
		results = append(results, s.ScanManifest(root, manifestPath))
	}
	if len(results) > 0 && len(walkErrs) > 0 {
		results[0].Warnings = append(walkErrs, results[0].Warnings...)
	}
	return results
}

// ScanManifest scans one manifest together with the lock files in its
// directory.
func (s *Scanner) ScanManifest(root, manifestPath string) ProjectResult {
	result := ProjectResult{
		ProjectPath:  root,
		ManifestPath: manifestPath,
	}

	manifest, manifestErr := ParseManifest(manifestPath)

	var locks []*LockFile
	dir := filepath.Dir(manifestPath)
	for _, name := range LockFileNames {
		lockPath := filepath.Join(dir, name)
		if _, err := os.Stat(lockPath); err != nil {
			continue
		}
		lock, err := ParseLockFile(lockPath)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
		if lock != nil {
			locks = append(locks, lock)
		}
	}

	result.Findings = Detect(Input{Manifest: manifest, Locks: locks}, s.sig)

	switch {
	case len(result.Findings) > 0:
		result.Status = StatusInfected
	case manifestErr != nil:
		result.Status = StatusError
	default:
		result.Status = StatusClean
	}
	if manifestErr != nil {
		result.ErrorDetail = manifestErr.Error()
	}
	return result
}

// FindManifests returns every package.json under root, skipping dependency
// and build output directories. A directory's manifest comes before those of
// its subdirectories; siblings are in lexical order. Symlinks are not
// followed.
func FindManifests(root string) ([]string, error) {
	manifests, _, err := findManifests(root)
	return manifests, err
}

// findManifests also returns the errors of subdirectories that could not be
// read. They only become the error when no manifest was found at all.
func findManifests(root string) ([]string, []string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("project root %s is not a directory", root)
	}

	var manifests []string
	var walkErrs []string
	err = godirwalk.Walk(root, &godirwalk.Options{
		FollowSymbolicLinks: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				if path != root && SkipDir(de.Name()) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if de.Name() == ManifestName && de.IsRegular() {
				manifests = append(manifests, path)
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			walkErrs = append(walkErrs, fmt.Sprintf("failed to read %s: %v", path, err))
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	if len(manifests) == 0 && len(walkErrs) > 0 {
		return nil, nil, errors.New(strings.Join(walkErrs, "; "))
	}

	sortManifests(manifests)
	return manifests, walkErrs, nil
}

// sortManifests orders by directory first so a parent's manifest precedes
// its children's, then by full path.
func sortManifests(manifests []string) {
	sort.Slice(manifests, func(i, j int) bool {
		di, dj := filepath.Dir(manifests[i]), filepath.Dir(manifests[j])
		if di != dj {
			return di < dj
		}
		return manifests[i] < manifests[j]
	})
}
