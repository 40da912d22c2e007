package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/headers-cz/sec-phantomraven-checker/scanner"
)

// DefaultMaxDepth bounds repository discovery below the root.
const DefaultMaxDepth = 4

// ReadPathList reads one repository path per line. Blank lines and lines
// starting with '#' are ignored.
func ReadPathList(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read path list: %w", err)
	}
	return paths, nil
}

// LoadPathList reads a path list file.
func LoadPathList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open path list: %w", err)
	}
	defer f.Close()
	return ReadPathList(f)
}

// DiscoverRepositories returns every directory under root that contains a
// .git entry, at most maxDepth levels deep, in lexical order. The root itself
// counts when it is a repository. Discovery does not descend into a found
// repository or into dependency trees.
func DiscoverRepositories(root string, maxDepth int) ([]string, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	if maxDepth < 0 {
		maxDepth = 0
	}

	var repos []string
	err = godirwalk.Walk(root, &godirwalk.Options{
		FollowSymbolicLinks: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if path != root && scanner.SkipDir(de.Name()) {
				return godirwalk.SkipThis
			}
			if isRepository(path) {
				repos = append(repos, path)
				return godirwalk.SkipThis
			}
			if depth(root, path) >= maxDepth {
				return godirwalk.SkipThis
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(repos)
	return repos, nil
}

func isRepository(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
