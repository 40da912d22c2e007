package batch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func mkRepo(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
	return dir
}

func TestReadPathList(t *testing.T) {
	paths, err := ReadPathList(strings.NewReader(`# repositories
/srv/a

  /srv/b
#/srv/ignored
/srv/c
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/a", "/srv/b", "/srv/c"}, paths)
}

func TestLoadPathListMissing(t *testing.T) {
	_, err := LoadPathList(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestDiscoverRepositories(t *testing.T) {
	root := t.TempDir()
	a := mkRepo(t, filepath.Join(root, "a"))
	b := mkRepo(t, filepath.Join(root, "group", "b"))
	mkRepo(t, filepath.Join(root, "a", "vendored", "inner"))
	mkRepo(t, filepath.Join(root, "node_modules", "dep"))
	mkRepo(t, filepath.Join(root, "x", "y", "z", "deep"))
	writeFile(t, filepath.Join(root, "group", "notes.txt"), "")

	repos, err := DiscoverRepositories(root, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, repos)

	repos, err = DiscoverRepositories(root, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, filepath.Join(root, "x", "y", "z", "deep")}, repos)
}

func TestDiscoverRootIsRepository(t *testing.T) {
	root := mkRepo(t, t.TempDir())
	mkRepo(t, filepath.Join(root, "sub"))

	repos, err := DiscoverRepositories(root, DefaultMaxDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, repos)
}

func TestDiscoverRepositoriesMissingRoot(t *testing.T) {
	_, err := DiscoverRepositories(filepath.Join(t.TempDir(), "missing"), 2)
	assert.Error(t, err)
}
