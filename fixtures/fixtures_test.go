package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolders(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "io_test.go")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(resolved, "TestInputs"), InputFolder(file))
	assert.Equal(t, filepath.Join(resolved, "TestOutputs"), OutputFolder(file))
}

func TestFoldersResolveSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "suite")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(target, "x_test.go"), nil, 0o644))

	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolved, InputDirName), InputFolder(filepath.Join(link, "x_test.go")))
}

func TestHere(t *testing.T) {
	in, out := Here()
	assert.Equal(t, InputDirName, filepath.Base(in))
	assert.Equal(t, OutputDirName, filepath.Base(out))
	assert.Equal(t, "fixtures", filepath.Base(filepath.Dir(in)))
}

func TestUniqueOutputPath(t *testing.T) {
	a := UniqueOutputPath("/out", "sub/img.tif")
	b := UniqueOutputPath("/out", "sub/img.tif")

	assert.NotEqual(t, a, b)
	assert.Equal(t, "/out", filepath.Dir(a))
	assert.Equal(t, ".tif", filepath.Ext(a))
	assert.True(t, strings.HasPrefix(filepath.Base(a), "img-"))
}
