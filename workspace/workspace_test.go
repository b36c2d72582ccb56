package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadV1(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, BufYAML), "version: v1\nname: buf.build/acme/petapis\n")

	ws, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "v1", ws.Version)
	require.Len(t, ws.Modules, 1)

	m, ok := ws.ModuleFor(filepath.Join(root, "acme", "pet", "v1", "pet.proto"))
	require.True(t, ok)
	assert.Equal(t, "buf.build/acme/petapis", m.Name)
}

func TestLoadV2Modules(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, BufYAML), `version: v2
modules:
  - path: proto
    name: buf.build/acme/api
  - path: proto/vendor
  - path: other
`)

	ws, err := Load(root)
	require.NoError(t, err)
	require.Len(t, ws.Modules, 3)

	assert.Equal(t, "buf.build/acme/api", ws.ModuleName(filepath.Join(root, "proto", "a.proto")))
	assert.Equal(t, "proto/vendor", ws.ModuleName(filepath.Join(root, "proto", "vendor", "b.proto")))
	assert.Equal(t, "other", ws.ModuleName(filepath.Join(root, "other", "x", "c.proto")))
	assert.Equal(t, "", ws.ModuleName(filepath.Join(root, "elsewhere.proto")))
	assert.Equal(t, "", ws.ModuleName(filepath.Join(root, "protocols", "d.proto")))
}

func TestLoadV2WithoutModules(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, BufYAML), "version: v2\n")

	ws, err := Load(root)
	require.NoError(t, err)
	require.Len(t, ws.Modules, 1)
	assert.Equal(t, filepath.Base(root), ws.Modules[0].Name)
}

func TestLoadWorkspaceFile(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, BufWorkYAML), "version: v1\ndirectories:\n  - proto\n  - vendor/googleapis\n")
	write(t, filepath.Join(root, "proto", BufYAML), "version: v1\nname: buf.build/acme/api\n")

	ws, err := Load(root)
	require.NoError(t, err)
	require.Len(t, ws.Modules, 2)

	assert.Equal(t, "buf.build/acme/api", ws.ModuleName(filepath.Join(root, "proto", "a.proto")))
	assert.Equal(t, "vendor/googleapis", ws.ModuleName(filepath.Join(root, "vendor", "googleapis", "g.proto")))
}

func TestLoadWithoutConfig(t *testing.T) {
	ws, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ws.Modules)
}

func TestLoadErrors(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, BufYAML), "version: v9\n")
	_, err := Load(root)
	assert.Error(t, err)

	root = t.TempDir()
	write(t, filepath.Join(root, BufYAML), "version: [unterminated\n")
	_, err = Load(root)
	assert.Error(t, err)
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, BufWorkYAML), "version: v1\ndirectories: [proto]\n")
	write(t, filepath.Join(root, "proto", BufYAML), "version: v1\n")
	deep := filepath.Join(root, "proto", "acme", "v1")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	found, err := FindRoot(deep)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindRootOutermostBufYAML(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, BufYAML), "version: v2\n")
	write(t, filepath.Join(root, "nested", BufYAML), "version: v1\n")

	found, err := FindRoot(filepath.Join(root, "nested"))
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestResolveRoot(t *testing.T) {
	dir := t.TempDir()
	got, err := ResolveRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	got, err = ResolveRoot("")
	require.NoError(t, err)
	assert.Equal(t, cwd, got)

	_, err = ResolveRoot(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file")
	write(t, file, "x")
	_, err = ResolveRoot(file)
	assert.Error(t, err)
}
