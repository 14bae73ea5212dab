package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spreadnet/internal/network"
	"spreadnet/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	workspace, configPath, verbose = "", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestJoinArgs(t *testing.T) {
	assert.Equal(t, "new york", joinArgs([]string{"new", "york"}))
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--workspace", t.TempDir(), "New", "York")
	require.NoError(t, err)
	assert.Contains(t, out, "token:new")
	assert.Contains(t, out, "token:york")
	assert.Contains(t, out, "relation")
	assert.Contains(t, out, "fired")
}

func TestTraceCommand(t *testing.T) {
	out, err := execute(t, "trace", "--workspace", t.TempDir(), "new york")
	require.NoError(t, err)
	assert.Contains(t, out, "linked(")
	assert.Contains(t, out, "reaches(")
	assert.Contains(t, out, "reprocessed")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"a.txt", "b.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("san francisco"), 0644))
		files = append(files, p)
	}
	out, err := execute(t, append([]string{"batch", "--workspace", dir}, files...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 documents")
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.txt")
}

func TestBatchCommand_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "batch", "--workspace", dir, filepath.Join(dir, "nope.txt"))
	assert.Error(t, err)
}

func TestFileBackedModelPersists(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "spreadnet.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  backend: file\n  path: model\n"), 0644))

	_, err := execute(t, "run", "--workspace", dir, "--config", cfgPath, "machine learning rocks")
	require.NoError(t, err)
	_, err = os.Stat(store.IndexPath(filepath.Join(dir, "model")))
	require.NoError(t, err)

	out, err := execute(t, "store", "index", "--workspace", dir, filepath.Join(dir, "model"))
	require.NoError(t, err)
	assert.Contains(t, out, network.ModelLabel)
	assert.Contains(t, out, "token:rocks")

	out, err = execute(t, "run", "--workspace", dir, "--config", cfgPath, "rocks")
	require.NoError(t, err)
	assert.Contains(t, out, "token:rocks")
}

func TestStoreIndex_MissingDir(t *testing.T) {
	_, err := execute(t, "store", "index", "--workspace", t.TempDir(), filepath.Join(t.TempDir(), "none"))
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("processor:\n  workers: 0\n"), 0644))
	_, err := execute(t, "run", "--workspace", dir, "--config", cfgPath, "x")
	assert.Error(t, err)
}
