package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCreateFromDescriptor(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "segments.yaml")

	yamlBody := "segments:\n" +
		"  - name: demo-vector\n" +
		"    kind: vector\n" +
		"    elementSize: 8\n" +
		"    capacity: 16\n" +
		"  - name: demo-list\n" +
		"    kind: list\n" +
		"    elementSize: 8\n" +
		"    capacity: 16\n" +
		"  - name: demo-counter\n" +
		"    kind: counter\n" +
		"    capacity: 16\n"

	require.NoError(t, writeFile(configPath, yamlBody))

	var stdout, stderr bytes.Buffer

	code := Run(&stdout, &stderr, []string{"create", "--config", configPath, "--dir", dir})
	require.Equal(t, 0, code, "stderr: %s", stderr.String())
	require.Contains(t, stdout.String(), "demo-vector")
	require.Contains(t, stdout.String(), "demo-list")
	require.Contains(t, stdout.String(), "demo-counter")
}

func TestRunInspectUnknownKindFails(t *testing.T) {
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer

	code := Run(&stdout, &stderr, []string{"inspect", "--dir", dir, "--name", "x", "--kind", "bogus"})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "unknown kind")
}

func TestRunUnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := Run(&stdout, &stderr, []string{"bogus"})
	require.Equal(t, 2, code)
}

func TestRunCreateMissingConfigFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := Run(&stdout, &stderr, []string{"create"})
	require.Equal(t, 1, code)
	require.Contains(t, stderr.String(), "--config is required")
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o644)
}
