package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefinitions(t *testing.T) {
	t.Parallel()

	t.Run("Should load a multi-workflow file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "workflows.yaml", `
workflows:
  - name: nightly-sync
    schedule: "0 0 2 * * *"
    steps:
      - action: propertyManagement.getWorkOrders
      - action: fieldService.createJob
        condition: "results[0] != null"
  - name: customer-import
    steps:
      - action: propertyManagement.getCustomers
`)
		defs, err := LoadDefinitions(path)
		require.NoError(t, err)
		require.Len(t, defs, 2)
		assert.Equal(t, "nightly-sync", defs[0].Name)
		assert.Equal(t, "0 0 2 * * *", defs[0].Schedule)
		require.Len(t, defs[0].Steps, 2)
		assert.Equal(t, "fieldService.createJob", defs[0].Steps[1].Action)
		assert.Equal(t, "customer-import", defs[1].Name)
	})

	t.Run("Should load a single-document file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "single.yaml", `
name: duplicate-check
steps:
  - action: deduplication.findMatches
    with:
      entity: "{{params.entity}}"
    timeout: 10s
`)
		defs, err := LoadDefinitions(path)
		require.NoError(t, err)
		require.Len(t, defs, 1)
		assert.Equal(t, "duplicate-check", defs[0].Name)
		assert.Equal(t, 10*time.Second, defs[0].Steps[0].Timeout)
	})

	t.Run("Should aggregate yaml files from a directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.yaml", "name: first\nsteps:\n  - action: a.b\n")
		writeFile(t, dir, "b.yml", "name: second\nsteps:\n  - action: c.d\n")
		writeFile(t, dir, "notes.txt", "ignored")
		defs, err := LoadDefinitions(dir)
		require.NoError(t, err)
		require.Len(t, defs, 2)
	})

	t.Run("Should reject a file with no definitions", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "empty.yaml", "description: nothing here\n")
		_, err := LoadDefinitions(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no workflow definitions")
	})

	t.Run("Should reject malformed yaml", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.yaml", "workflows: [\n")
		_, err := LoadDefinitions(path)
		require.Error(t, err)
	})

	t.Run("Should fail on a missing path", func(t *testing.T) {
		_, err := LoadDefinitions(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
