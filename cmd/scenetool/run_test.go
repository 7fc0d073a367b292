package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/link270/fbx-analyzer/internal/config"
	"github.com/link270/fbx-analyzer/internal/store"
	"github.com/link270/fbx-analyzer/internal/store/document"
	"github.com/link270/fbx-analyzer/internal/store/storetest"
)

func writeCharacter(t *testing.T, dir string) string {
	t.Helper()
	data, err := document.Marshal(storetest.NewCharacter().Scene)
	require.NoError(t, err)
	path := filepath.Join(dir, "character.scene")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func invoke(t *testing.T, cfg *config.Config, opts options) (int, string, string) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), cfg, opts, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunWithoutScenePrintsUsage(t *testing.T) {
	code, _, stderr := invoke(t, nil, options{})
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage:")
}

func TestRunShowViews(t *testing.T) {
	src := writeCharacter(t, t.TempDir())

	tests := []struct {
		view string
		want []string
	}{
		{"", []string{"export_ready: true", "status: ", "report:"}},
		{"tree", []string{"nodes: ", "top_level:", "name: Prop"}},
		{"skeletons", []string{"name: Hips"}},
		{"metadata", []string{"globals:", "definitions:"}},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			code, stdout, stderr := invoke(t, nil, options{scene: src, show: tt.view})
			require.Equal(t, 0, code, stderr)
			for _, want := range tt.want {
				assert.Contains(t, stdout, want)
			}
		})
	}
}

func TestRunShowErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeCharacter(t, dir)

	code, _, stderr := invoke(t, nil, options{scene: src, show: "colors"})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `unknown view "colors"`)

	code, _, stderr = invoke(t, nil, options{scene: filepath.Join(dir, "missing.scene")})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")

	code, _, stderr = invoke(t, nil, options{scene: src, edits: "edits.yaml"})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "-edits requires -o")
}

func TestRunShowValidatesAgainstSourceSettings(t *testing.T) {
	c := storetest.NewCharacter()
	_ = c.Scene.Settings().SetAxisSystem(store.AxisMayaZUp)
	data, err := document.Marshal(c.Scene)
	require.NoError(t, err)
	src := filepath.Join(t.TempDir(), "zup.scene")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	code, stdout, stderr := invoke(t, nil, options{scene: src})
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "export_ready: true")

	cfg := config.Default()
	cfg.Export.CanonicalDefaults = true
	code, stdout, stderr = invoke(t, cfg, options{scene: src})
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "export_ready: false")
	assert.Contains(t, stdout, "globals.axis")
}

func TestRunSaveCopiesUnchangedScene(t *testing.T) {
	dir := t.TempDir()
	src := writeCharacter(t, dir)
	dst := filepath.Join(dir, "out", "copy.scene")

	code, stdout, stderr := invoke(t, nil, options{scene: src, output: dst})
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Mode:     copy")

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunSaveWithEditsRecordsEverything(t *testing.T) {
	dir := t.TempDir()
	src := writeCharacter(t, dir)
	dst := filepath.Join(dir, "edited.scene")
	script := filepath.Join(dir, "edits.yaml")
	require.NoError(t, os.WriteFile(script, []byte("- op: rename\n  node: Prop\n  name: Crate\n"), 0o644))

	cfg := config.Default()
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Metrics.Textfile = filepath.Join(dir, "scenetool.prom")
	cfg.Export.Diagnostics = filepath.Join(dir, "run.json")

	code, stdout, stderr := invoke(t, cfg, options{scene: src, output: dst, edits: script})
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Mode:     rebuild")

	code, stdout, _ = invoke(t, nil, options{scene: dst, show: "tree"})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "name: Crate")
	assert.NotContains(t, stdout, "name: Prop")

	diag, err := os.ReadFile(cfg.Export.Diagnostics)
	require.NoError(t, err)
	assert.Contains(t, string(diag), `"renamed"`)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `scenetool_export_runs_total{mode="rebuild",state="Done"} 1`)

	code, stdout, _ = invoke(t, cfg, options{listHistory: true})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "rebuild")
	assert.Contains(t, stdout, "Done")
}

func TestRunSaveFailures(t *testing.T) {
	dir := t.TempDir()
	src := writeCharacter(t, dir)

	code, _, stderr := invoke(t, nil, options{scene: src, output: src})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "The destination path must be different from the source path.")

	script := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(script, []byte("- op: delete\n  node: Ghost\n"), 0o644))
	code, _, stderr = invoke(t, nil, options{scene: src, output: filepath.Join(dir, "out.scene"), edits: script})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "node not found")

	cfg := config.Default()
	cfg.Export.CanonicalOverrides.Unit = "furlong"
	code, _, stderr = invoke(t, cfg, options{scene: src, output: filepath.Join(dir, "out.scene")})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown system unit")
}

func TestRunHistoryDisabled(t *testing.T) {
	code, _, stderr := invoke(t, nil, options{listHistory: true})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "history.path")
}

func TestRunEmptyHistory(t *testing.T) {
	cfg := config.Default()
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	code, stdout, _ := invoke(t, cfg, options{listHistory: true})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "No export runs recorded.")
}

func TestRunWriteConfig(t *testing.T) {
	cfg := config.Default()
	cfg.History.Path = "runs.db"

	code, stdout, stderr := invoke(t, cfg, options{writeConfig: "-"})
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "path: runs.db")

	path := filepath.Join(t.TempDir(), "conf", "scenetool.yaml")
	code, stdout, stderr = invoke(t, cfg, options{writeConfig: path})
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Wrote config to "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "path: runs.db")
}
