package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"
)

// TestMain confirms build-many's errgroup-bounded fan-out (cmd/sufficiency's
// only concurrent code path) leaves no goroutines running past the test
// binary's exit.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeRuntimeConfig(t *testing.T, dataPackRoot, resultCachePath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	content := "data_pack_root: " + dataPackRoot + "\n" +
		"manifest_path: \"\"\n" +
		"result_cache_path: " + resultCachePath + "\n" +
		"output_format: json\n" +
		"defaults:\n" +
		"  format_id: commander\n" +
		"  profile_id: focused\n" +
		"  bracket_id: B2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write runtime config: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	runErr := fn()
	w.Close()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), runErr
}

func resetBuildFlags() {
	buildIndexPath = ""
	buildFormatID = ""
	buildProfileID = ""
	buildBracketID = ""
	buildOverrideModelID = ""
	buildDBSnapshotID = ""
	buildSaveToCache = false
}

func TestBuildCmdRunsAgainstEmptyDataRootAndPrintsJSON(t *testing.T) {
	resetBuildFlags()
	configPath = writeRuntimeConfig(t, t.TempDir(), filepath.Join(t.TempDir(), "results.db"))
	defer func() { configPath = "" }()

	out, err := captureStdout(t, func() error {
		return buildCmd.RunE(buildCmd, nil)
	})
	if err != nil {
		t.Fatalf("buildCmd.RunE returned error: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte(`"status"`)) {
		t.Fatalf("expected JSON output containing a status field, got: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte(`"build_hash_v1"`)) {
		t.Fatalf("expected JSON output containing build_hash_v1, got: %s", out)
	}
}

func TestBuildCmdSavesToResultCacheWhenRequested(t *testing.T) {
	resetBuildFlags()
	cachePath := filepath.Join(t.TempDir(), "results.db")
	configPath = writeRuntimeConfig(t, t.TempDir(), cachePath)
	defer func() { configPath = "" }()
	buildSaveToCache = true
	defer func() { buildSaveToCache = false }()

	if _, err := captureStdout(t, func() error {
		return buildCmd.RunE(buildCmd, nil)
	}); err != nil {
		t.Fatalf("buildCmd.RunE returned error: %v", err)
	}

	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("expected a result cache file to be created at %s: %v", cachePath, err)
	}

	// inspect --build-hash omitted should list at least the one row just saved.
	resetInspectFlags()
	out, err := captureStdout(t, func() error {
		return inspectCmd.RunE(inspectCmd, nil)
	})
	if err != nil {
		t.Fatalf("inspectCmd.RunE returned error: %v", err)
	}
	if out == "" {
		t.Fatal("expected inspect to list the cached build result")
	}
}

func resetInspectFlags() {
	inspectBuildHash = ""
}

func TestInspectCmdMissingBuildHashErrors(t *testing.T) {
	resetInspectFlags()
	cachePath := filepath.Join(t.TempDir(), "results.db")
	configPath = writeRuntimeConfig(t, t.TempDir(), cachePath)
	defer func() { configPath = "" }()
	inspectBuildHash = "does-not-exist"
	defer func() { inspectBuildHash = "" }()

	if _, err := captureStdout(t, func() error {
		return inspectCmd.RunE(inspectCmd, nil)
	}); err == nil {
		t.Fatal("expected an error for an unknown build hash")
	}
}

func TestManifestVerifyRequiresManifestPath(t *testing.T) {
	configPath = writeRuntimeConfig(t, t.TempDir(), filepath.Join(t.TempDir(), "results.db"))
	defer func() { configPath = "" }()

	if _, err := captureStdout(t, func() error {
		return manifestVerifyCmd.RunE(manifestVerifyCmd, nil)
	}); err == nil {
		t.Fatal("expected an error when manifest_path is empty")
	}
}
