//go:build integration
// +build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danieljhkim/pkgstage/internal/engine"
	"github.com/danieljhkim/pkgstage/internal/gitx"
)

func TestStages_FullCycle(t *testing.T) {
	requireTools(t)
	root := t.TempDir()

	zlib := newOrigin(t, root, "zlib", "PACKAGE(NAME zlib VERSION 1.3)\n")
	core := newOrigin(t, root, "core", "PACKAGE(NAME core DEPENDS "+zlib+")\n")

	appDir := filepath.Join(root, "app")
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appDir, "package.cmake"), []byte("PACKAGE(NAME app DEPENDS "+core+"@v1)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	eng, paths := newEngine(t, root)
	ctx := context.Background()

	deps, err := eng.RunStage(ctx, &engine.StageRequest{
		Stage:      "deps",
		References: []string{"REMOTE: " + core + "@v1", "REMOTE: " + zlib + "@v1"},
	})
	if err != nil {
		t.Fatalf("RunStage(deps) error = %v", err)
	}
	for _, p := range deps.Packages {
		if p.Sync == nil || p.Sync.Action != gitx.ActionCloned {
			t.Errorf("%s sync = %+v, want cloned", p.Name(), p.Sync)
		}
	}
	if _, err := os.Stat(filepath.Join(paths.SourceRoot, "zlib-v1", "package.cmake")); err != nil {
		t.Errorf("zlib checkout missing: %v", err)
	}

	if _, err := eng.RunStage(ctx, &engine.StageRequest{Stage: "app", References: []string{"LOCAL: app"}}); err != nil {
		t.Fatalf("RunStage(app) error = %v", err)
	}

	if got, want := readBuildLog(t, paths), "zlib\ncore\napp\n"; got != want {
		t.Errorf("build log = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(paths.BuildRoot, "core-v1")); err != nil {
		t.Errorf("build folder missing: %v", err)
	}
	if _, err := os.Stat(paths.LockFile); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

func TestStages_RerunUpdatesCheckouts(t *testing.T) {
	requireTools(t)
	root := t.TempDir()
	zlib := newOrigin(t, root, "zlib", "PACKAGE(NAME zlib)\n")
	refs := []string{"REMOTE: " + zlib + "@v1"}

	first, _ := newEngine(t, root)
	if _, err := first.RunStage(context.Background(), &engine.StageRequest{Stage: "deps", References: refs}); err != nil {
		t.Fatalf("first run error = %v", err)
	}

	second, _ := newEngine(t, root)
	res, err := second.RunStage(context.Background(), &engine.StageRequest{Stage: "deps", References: refs})
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if got := res.Packages[0].Sync.Action; got != gitx.ActionUpdated {
		t.Errorf("second sync = %s, want %s", got, gitx.ActionUpdated)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestStages_CloneFailureAborts(t *testing.T) {
	requireTools(t)
	root := t.TempDir()

	eng, paths := newEngine(t, root)
	_, err := eng.RunStage(context.Background(), &engine.StageRequest{
		Stage:      "deps",
		References: []string{"REMOTE: file://" + filepath.Join(root, "missing") + "@v1"},
	})
	if !errors.Is(err, engine.ErrSync) {
		t.Fatalf("RunStage() error = %v, want ErrSync", err)
	}
	if _, err := os.Stat(filepath.Join(paths.InstallRoot, "build.log")); !os.IsNotExist(err) {
		t.Errorf("nothing should have been built: %v", err)
	}
}
