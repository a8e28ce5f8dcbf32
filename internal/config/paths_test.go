package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danieljhkim/pkgstage/internal/fsops"
)

// clearEnv unsets every PKGSTAGE_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvSourceRoot, EnvBuildRoot, EnvInstallRoot, EnvStage, EnvStageFile, EnvLockFile} {
		t.Setenv(name, "")
	}
}

func writeStageFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultStageFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write stage file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	cfg, err := Load(fsops.NewRealFS(), cwd, Overrides{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stages != nil {
		t.Error("Stages should be nil without a stage file")
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"base", cfg.Paths.Base, cwd},
		{"source root", cfg.Paths.SourceRoot, filepath.Join(cwd, "_packages", "src")},
		{"build root", cfg.Paths.BuildRoot, filepath.Join(cwd, "_build")},
		{"install root", cfg.Paths.InstallRoot, filepath.Join(cwd, "_packages", "published")},
		{"lock file", cfg.Paths.LockFile, filepath.Join(cwd, "_packages", "published", "package.lock.json")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	stageDir := filepath.Join(cwd, "project")
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	writeStageFile(t, stageDir, `
source_root: ${STAGE_FILE_DIR}/deps
build_root: out/build
install_root: out/install
stages:
  - name: base
    packages: []
`)
	stageFile := filepath.Join(stageDir, DefaultStageFile)

	t.Run("stage file over default", func(t *testing.T) {
		cfg, err := Load(fsops.NewRealFS(), cwd, Overrides{StageFile: stageFile})
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Paths.Base != stageDir {
			t.Errorf("Base = %q, want %q", cfg.Paths.Base, stageDir)
		}
		if cfg.Paths.SourceRoot != filepath.Join(stageDir, "deps") {
			t.Errorf("SourceRoot = %q", cfg.Paths.SourceRoot)
		}
		if cfg.Paths.BuildRoot != filepath.Join(stageDir, "out", "build") {
			t.Errorf("BuildRoot = %q", cfg.Paths.BuildRoot)
		}
		if cfg.Paths.LockFile != filepath.Join(stageDir, "out", "install", "package.lock.json") {
			t.Errorf("LockFile = %q", cfg.Paths.LockFile)
		}
	})

	t.Run("environment over stage file", func(t *testing.T) {
		t.Setenv(EnvStageFile, stageFile)
		t.Setenv(EnvBuildRoot, "/env/build")
		t.Setenv(EnvStage, "base")

		cfg, err := Load(fsops.NewRealFS(), cwd, Overrides{})
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Paths.BuildRoot != "/env/build" {
			t.Errorf("BuildRoot = %q, want /env/build", cfg.Paths.BuildRoot)
		}
		if cfg.Stage != "base" {
			t.Errorf("Stage = %q, want base", cfg.Stage)
		}
	})

	t.Run("flag over environment", func(t *testing.T) {
		t.Setenv(EnvBuildRoot, "/env/build")
		t.Setenv(EnvStage, "base")

		cfg, err := Load(fsops.NewRealFS(), cwd, Overrides{
			StageFile: stageFile,
			BuildRoot: "flag-build",
			Stage:     "other",
		})
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		// Flag paths are relative to the working directory.
		if cfg.Paths.BuildRoot != filepath.Join(cwd, "flag-build") {
			t.Errorf("BuildRoot = %q", cfg.Paths.BuildRoot)
		}
		if cfg.Stage != "other" {
			t.Errorf("Stage = %q, want other", cfg.Stage)
		}
	})
}

func TestLoad_MissingExplicitStageFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(fsops.NewRealFS(), t.TempDir(), Overrides{StageFile: "nope.yaml"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Load error = %v, want not found", err)
	}
}

func TestPaths_EnsureDirectories(t *testing.T) {
	root := t.TempDir()
	p := &Paths{
		SourceRoot:  filepath.Join(root, "src"),
		BuildRoot:   filepath.Join(root, "build"),
		InstallRoot: filepath.Join(root, "install"),
	}
	if err := p.EnsureDirectories(fsops.NewRealFS()); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{p.SourceRoot, p.BuildRoot, p.InstallRoot} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", dir)
		}
	}
}
