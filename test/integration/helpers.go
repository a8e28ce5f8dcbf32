//go:build integration
// +build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/danieljhkim/pkgstage/internal/build"
	"github.com/danieljhkim/pkgstage/internal/clock"
	"github.com/danieljhkim/pkgstage/internal/config"
	"github.com/danieljhkim/pkgstage/internal/engine"
	"github.com/danieljhkim/pkgstage/internal/fsops"
	"github.com/danieljhkim/pkgstage/internal/gitx"
	"github.com/danieljhkim/pkgstage/internal/hash"
	"github.com/danieljhkim/pkgstage/internal/lockfile"
	"github.com/danieljhkim/pkgstage/internal/registry"
)

// logCommand appends the current package name to build.log in the install root.
const logCommand = `echo "$PKGSTAGE_CUR_PACKAGE_NAME" >> "$PKGSTAGE_ROOT_INSTALL_FOLDER/build.log"`

func requireTools(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("build commands use sh")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// gitCmd runs git in dir with a throwaway identity.
func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	base := []string{"-c", "user.name=Test User", "-c", "user.email=test@example.com", "-c", "commit.gpgsign=false"}
	cmd := exec.Command("git", append(base, args...)...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

// newOrigin creates a repository named name holding manifest, tagged v1,
// and returns its file:// URL.
func newOrigin(t *testing.T, root, name, manifest string) string {
	t.Helper()
	dir := filepath.Join(root, "origins", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	if err := os.WriteFile(filepath.Join(dir, "package.cmake"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "initial")
	gitCmd(t, dir, "tag", "v1")
	return "file://" + dir
}

// newEngine creates an engine backed by git and sh, rooted at root.
func newEngine(t *testing.T, root string) (*engine.Engine, config.Paths) {
	t.Helper()
	paths := config.Paths{
		Base:        root,
		SourceRoot:  filepath.Join(root, "_packages", "src"),
		BuildRoot:   filepath.Join(root, "_build"),
		InstallRoot: filepath.Join(root, "_packages", "published"),
		LockFile:    filepath.Join(root, "_packages", "published", "package.lock.json"),
	}
	fs := fsops.NewRealFS()
	if err := paths.EnsureDirectories(fs); err != nil {
		t.Fatal(err)
	}

	clk := &clock.RealClock{}
	dispatcher := build.NewCommandDispatcher(fs, []string{logCommand}, os.Stdout, os.Stderr)
	locks := lockfile.NewFileStore(fs, clk, paths.LockFile)
	eng := engine.New(registry.New(), gitx.NewGitSyncer(), dispatcher, locks, fs, hash.NewSHA256Hasher(), clk, paths)
	return eng, paths
}

func readBuildLog(t *testing.T, paths config.Paths) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(paths.InstallRoot, "build.log"))
	if err != nil {
		t.Fatalf("failed to read build log: %v", err)
	}
	return string(data)
}
