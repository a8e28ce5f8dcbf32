package gitx

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/danieljhkim/pkgstage/internal/fsops"
)

const testURL = "https://host/Org/Repo.git"

func TestSync_ClonesMissingDestination(t *testing.T) {
	fake := NewFakeSyncer()
	fake.AddFile(testURL, "package.cmake", "PACKAGE(NAME Repo)")
	dest := filepath.Join(t.TempDir(), "Repo-v1")

	out, err := Sync(context.Background(), fake, fsops.NewRealFS(), testURL, "v1", dest)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if out.Action != ActionCloned {
		t.Errorf("Action = %q, want %q", out.Action, ActionCloned)
	}
	if len(fake.CloneCalls) != 1 || fake.CloneCalls[0].Tag != "v1" {
		t.Errorf("CloneCalls = %+v", fake.CloneCalls)
	}
	if _, err := os.Stat(filepath.Join(dest, "package.cmake")); err != nil {
		t.Errorf("materialized manifest missing: %v", err)
	}
}

func TestSync_EmptyDirectoryIsCloned(t *testing.T) {
	fake := NewFakeSyncer()
	dest := t.TempDir()

	out, err := Sync(context.Background(), fake, fsops.NewRealFS(), testURL, "v1", dest)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if out.Action != ActionCloned {
		t.Errorf("Action = %q, want %q", out.Action, ActionCloned)
	}
}

func TestSync_CloneFailureIsFatal(t *testing.T) {
	fake := NewFakeSyncer()
	fake.CloneErr = errors.New("repository not found")
	dest := filepath.Join(t.TempDir(), "Repo-v1")

	_, err := Sync(context.Background(), fake, fsops.NewRealFS(), testURL, "v1", dest)
	if !errors.Is(err, ErrSync) {
		t.Fatalf("Sync() error = %v, want ErrSync", err)
	}
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Destination != dest {
		t.Errorf("error = %#v, want *SyncError for %s", err, dest)
	}
}

func TestSync_DestinationIsFile(t *testing.T) {
	fake := NewFakeSyncer()
	dest := filepath.Join(t.TempDir(), "Repo-v1")
	if err := os.WriteFile(dest, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	_, err := Sync(context.Background(), fake, fsops.NewRealFS(), testURL, "v1", dest)
	if !errors.Is(err, ErrSync) {
		t.Fatalf("Sync() error = %v, want ErrSync", err)
	}
	if len(fake.CloneCalls) != 0 || len(fake.UpdateCalls) != 0 {
		t.Error("git must not run against a file destination")
	}
}

func TestSync_UpdatesExistingCheckout(t *testing.T) {
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "README"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to seed checkout: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		fake := NewFakeSyncer()
		out, err := Sync(context.Background(), fake, fsops.NewRealFS(), testURL, "v1", dest)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if out.Action != ActionUpdated || out.Warning != nil {
			t.Errorf("Outcome = %+v, want updated without warning", out)
		}
		if len(fake.CloneCalls) != 0 {
			t.Errorf("Clone should not be called for an existing checkout")
		}
	})

	t.Run("failure is a warning", func(t *testing.T) {
		fake := NewFakeSyncer()
		fake.UpdateErr = errors.New("network unreachable")

		out, err := Sync(context.Background(), fake, fsops.NewRealFS(), testURL, "v1", dest)
		if err != nil {
			t.Fatalf("Sync() error = %v, want nil", err)
		}
		if out.Action != ActionStale {
			t.Errorf("Action = %q, want %q", out.Action, ActionStale)
		}
		if out.Warning == nil || !errors.Is(out.Warning, ErrSyncWarning) {
			t.Errorf("Warning = %v, want ErrSyncWarning", out.Warning)
		}
	})
}

func TestValidateRef(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		what    string
		wantErr bool
	}{
		{name: "tag", value: "v1.2.0", what: "tag"},
		{name: "branch with slash", value: "release/1.x", what: "tag"},
		{name: "scp url", value: "git@host:org/repo.git", what: "url"},
		{name: "path with space", value: "/tmp/my repos/a", what: "url"},
		{name: "empty", value: "", what: "tag", wantErr: true},
		{name: "option injection", value: "--upload-pack=touch", what: "url", wantErr: true},
		{name: "tag with space", value: "v1 v2", what: "tag", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRef(tt.value, tt.what)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRef(%q, %q) error = %v, wantErr %v", tt.value, tt.what, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRef) {
				t.Errorf("error = %v, want ErrInvalidRef", err)
			}
		})
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

// setupOrigin creates a repository with a main branch and a v1 tag.
func setupOrigin(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	origin := t.TempDir()
	gitCmd(t, origin, "init", "-q")
	gitCmd(t, origin, "symbolic-ref", "HEAD", "refs/heads/main")
	if err := os.WriteFile(filepath.Join(origin, "package.cmake"), []byte("PACKAGE(NAME Repo)\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	gitCmd(t, origin, "add", ".")
	gitCmd(t, origin, "commit", "-q", "-m", "initial")
	gitCmd(t, origin, "tag", "v1")
	return origin
}

func TestGitSyncer_CloneAndUpdate(t *testing.T) {
	origin := setupOrigin(t)
	g := NewGitSyncer()
	ctx := context.Background()

	t.Run("tag checkout", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "Repo-v1")
		if err := g.Clone(ctx, origin, "v1", dest); err != nil {
			t.Fatalf("Clone() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dest, "package.cmake")); err != nil {
			t.Errorf("cloned manifest missing: %v", err)
		}
		if err := g.Update(ctx, dest, "v1"); err != nil {
			t.Errorf("Update() on detached tag error = %v", err)
		}
	})

	t.Run("branch fast-forward", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "Repo-main")
		if err := g.Clone(ctx, origin, "main", dest); err != nil {
			t.Fatalf("Clone() error = %v", err)
		}

		if err := os.WriteFile(filepath.Join(origin, "NEW"), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		gitCmd(t, origin, "add", ".")
		gitCmd(t, origin, "commit", "-q", "-m", "second")

		if err := g.Update(ctx, dest, "main"); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(dest, "NEW")); err != nil {
			t.Errorf("Update did not fast-forward: %v", err)
		}
	})

	t.Run("default branch without tag", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "repo")
		if err := g.Clone(ctx, origin, "", dest); err != nil {
			t.Fatalf("Clone() error = %v", err)
		}
		if err := g.Update(ctx, dest, ""); err != nil {
			t.Errorf("Update() error = %v", err)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "Repo-v9")
		if err := g.Clone(ctx, origin, "v9", dest); err == nil {
			t.Fatal("Clone() with unknown tag should fail")
		}
	})
}
