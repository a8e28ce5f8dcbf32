package hash

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// sha256("hello world")
const helloWorld = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestSHA256Hasher_HashFile(t *testing.T) {
	tmpDir := t.TempDir()
	hasher := NewSHA256Hasher()

	t.Run("known digest", func(t *testing.T) {
		path := filepath.Join(tmpDir, "package.cmake")
		if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
			t.Fatalf("failed to write test file: %v", err)
		}

		got, err := hasher.HashFile(path)
		if err != nil {
			t.Fatalf("HashFile failed: %v", err)
		}
		if got != helloWorld {
			t.Errorf("HashFile() = %s, want %s", got, helloWorld)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := hasher.HashFile(filepath.Join(tmpDir, "nope")); err == nil {
			t.Error("HashFile should fail for a missing file")
		}
	})
}

func TestBytes(t *testing.T) {
	if got := Bytes([]byte("hello world")); got != helloWorld {
		t.Errorf("Bytes() = %s, want %s", got, helloWorld)
	}
	if Bytes([]byte("a")) == Bytes([]byte("b")) {
		t.Error("different content produced the same digest")
	}
}

func TestFakeHasher(t *testing.T) {
	h := NewFakeHasher()
	h.SetHash("/a", "abc")
	h.SetError("/b", errors.New("boom"))

	if got, _ := h.HashFile("/a"); got != "abc" {
		t.Errorf("HashFile(/a) = %q, want %q", got, "abc")
	}
	if _, err := h.HashFile("/b"); err == nil {
		t.Error("HashFile(/b) should fail")
	}
	if got, _ := h.HashFile("/other"); got != "fakehash" {
		t.Errorf("HashFile(/other) = %q, want %q", got, "fakehash")
	}
}
