package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/danieljhkim/pkgstage/internal/clock"
	"github.com/danieljhkim/pkgstage/internal/fsops"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func engineStage(order ...string) Stage {
	st := Stage{Name: "10_engine", BuildOrder: order}
	for i, dest := range order {
		st.Packages = append(st.Packages, Package{
			BuildIndex:   i,
			Name:         filepath.Base(dest),
			Kind:         "LOCAL",
			Identity:     dest,
			Destination:  dest,
			Dependencies: []string{},
		})
	}
	return st
}

func TestFileStore_LoadMissing(t *testing.T) {
	s := NewFileStore(fsops.NewRealFS(), clock.NewFakeClock(t0), filepath.Join(t.TempDir(), "package.lock.json"))

	_, err := s.Load()
	assert.Equal(t, os.ErrNotExist, err)
}

func TestFileStore_RecordMergesStages(t *testing.T) {
	clk := clock.NewFakeClock(t0)
	path := filepath.Join(t.TempDir(), "published", "package.lock.json")
	s := NewFileStore(fsops.NewRealFS(), clk, path)

	base := Stage{Name: "00_base", BuildOrder: []string{"/src/zlib-v1"}}
	_, err := s.Record("/install", base)
	assert.NoError(t, err)

	clk.Advance(time.Minute)
	_, err = s.Record("/install", engineStage("/work/core", "/work/app"))
	assert.NoError(t, err)

	// Re-recording a stage replaces it in place.
	clk.Advance(time.Minute)
	lock, err := s.Record("/install", engineStage("/work/app"))
	assert.NoError(t, err)

	loaded, err := s.Load()
	assert.NoError(t, err)
	assert.Equal(t, len(lock.Stages), len(loaded.Stages))
	assert.Equal(t, SchemaVersion, loaded.Version)
	assert.True(t, loaded.GeneratedAt.Equal(t0.Add(2*time.Minute)))
	assert.Equal(t, 2, len(loaded.Stages))
	assert.Equal(t, "00_base", loaded.Stages[0].Name)

	st, ok := loaded.Stage("10_engine")
	assert.True(t, ok)
	assert.Equal(t, []string{"/work/app"}, st.BuildOrder)
}

func TestFileStore_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.lock.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "stages": []}`), 0644))

	_, err := NewFileStore(fsops.NewRealFS(), clock.NewFakeClock(t0), path).Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "version 99")
}

func TestFileStore_SaveFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.lock.json")
	s := NewFileStore(fsops.NewRealFS(), clock.NewFakeClock(t0), path)

	_, err := s.Record("/install", engineStage("/work/core"))
	assert.NoError(t, err)

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Contains(t, text, `"buildIndex": 0`)
	assert.Contains(t, text, `"generatedAt": "2024-05-01T09:00:00Z"`)
	assert.False(t, strings.Contains(text, "manifestSha256"))
}
