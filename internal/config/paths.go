// Package config resolves where pkgstage reads and writes.
//
// Every setting is taken from the first source that provides it: command-line
// flag, environment variable, stage file, built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/pkgstage/internal/fsops"
)

// Environment variables read by pkgstage.
const (
	EnvSourceRoot  = "PKGSTAGE_SRC_ROOT"
	EnvBuildRoot   = "PKGSTAGE_BUILD_ROOT"
	EnvInstallRoot = "PKGSTAGE_INSTALL_ROOT"
	EnvStage       = "PKGSTAGE_STAGE"
	EnvStageFile   = "PKGSTAGE_STAGE_FILE"
	EnvLockFile    = "PKGSTAGE_LOCK_FILE"
	EnvLogLevel    = "PKGSTAGE_LOG_LEVEL"
	EnvLogFormat   = "PKGSTAGE_LOG_FORMAT"
)

// Built-in defaults, relative to the base directory.
const (
	defaultSourceRoot  = "_packages/src"
	defaultBuildRoot   = "_build"
	defaultInstallRoot = "_packages/published"
	defaultLockFile    = "package.lock.json"
)

// Paths contains the directories and files a run uses.
type Paths struct {
	// Base anchors relative package paths: the stage file's directory or the
	// working directory.
	Base string

	// SourceRoot is where remote packages are checked out.
	SourceRoot string

	// BuildRoot holds one build folder per package.
	BuildRoot string

	// InstallRoot holds one install prefix per package.
	InstallRoot string

	// LockFile is the resolution record written after ordering, by default
	// inside InstallRoot.
	LockFile string
}

// EnsureDirectories creates the source, build, and install roots.
func (p *Paths) EnsureDirectories(fs fsops.FS) error {
	for _, dir := range []string{p.SourceRoot, p.BuildRoot, p.InstallRoot} {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Overrides are values given on the command line. Empty fields fall through.
type Overrides struct {
	StageFile   string
	Stage       string
	SourceRoot  string
	BuildRoot   string
	InstallRoot string
	LockFile    string
}

// Config is the resolved configuration for one invocation.
type Config struct {
	Paths Paths

	// Stage is the selected stage name, possibly empty.
	Stage string

	// Stages is nil when no stage file was found.
	Stages *StageFile
}

// Load resolves the configuration.
//
// The stage file is optional only when it was not asked for: a missing
// default file is ignored, a missing file named by flag or environment is an
// error.
func Load(fs fsops.FS, cwd string, o Overrides) (*Config, error) {
	stagePath, explicit := first(o.StageFile, os.Getenv(EnvStageFile)), true
	if stagePath == "" {
		stagePath, explicit = DefaultStageFile, false
	}
	if !filepath.IsAbs(stagePath) {
		stagePath = filepath.Join(cwd, stagePath)
	}

	cfg := &Config{Paths: Paths{Base: cwd}}

	exists, err := fs.Exists(stagePath)
	if err != nil {
		return nil, fmt.Errorf("stat stage file: %w", err)
	}
	switch {
	case exists:
		sf, err := LoadStageFile(fs, stagePath)
		if err != nil {
			return nil, err
		}
		cfg.Stages = sf
		cfg.Paths.Base = sf.Dir()
	case explicit:
		return nil, fmt.Errorf("stage file %s not found", stagePath)
	}

	var fromFile StageFile
	if cfg.Stages != nil {
		fromFile = *cfg.Stages
	}
	base := cfg.Paths.Base

	cfg.Paths.SourceRoot = resolvePath(cwd, base, o.SourceRoot, EnvSourceRoot, fromFile.SourceRoot, defaultSourceRoot)
	cfg.Paths.BuildRoot = resolvePath(cwd, base, o.BuildRoot, EnvBuildRoot, fromFile.BuildRoot, defaultBuildRoot)
	cfg.Paths.InstallRoot = resolvePath(cwd, base, o.InstallRoot, EnvInstallRoot, fromFile.InstallRoot, defaultInstallRoot)
	cfg.Paths.LockFile = resolvePath(cwd, base, o.LockFile, EnvLockFile, fromFile.LockFile,
		filepath.Join(cfg.Paths.InstallRoot, defaultLockFile))
	cfg.Stage = first(o.Stage, os.Getenv(EnvStage))
	return cfg, nil
}

// resolvePath picks flag > env > file > default and makes the result
// absolute. Flag and environment values are relative to the working
// directory; stage file values and defaults to base.
func resolvePath(cwd, base, flag, env, file, def string) string {
	v, anchor := first(flag, os.Getenv(env)), cwd
	if v == "" {
		v, anchor = first(file, def), base
	}
	v = Expand(v, base)
	if !filepath.IsAbs(v) {
		v = filepath.Join(anchor, v)
	}
	return filepath.Clean(v)
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
