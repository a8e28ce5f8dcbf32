package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

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

// loadConfig resolves the configuration from global flags, the environment,
// and the stage file. stage overrides PKGSTAGE_STAGE when non-empty.
func loadConfig(stage string) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return config.Load(fsops.NewRealFS(), cwd, config.Overrides{
		StageFile:   stageFileFlag,
		Stage:       stage,
		SourceRoot:  srcRootFlag,
		BuildRoot:   buildRootFlag,
		InstallRoot: installFlag,
		LockFile:    lockFileFlag,
	})
}

// newEngine creates a new engine with real implementations of all dependencies.
// Build tool output goes to stdout and stderr.
func newEngine(cfg *config.Config, stdout, stderr io.Writer) (*engine.Engine, error) {
	fs := fsops.NewRealFS()

	if err := cfg.Paths.EnsureDirectories(fs); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	var commands []string
	if cfg.Stages != nil {
		commands = cfg.Stages.Commands
	}

	clk := &clock.RealClock{}
	dispatcher := build.NewCommandDispatcher(fs, commands, stdout, stderr)
	locks := lockfile.NewFileStore(fs, clk, cfg.Paths.LockFile)

	return engine.New(registry.New(), gitx.NewGitSyncer(), dispatcher, locks, fs, hash.NewSHA256Hasher(), clk, cfg.Paths), nil
}

// parseEnvFlags turns repeated KEY=VALUE flags into a map of values. A key
// given more than once, or written as KEY=[a, b], collects several values.
func parseEnvFlags(values []string) (map[string][]string, error) {
	env := make(map[string][]string, len(values))
	for _, kv := range values {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q: want KEY=VALUE or KEY=[A, B]", kv)
		}
		trimmed := strings.TrimSpace(value)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			for _, v := range strings.Split(trimmed[1:len(trimmed)-1], ",") {
				if v = strings.TrimSpace(v); v != "" {
					env[key] = append(env[key], v)
				}
			}
			continue
		}
		env[key] = append(env[key], value)
	}
	return env, nil
}

// splitEnv separates variables with one value from those that form a build
// matrix. matrix is nil when every variable has a single value.
func splitEnv(values map[string][]string) (fixed map[string]string, matrix []map[string]string) {
	fixed = make(map[string]string, len(values))
	multi := make(map[string][]string)
	for k, v := range values {
		switch len(v) {
		case 0:
		case 1:
			fixed[k] = v[0]
		default:
			multi[k] = v
		}
	}
	if len(multi) > 0 {
		matrix = build.Matrix(multi)
	}
	return fixed, matrix
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON writes a value as indented JSON.
func outputJSON(w io.Writer, v interface{}) error {
	out, err := formatJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// ReportError prints err to stderr in the CLI's error style.
func ReportError(err error) {
	_, _ = fmt.Fprintln(os.Stderr, formatError(err))
}
