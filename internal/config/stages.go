package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/pkgstage/internal/fsops"
)

// DefaultStageFile is the stage file looked up in the working directory.
const DefaultStageFile = "package.stages.yaml"

// StageFileDirVar expands to the directory holding the stage file.
const StageFileDirVar = "STAGE_FILE_DIR"

// StageFile is the YAML document listing a project's build stages.
//
//	source_root: ${STAGE_FILE_DIR}/_packages/src
//	environment:
//	  CMAKE_BUILD_TYPE: Release
//	stages:
//	  - name: 00_build_env
//	    packages:
//	      - "REMOTE: https://host/Org/Arieo-BuildEnv.git@main"
//	  - name: 10_engine
//	    packages:
//	      - "LOCAL: ${STAGE_FILE_DIR}/engine"
type StageFile struct {
	SourceRoot  string            `yaml:"source_root"`
	BuildRoot   string            `yaml:"build_root"`
	InstallRoot string            `yaml:"install_root"`
	LockFile    string            `yaml:"lock_file"`
	Environment map[string]string `yaml:"environment"`

	// Commands replace the default CMake configure/build/install sequence.
	Commands []string `yaml:"commands"`

	Stages []Stage `yaml:"stages"`

	// Path is where the file was loaded from.
	Path string `yaml:"-"`
}

// Stage is one ordered group of package references.
type Stage struct {
	Name     string   `yaml:"name"`
	Packages []string `yaml:"packages"`
}

// ParseStageFile decodes and validates a stage file payload. path anchors
// ${STAGE_FILE_DIR} and may be empty for in-memory documents.
func ParseStageFile(data []byte, path string) (*StageFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("stage file is empty")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sf StageFile
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode stage file: %w", err)
	}
	sf.Path = path
	if err := sf.Validate(); err != nil {
		return nil, err
	}
	return &sf, nil
}

// LoadStageFile reads and parses the stage file at path.
func LoadStageFile(fs fsops.FS, path string) (*StageFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	data, err := fs.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read stage file: %w", err)
	}
	sf, err := ParseStageFile(data, abs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	return sf, nil
}

// Validate checks that the file declares at least one stage and that stage
// names are non-empty and unique. All problems are reported together.
func (sf *StageFile) Validate() error {
	if len(sf.Stages) == 0 {
		return fmt.Errorf("stage file declares no stages")
	}

	var errs error
	seen := make(map[string]int, len(sf.Stages))
	for i, st := range sf.Stages {
		name := strings.TrimSpace(st.Name)
		if name == "" {
			errs = multierr.Append(errs, fmt.Errorf("stages[%d]: name is required", i))
			continue
		}
		if prev, dup := seen[name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("stages[%d]: name %q already used by stages[%d]", i, name, prev))
			continue
		}
		seen[name] = i
	}
	return errs
}

// Dir returns the directory holding the stage file, or "" when unknown.
func (sf *StageFile) Dir() string {
	if sf.Path == "" {
		return ""
	}
	return filepath.Dir(sf.Path)
}

// Names returns the stage names in declaration order.
func (sf *StageFile) Names() []string {
	names := make([]string, len(sf.Stages))
	for i, st := range sf.Stages {
		names[i] = st.Name
	}
	return names
}

// Index returns the position of the named stage, or -1.
func (sf *StageFile) Index(name string) int {
	for i, st := range sf.Stages {
		if st.Name == name {
			return i
		}
	}
	return -1
}

// Split returns the stages declared before name and the named stage itself.
func (sf *StageFile) Split(name string) ([]Stage, Stage, error) {
	i := sf.Index(name)
	if i < 0 {
		return nil, Stage{}, fmt.Errorf("unknown stage %q (have: %s)", name, strings.Join(sf.Names(), ", "))
	}
	return sf.Stages[:i], sf.Stages[i], nil
}

// References returns the stage's package lines with variables expanded.
func (sf *StageFile) References(st Stage) []string {
	out := make([]string, 0, len(st.Packages))
	for _, raw := range st.Packages {
		out = append(out, sf.Expand(raw))
	}
	return out
}

// Expand substitutes ${STAGE_FILE_DIR} and environment variables in value.
func (sf *StageFile) Expand(value string) string {
	return Expand(value, sf.Dir())
}

// Expand substitutes ${STAGE_FILE_DIR} with dir and other $VAR / ${VAR}
// references with the process environment. Unknown variables expand to "".
func Expand(value, dir string) string {
	if !strings.Contains(value, "$") {
		return value
	}
	return os.Expand(value, func(name string) string {
		if name == StageFileDirVar {
			return dir
		}
		return os.Getenv(name)
	})
}
