// Package build hands ordered packages to the external build system.
//
// pkgstage never compiles anything itself. For each package it prepares a
// build folder and an install prefix, computes the environment the build
// sees, and runs a short list of shell commands in the package's source
// folder. The default commands drive CMake.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/danieljhkim/pkgstage/internal/ctxlog"
	"github.com/danieljhkim/pkgstage/internal/fsops"
)

// ErrBuild is returned when a package's build commands fail.
var ErrBuild = errors.New("build failed")

// DefaultCommands configure, build, and install a CMake project.
var DefaultCommands = []string{
	`cmake -S "$PKGSTAGE_CUR_PACKAGE_SOURCE_FOLDER" -B "$PKGSTAGE_CUR_PACKAGE_BUILD_FOLDER" -DCMAKE_INSTALL_PREFIX="$PKGSTAGE_CUR_PACKAGE_INSTALL_FOLDER"`,
	`cmake --build "$PKGSTAGE_CUR_PACKAGE_BUILD_FOLDER"`,
	`cmake --install "$PKGSTAGE_CUR_PACKAGE_BUILD_FOLDER"`,
}

// Request asks for one package to be built.
type Request struct {
	Stage   string
	Package Folders

	// Env is the complete set of variables added to the process
	// environment: public, private, stage file, and command line.
	Env map[string]string
}

// Dispatcher builds packages.
type Dispatcher interface {
	Build(ctx context.Context, req *Request) error
}

// Error reports a failed build command.
type Error struct {
	Package string
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("build %s: %q: %v", e.Package, e.Command, e.Err)
}

func (e *Error) Unwrap() []error { return []error{ErrBuild, e.Err} }

// CommandDispatcher runs shell commands for each package.
type CommandDispatcher struct {
	fs       fsops.FS
	commands []string
	stdout   io.Writer
	stderr   io.Writer
}

// NewCommandDispatcher creates a dispatcher running commands, or
// DefaultCommands when commands is empty. Command output goes to stdout and
// stderr.
func NewCommandDispatcher(fs fsops.FS, commands []string, stdout, stderr io.Writer) *CommandDispatcher {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	return &CommandDispatcher{fs: fs, commands: commands, stdout: stdout, stderr: stderr}
}

// Commands returns the commands run for every package.
func (d *CommandDispatcher) Commands() []string {
	return d.commands
}

// Build creates the package's build and install folders and runs every
// command in its source folder. The first failing command stops the build.
func (d *CommandDispatcher) Build(ctx context.Context, req *Request) error {
	logger := ctxlog.FromContext(ctx).With("package", req.Package.Name)

	for _, dir := range []string{req.Package.Build, req.Package.Install} {
		if err := d.fs.MkdirAll(dir, 0755); err != nil {
			return &Error{Package: req.Package.Name, Command: "mkdir " + dir, Err: err}
		}
	}

	lookup := func(name string) (string, bool) {
		if v, ok := req.Env[name]; ok {
			return v, true
		}
		return os.LookupEnv(name)
	}
	environ := append(os.Environ(), Environ(req.Env)...)

	for i, raw := range d.commands {
		command := Expand(raw, lookup)
		logger.Info("running build command", "step", fmt.Sprintf("%d/%d", i+1, len(d.commands)), "command", command)

		cmd := shellCommand(ctx, command)
		cmd.Dir = req.Package.Source
		cmd.Env = environ
		cmd.Stdout = d.stdout
		cmd.Stderr = d.stderr
		if err := cmd.Run(); err != nil {
			return &Error{Package: req.Package.Name, Command: command, Err: err}
		}
	}
	return nil
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// FakeDispatcher records build requests without running anything.
type FakeDispatcher struct {
	Requests []*Request

	// Errs fails the build of the named package.
	Errs map[string]error
}

// NewFakeDispatcher creates a new FakeDispatcher.
func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{Errs: make(map[string]error)}
}

func (f *FakeDispatcher) Build(ctx context.Context, req *Request) error {
	f.Requests = append(f.Requests, req)
	if err, ok := f.Errs[req.Package.Name]; ok {
		return &Error{Package: req.Package.Name, Command: "fake", Err: err}
	}
	return nil
}

// Built returns the names of the packages built, in order.
func (f *FakeDispatcher) Built() []string {
	names := make([]string, len(f.Requests))
	for i, r := range f.Requests {
		names[i] = r.Package.Name
	}
	return names
}
