package engine

// StageRequest asks the engine to run one stage.
type StageRequest struct {
	// Stage names the stage, used in reports and the lock file.
	Stage string

	// References are the stage's package lines, in order.
	References []string

	// DryRun resolves, validates, and orders without dispatching builds.
	DryRun bool

	// SkipLock leaves the lock file untouched.
	SkipLock bool

	// Env holds extra variables for every build in the stage, from the stage
	// file and the command line. They override the computed package variables.
	Env map[string]string

	// Packages limits dispatch to the packages with these names, matched
	// against the repository or directory name and the manifest NAME. Empty
	// builds every package. Resolution, validation, and the lock file still
	// cover the whole stage.
	Packages []string

	// WithDependencies adds the in-stage dependencies of Packages, recursively.
	WithDependencies bool

	// Matrix lists variable combinations. The selected packages are built
	// once per entry, with the entry merged over Env. Empty means one pass.
	Matrix []map[string]string
}

// RegisterRequest asks the engine to claim a stage's identities without
// syncing, reading manifests, or building.
type RegisterRequest struct {
	Stage      string
	References []string
}
