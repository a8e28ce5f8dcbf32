package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/pkgstage/internal/build"
	"github.com/danieljhkim/pkgstage/internal/config"
	"github.com/danieljhkim/pkgstage/internal/ctxlog"
	"github.com/danieljhkim/pkgstage/internal/engine"
)

var (
	runStage    string
	runAll      bool
	runDryRun   bool
	runNoLock   bool
	runEnv      []string
	runPackages []string
	runWithDeps bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, order, and build the packages of a stage",
	Long: `Run the selected stage: fetch remote packages, read their manifests,
check every dependency, and build the packages in dependency order.

Stages declared before the selected one are registered but not built, so
their packages are available as dependencies. Use --all to build every stage
in order.

--package limits the build to the named packages (add --with-deps for their
dependencies in the same stage). An --env variable given several values, as
KEY=[a, b] or by repeating it, builds every combination of values.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, stageOptions{
			Stage:    runStage,
			All:      runAll,
			DryRun:   runDryRun,
			SkipLock: runNoLock,
			Env:      runEnv,
		})
	},
}

func init() {
	runCmd.Flags().StringVarP(&runStage, "stage", "s", "", "Stage to run (env PKGSTAGE_STAGE)")
	runCmd.Flags().BoolVar(&runAll, "all", false, "Run every stage in order")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Resolve and order without building")
	runCmd.Flags().BoolVar(&runNoLock, "no-lock", false, "Do not write the lock file")
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "Extra build variable KEY=VALUE or KEY=[A, B] (repeatable)")
	runCmd.Flags().StringArrayVarP(&runPackages, "package", "p", nil, "Only build this package (repeatable)")
	runCmd.Flags().BoolVar(&runWithDeps, "with-deps", false, "Also build the dependencies of --package")
	runCmd.MarkFlagsMutuallyExclusive("stage", "all")
}

// stageOptions are the inputs shared by run and plan.
type stageOptions struct {
	Stage    string
	All      bool
	DryRun   bool
	SkipLock bool
	Env      []string
	Packages []string
	WithDeps bool
}

// stageReport is the --json form of a stage result.
type stageReport struct {
	Stage      string          `json:"stage"`
	DryRun     bool            `json:"dryRun"`
	Matrix     int             `json:"matrix,omitempty"`
	Packages   []packageReport `json:"packages"`
	Warnings   []string        `json:"warnings,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"durationMs"`
}

type packageReport struct {
	Name         string   `json:"name"`
	Identity     string   `json:"identity"`
	Kind         string   `json:"kind"`
	Tag          string   `json:"tag,omitempty"`
	Destination  string   `json:"destination"`
	Sync         string   `json:"sync,omitempty"`
	Dependencies []string `json:"dependencies"`
	Selected     bool     `json:"selected"`
	Built        bool     `json:"built"`
}

func runStages(cmd *cobra.Command, opts stageOptions) error {
	values, err := parseEnvFlags(opts.Env)
	if err != nil {
		return err
	}
	if opts.WithDeps && len(opts.Packages) == 0 {
		return fmt.Errorf("--with-deps requires --package")
	}
	extra, matrix := splitEnv(values)

	cfg, err := loadConfig(opts.Stage)
	if err != nil {
		return err
	}
	if cfg.Stages == nil {
		return fmt.Errorf("no stage file found; create %s or pass --stage-file", config.DefaultStageFile)
	}
	sf := cfg.Stages

	prior, selected, err := selectStages(sf, cfg.Stage, opts.All)
	if err != nil {
		return err
	}

	// Build tools write to stdout unless it is reserved for JSON.
	buildOut := cmd.OutOrStdout()
	if jsonOutput {
		buildOut = cmd.ErrOrStderr()
	}
	eng, err := newEngine(cfg, buildOut, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := ctxlog.WithLogger(cmd.Context(), commandLogger())
	env := build.Merge(stageEnvironment(sf), extra)

	for _, st := range prior {
		if err := eng.RegisterStage(ctx, &engine.RegisterRequest{Stage: st.Name, References: sf.References(st)}); err != nil {
			return err
		}
	}

	reports := make([]stageReport, 0, len(selected))
	var results []*engine.StageResult
	var runErr error
	for _, st := range selected {
		res, err := eng.RunStage(ctx, &engine.StageRequest{
			Stage:            st.Name,
			References:       sf.References(st),
			DryRun:           opts.DryRun,
			SkipLock:         opts.SkipLock,
			Env:              env,
			Packages:         opts.Packages,
			WithDependencies: opts.WithDeps,
			Matrix:           matrix,
		})
		if res != nil {
			results = append(results, res)
			report := newStageReport(res, opts.DryRun, err)
			report.Matrix = len(matrix)
			reports = append(reports, report)
			if !jsonOutput {
				printStageResult(res, opts.DryRun, err)
			}
		}
		if err != nil {
			runErr = err
			break
		}
	}

	if jsonOutput {
		if err := outputJSON(cmd.OutOrStdout(), reports); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	return checkPackageNames(opts.Packages, results)
}

// checkPackageNames fails when a --package name matched no package in any
// stage that ran.
func checkPackageNames(names []string, results []*engine.StageResult) error {
	var unknown []string
	for _, name := range names {
		found := false
		for _, res := range results {
			for _, p := range res.Packages {
				if p.Matches(name) {
					found = true
				}
			}
		}
		if !found {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("no package named %s in the selected stages", strings.Join(unknown, ", "))
	}
	return nil
}

// selectStages returns the stages to register and the stages to run.
func selectStages(sf *config.StageFile, name string, all bool) (prior, selected []config.Stage, err error) {
	if all {
		return nil, sf.Stages, nil
	}
	if name == "" {
		if len(sf.Stages) == 1 {
			return nil, sf.Stages, nil
		}
		return nil, nil, fmt.Errorf("no stage selected; use --stage, --all, or %s (have: %s)",
			config.EnvStage, strings.Join(sf.Names(), ", "))
	}
	before, st, err := sf.Split(name)
	if err != nil {
		return nil, nil, err
	}
	return before, []config.Stage{st}, nil
}

// stageEnvironment expands the stage file's environment block.
func stageEnvironment(sf *config.StageFile) map[string]string {
	env := make(map[string]string, len(sf.Environment))
	for k, v := range sf.Environment {
		env[k] = sf.Expand(v)
	}
	return env
}

func newStageReport(res *engine.StageResult, dryRun bool, err error) stageReport {
	built := make(map[string]bool, len(res.Dispatched))
	for _, dest := range res.Dispatched {
		built[dest] = true
	}
	selected := make(map[string]bool, len(res.Selected))
	for _, dest := range res.Selected {
		selected[dest] = true
	}

	report := stageReport{
		Stage:      res.Stage,
		DryRun:     dryRun,
		Packages:   make([]packageReport, 0, len(res.Order)),
		DurationMS: res.Duration.Milliseconds(),
	}
	for _, dest := range res.Order {
		p, ok := res.Package(dest)
		if !ok {
			continue
		}
		pr := packageReport{
			Name:         p.Name(),
			Identity:     p.Resolved.Identity(),
			Kind:         string(p.Resolved.Ref.Kind()),
			Tag:          p.Resolved.Tag,
			Destination:  dest,
			Dependencies: p.DependencyDestinations,
			Selected:     selected[dest],
			Built:        built[dest],
		}
		if pr.Dependencies == nil {
			pr.Dependencies = []string{}
		}
		if p.Sync != nil {
			pr.Sync = string(p.Sync.Action)
		}
		report.Packages = append(report.Packages, pr)
	}
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}
	if err != nil {
		report.Error = err.Error()
	}
	return report
}

func printStageResult(res *engine.StageResult, dryRun bool, err error) {
	PrintSection(fmt.Sprintf("Stage %s", res.Stage))

	for _, w := range res.Warnings {
		PrintWarning(w.Error())
	}

	if len(res.Order) == 0 {
		PrintEmptyState("No packages in this stage")
		return
	}

	rows := make([][]string, 0, len(res.Order))
	for i, dest := range res.Order {
		p, ok := res.Package(dest)
		if !ok {
			continue
		}
		tag := p.Resolved.Tag
		if tag == "" {
			tag = "-"
		}
		source := "local"
		if p.Sync != nil {
			source = string(p.Sync.Action)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), p.Name(), tag, source, dest})
	}
	PrintTable([]string{"#", "PACKAGE", "TAG", "SOURCE", "DESTINATION"}, rows)
	fmt.Println()

	switch {
	case err != nil:
		PrintWarning(fmt.Sprintf("Stopped after building %s", PrintCount(len(res.Dispatched), "package", "packages")))
		return
	case dryRun:
		PrintInfo(fmt.Sprintf("Dry run: would build %s", PrintCount(len(res.Selected), "package", "packages")))
		return
	}
	PrintSuccess(fmt.Sprintf("Built %s in %s",
		PrintCount(len(res.Dispatched), "package", "packages"), res.Duration.Round(time.Millisecond)))
}
