package cli

import (
	"github.com/spf13/cobra"
)

var (
	planStage    string
	planAll      bool
	planLock     bool
	planEnv      []string
	planPackages []string
	planWithDeps bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the build order of a stage without building",
	Long: `Resolve, fetch, and validate the selected stage and print the order its
packages would build in. Nothing is built. The lock file is only written
with --lock.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, stageOptions{
			Stage:    planStage,
			All:      planAll,
			DryRun:   true,
			SkipLock: !planLock,
			Env:      planEnv,
			Packages: planPackages,
			WithDeps: planWithDeps,
		})
	},
}

func init() {
	planCmd.Flags().StringVarP(&planStage, "stage", "s", "", "Stage to plan (env PKGSTAGE_STAGE)")
	planCmd.Flags().BoolVar(&planAll, "all", false, "Plan every stage in order")
	planCmd.Flags().BoolVar(&planLock, "lock", false, "Write the lock file")
	planCmd.Flags().StringArrayVarP(&planEnv, "env", "e", nil, "Extra build variable KEY=VALUE or KEY=[A, B] (repeatable)")
	planCmd.Flags().StringArrayVarP(&planPackages, "package", "p", nil, "Only plan this package (repeatable)")
	planCmd.Flags().BoolVar(&planWithDeps, "with-deps", false, "Also plan the dependencies of --package")
	planCmd.MarkFlagsMutuallyExclusive("stage", "all")
}
