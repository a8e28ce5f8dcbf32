package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/pkgstage/internal/config"
)

type stageSummary struct {
	Name     string   `json:"name"`
	Selected bool     `json:"selected"`
	Packages []string `json:"packages"`
}

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the stages declared in the stage file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		if cfg.Stages == nil {
			return fmt.Errorf("no stage file found; create %s or pass --stage-file", config.DefaultStageFile)
		}
		sf := cfg.Stages

		summaries := make([]stageSummary, 0, len(sf.Stages))
		for _, st := range sf.Stages {
			summaries = append(summaries, stageSummary{
				Name:     st.Name,
				Selected: st.Name == cfg.Stage,
				Packages: sf.References(st),
			})
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), summaries)
		}

		PrintSection(fmt.Sprintf("Stages in %s", sf.Path))
		rows := make([][]string, 0, len(summaries))
		for i, s := range summaries {
			name := s.Name
			if s.Selected {
				name += " *"
			}
			rows = append(rows, []string{strconv.Itoa(i + 1), name, strconv.Itoa(len(s.Packages))})
		}
		PrintTable([]string{"#", "STAGE", "PACKAGES"}, rows)
		return nil
	},
}
