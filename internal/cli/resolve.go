package cli

import (
	"github.com/spf13/cobra"

	"github.com/danieljhkim/pkgstage/internal/config"
	"github.com/danieljhkim/pkgstage/internal/link"
)

// resolvedReference is the --json form of a resolved reference.
type resolvedReference struct {
	Kind         string `json:"kind"`
	Identity     string `json:"identity"`
	BaseIdentity string `json:"baseIdentity"`
	Tag          string `json:"tag,omitempty"`
	Name         string `json:"name"`
	Destination  string `json:"destination"`
	Explicit     bool   `json:"explicitDestination"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <reference>",
	Short: "Parse a package reference and show where it resolves",
	Long: `Parse a single package reference and print its identity and destination
using the configured roots. Nothing is fetched or registered.

Example:
  pkgstage resolve "REMOTE: https://host/Org/Repo.git@v1.2.0"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig("")
		if err != nil {
			return err
		}
		ref, err := link.Parse(config.Expand(args[0], cfg.Paths.Base))
		if err != nil {
			return err
		}
		res, err := link.Resolve(ref, link.Roots{Source: cfg.Paths.SourceRoot, Base: cfg.Paths.Base})
		if err != nil {
			return err
		}

		out := resolvedReference{
			Kind:         string(ref.Kind()),
			Identity:     res.Identity(),
			BaseIdentity: res.BaseIdentity,
			Tag:          res.Tag,
			Name:         res.Name(),
			Destination:  res.Destination,
			Explicit:     ref.ExplicitDestination() != "",
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), out)
		}

		PrintSection("Reference")
		PrintLabelValue("Kind", out.Kind)
		PrintLabelValue("Identity", out.Identity)
		PrintLabelValue("Name", out.Name)
		if out.Tag != "" {
			PrintLabelValue("Tag", out.Tag)
		}
		PrintLabelValue("Destination", out.Destination)
		return nil
	},
}
