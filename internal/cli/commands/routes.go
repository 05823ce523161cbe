package commands

import (
	"github.com/spf13/cobra"

	"github.com/gantry-web/gantry/internal/cli/ui"
	"github.com/gantry-web/gantry/internal/config"
	"github.com/gantry-web/gantry/internal/demo"
	"github.com/gantry-web/gantry/internal/web/auth"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	var configDir string
	var noColor bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Build the application and list its route table",
		Long: `Runs the build phase without serving and prints the resulting route
table. Build diagnostics are reported exactly as serve would report
them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configDir)
			if err != nil {
				return err
			}

			// routes are introspected without touching the database,
			// so no pool is wired here
			secret := cfg.Auth.Secret
			if secret == "" {
				secret = "introspection"
			}
			table, err := demo.Build(nil, demo.Options{
				Auth: auth.NewService(secret, cfg.Auth.TokenTTL),
			})
			if err != nil {
				return err
			}

			t := ui.NewTable(cmd.OutOrStdout(), "METHOD", "PATTERN")
			if noColor {
				t.NoColor()
			}
			for _, e := range table.Routes() {
				t.AddRow(e.Method, e.Pattern)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "c", ".", "directory containing gantry.yml")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
