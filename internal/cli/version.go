package cli

import (
	"github.com/abdul-hamid-achik/resize.cheap/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if printer.IsJSON() {
			return printer.JSON(map[string]string{
				"version":    version.Version,
				"commit":     version.Commit,
				"build_date": version.BuildDate,
			})
		}
		printer.Printf("resize version %s\n", version.Full())
		return nil
	},
}
