package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdul-hamid-achik/resize.cheap/internal/cli/config"
	"github.com/abdul-hamid-achik/resize.cheap/internal/cli/output"
	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
	"github.com/abdul-hamid-achik/resize.cheap/internal/version"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	quietMode  bool
	noColor    bool
	verbose    bool
	cfg        *config.Config
	printer    *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "resize",
	Short: "resize.cheap CLI - resize, convert and watermark images locally",
	Long: `resize is the command-line interface for resize.cheap.

Resize and convert images on your machine with the same pipeline the
resize.cheap service runs.

Get started:
  resize image photo.jpg -W 800 -H 600 --keep-aspect   # Fit inside 800x600
  resize image ./shots -r --preset og -f webp           # Social cards for a folder
  resize presets                                        # List presets`,
	Version: version.Full(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.InitWithWriter(cmd.ErrOrStderr(), level, "text")

		printer = output.New(
			output.WithJSON(jsonOutput),
			output.WithQuiet(quietMode),
			output.WithNoColor(noColor),
			output.WithOutput(cmd.OutOrStdout()),
			output.WithErrOutput(cmd.ErrOrStderr()),
		)

		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON (for scripting)")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline details to stderr")

	rootCmd.SetVersionTemplate("resize version {{.Version}}\n")

	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
