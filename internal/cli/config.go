package cli

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/resize.cheap/internal/cli/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and manage the resize CLI configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file path",
	RunE:  runConfigPath,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if printer.IsJSON() {
		return printer.JSON(cfg)
	}

	printer.Section("Configuration")
	printer.KeyValue("Format", cfg.Format)
	printer.KeyValue("Quality", fmt.Sprintf("%.2f", cfg.Quality))
	printer.KeyValue("Parallel", fmt.Sprintf("%d", cfg.Parallel))
	printer.KeyValue("Watermark", fmt.Sprintf("%v", cfg.Watermark))
	if cfg.OutputDir != "" {
		printer.KeyValue("Output Dir", cfg.OutputDir)
	}

	if len(cfg.Presets) > 0 {
		printer.Section("Custom Presets")
		for name, p := range cfg.Presets {
			printer.Printf("  %s: %s (%s)\n", name, presetSize(p), presetFit(p))
		}
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.Init(configInitForce)
	if errors.Is(err, config.ErrExists) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if printer.IsJSON() {
		return printer.JSON(map[string]string{"path": path})
	}
	printer.Success("Wrote %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}

	if printer.IsJSON() {
		return printer.JSON(map[string]string{"path": path})
	}

	printer.Println(path)
	return nil
}
