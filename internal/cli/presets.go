package cli

import (
	"fmt"
	"sort"

	"github.com/abdul-hamid-achik/resize.cheap/internal/cli/output"
	"github.com/abdul-hamid-achik/resize.cheap/internal/presets"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available presets",
	Long: `List the built-in presets and any presets defined in the config file.

User presets with the same name as a built-in one take precedence.`,
	RunE: runPresets,
}

type presetRow struct {
	presets.Preset
	Source string `json:"source"`
}

func allPresets() []presetRow {
	rows := make([]presetRow, 0, len(presets.All)+len(cfg.Presets))
	for _, p := range presets.List() {
		if _, overridden := cfg.Presets[p.Name]; overridden {
			continue
		}
		rows = append(rows, presetRow{Preset: p, Source: "builtin"})
	}
	for _, p := range cfg.Presets {
		rows = append(rows, presetRow{Preset: p, Source: "config"})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func runPresets(cmd *cobra.Command, args []string) error {
	rows := allPresets()

	if printer.IsJSON() {
		return printer.JSON(map[string]any{"presets": rows})
	}

	table := output.NewTableWriter(printer.Out(), []string{"NAME", "SIZE", "FIT", "QUALITY", "SOURCE"}, printer.IsQuiet())
	for _, p := range rows {
		table.Append([]string{
			p.Name,
			presetSize(p.Preset),
			presetFit(p.Preset),
			fmt.Sprintf("%.2f", p.Quality),
			p.Source,
		})
	}
	table.Render()
	return nil
}

func presetSize(p presets.Preset) string {
	switch {
	case p.Height >= presets.Unbounded:
		return fmt.Sprintf("%dw", p.Width)
	case p.Width >= presets.Unbounded:
		return fmt.Sprintf("%dh", p.Height)
	default:
		return fmt.Sprintf("%dx%d", p.Width, p.Height)
	}
}

func presetFit(p presets.Preset) string {
	if p.KeepAspectRatio {
		return "contain"
	}
	return "exact"
}
