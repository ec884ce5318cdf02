package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/output"
	"github.com/douyin-rboot/droidrun-portal/internal/version"
)

// logger is the process root logger, configured from the environment before
// any command body runs. Subcommands derive scoped loggers from it.
var logger pslog.Logger

var rootCmd = &cobra.Command{
	Use:   "droidrun-portal",
	Short: "Remote introspection and control bridge for device UIs",
	Long: `droidrun-portal exposes a device's UI over a tiny socket protocol: agents
read an indexed element tree, device state and screenshots, and drive the
keyboard and overlay through the same routes. The serve command runs the
portal; query, keyboard and offset talk to a running one; bridge mirrors
every route as MCP tools.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "", "Output format: yaml, json, raw")
	rootCmd.PersistentFlags().Bool("pretty", false, "Indent JSON output")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logger = pslog.LoggerFromEnv(
			pslog.WithEnvWriter(os.Stderr),
			pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
		)

		format, _ := rootCmd.PersistentFlags().GetString("format")

		// Default format: terminals get yaml, pipes get compact json.
		if format == "" {
			if output.IsOutputPiped() {
				format = "json"
			} else {
				format = "yaml"
			}
		}

		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		case "raw":
			output.OutputFormat = output.FormatRaw
		default:
			return fmt.Errorf("unsupported format: %s (use yaml, json, or raw)", format)
		}

		pretty, _ := rootCmd.PersistentFlags().GetBool("pretty")
		output.PrettyOutput = pretty
		return nil
	}
}
