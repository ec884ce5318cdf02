// Package output renders CLI results to stdout in the selected format.
package output

import (
	"fmt"
	"os"
)

// Format is the rendering applied to command results.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatRaw  Format = "raw"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat = FormatYAML

// PrettyOutput enables indentation for JSON output.
var PrettyOutput bool

// IsOutputPiped reports whether stdout is a pipe rather than a terminal.
// The root command defaults to compact JSON in that case.
func IsOutputPiped() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}

// Print serializes v to stdout in the current output format. Raw is handled
// by the commands themselves since it prints wire bytes, not a structure.
func Print(v any) error {
	switch OutputFormat {
	case FormatJSON:
		if PrettyOutput {
			return PrintPrettyJSON(v)
		}
		return PrintJSON(v)
	case FormatYAML:
		return PrintYAML(v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}
