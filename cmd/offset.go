package cmd

import (
	"net/url"

	"github.com/spf13/cobra"
)

var offsetCmd = &cobra.Command{
	Use:   "offset <pixels>",
	Short: "Set the overlay's vertical label offset",
	Long:  "Set the overlay's vertical label offset in screen pixels. Negative values move labels up. The portal persists the value before answering, so it survives restarts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := portalClient(cmd).Post("/overlay_offset", url.Values{"offset": {args[0]}})
		if err != nil {
			return err
		}
		return printEnvelope(resp)
	},
}

func init() {
	rootCmd.AddCommand(offsetCmd)
	addAddrFlag(offsetCmd)
}
