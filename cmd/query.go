package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read from a running portal",
}

var queryPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Health check",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := portalClient(cmd).Get("/ping")
		if err != nil {
			return err
		}
		return printEnvelope(resp)
	},
}

var queryTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Fetch the indexed element tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := portalClient(cmd).Get("/a11y_tree")
		if err != nil {
			return err
		}
		return printEnvelope(resp)
	},
}

var queryPhoneCmd = &cobra.Command{
	Use:   "phone",
	Short: "Fetch foreground app, keyboard visibility and focused element",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := portalClient(cmd).Get("/phone_state")
		if err != nil {
			return err
		}
		return printEnvelope(resp)
	},
}

var queryStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Fetch tree and device state in one payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := portalClient(cmd).Get("/state")
		if err != nil {
			return err
		}
		return printEnvelope(resp)
	},
}

var queryScreenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the screen",
	Long:  "Capture the screen as PNG. Prints the base64 payload unless --out names a file to write the decoded image to.",
	RunE:  runQueryScreenshot,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addAddrFlag(queryCmd)
	queryCmd.AddCommand(queryPingCmd, queryTreeCmd, queryPhoneCmd, queryStateCmd, queryScreenshotCmd)
	queryScreenshotCmd.Flags().String("out", "", "Write the decoded PNG to this file")
	queryScreenshotCmd.Flags().Bool("show-overlay", false, "Keep the element overlay visible in the capture")
}

func runQueryScreenshot(cmd *cobra.Command, args []string) error {
	out, _ := cmd.Flags().GetString("out")
	showOverlay, _ := cmd.Flags().GetBool("show-overlay")

	path := "/screenshot"
	if showOverlay {
		path = "/screenshot?hideOverlay=false"
	}
	resp, err := portalClient(cmd).Get(path)
	if err != nil {
		return err
	}
	if out == "" {
		return printEnvelope(resp)
	}
	if err := resp.Err(); err != nil {
		return err
	}
	payload, ok := resp.Data.(string)
	if !ok {
		return fmt.Errorf("unexpected screenshot payload %T", resp.Data)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode screenshot: %w", err)
	}
	if err := os.WriteFile(out, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(raw))
	return nil
}
