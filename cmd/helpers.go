package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/douyin-rboot/droidrun-portal/internal/client"
	"github.com/douyin-rboot/droidrun-portal/internal/output"
)

// defaultPortalAddr is where client commands look for a running portal. The
// server listens on all interfaces by default; clients dial loopback.
const defaultPortalAddr = "127.0.0.1:8080"

func addAddrFlag(c *cobra.Command) {
	c.PersistentFlags().String("addr", defaultPortalAddr, "Address of the running portal")
}

func portalClient(cmd *cobra.Command) *client.Client {
	addr, _ := cmd.Flags().GetString("addr")
	return client.New(addr, client.DefaultTimeout, logger)
}

// printEnvelope renders a portal response. Raw format relays the exact wire
// body, error envelopes included; structured formats print the payload and
// surface error envelopes as command errors.
func printEnvelope(resp *client.Response) error {
	if output.OutputFormat == output.FormatRaw {
		fmt.Println(resp.Body)
		return nil
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return output.Print(resp.Data)
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "droidrun-portal.yaml"
	}
	return filepath.Join(dir, "droidrun-portal", "settings.yaml")
}
