package cmd

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var keyboardCmd = &cobra.Command{
	Use:   "keyboard",
	Short: "Drive the portal keyboard",
}

var keyboardInputCmd = &cobra.Command{
	Use:   "input <text>",
	Short: "Type text into the focused field",
	Long:  "Type text into the focused field. The text travels base64-encoded so any characters survive the wire; --plain sends it verbatim instead.",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyboardInput,
}

var keyboardClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the focused field",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := portalClient(cmd).Post("/keyboard/clear", url.Values{})
		if err != nil {
			return err
		}
		return printEnvelope(resp)
	},
}

var keyboardKeyCmd = &cobra.Command{
	Use:   "key <code>",
	Short: "Send a single key event",
	Long:  "Send a single key event by numeric code, e.g. 66 for enter or 67 for delete.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := portalClient(cmd).Post("/keyboard/key", url.Values{"key_code": {args[0]}})
		if err != nil {
			return err
		}
		return printEnvelope(resp)
	},
}

func init() {
	rootCmd.AddCommand(keyboardCmd)
	addAddrFlag(keyboardCmd)
	keyboardCmd.AddCommand(keyboardInputCmd, keyboardClearCmd, keyboardKeyCmd)
	keyboardInputCmd.Flags().Bool("plain", false, "Send the text unencoded")
}

func runKeyboardInput(cmd *cobra.Command, args []string) error {
	plain, _ := cmd.Flags().GetBool("plain")

	form := url.Values{}
	if plain {
		form.Set("text", args[0])
	} else {
		form.Set("base64_text", base64.StdEncoding.EncodeToString([]byte(args[0])))
	}
	resp, err := portalClient(cmd).Post("/keyboard/input", form)
	if err != nil {
		return fmt.Errorf("send input: %w", err)
	}
	return printEnvelope(resp)
}
