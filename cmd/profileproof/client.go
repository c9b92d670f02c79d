package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/layer-3/profileproof"
)

func addClientCommands(root *cobra.Command) {
	var (
		serverURL = envOr("PROFILEPROOF_URL", "http://localhost:9000")
		timeout   = 30 * time.Second
	)

	root.PersistentFlags().StringVar(&serverURL, "server", serverURL, "profileproof server URL (env PROFILEPROOF_URL)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "request timeout")

	newClient := func() *profileproof.Client {
		return profileproof.NewClient(serverURL, &http.Client{Timeout: timeout})
	}

	root.AddCommand(&cobra.Command{
		Use:   "issue <username>",
		Short: "Issue (or fetch the live) hash for a username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := newClient().GenerateHash(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"hash": hash})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "validate <username>",
		Short: "Check a username's profile for its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().ValidateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "check-proof <proof>",
		Short: "Verify an ownership proof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := newClient().CheckProof(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		},
	})
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
