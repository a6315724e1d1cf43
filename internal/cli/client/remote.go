package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RemoteCmd manages the saved jeeinsightd connection.
func RemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the saved server connection",
	}
	cmd.AddCommand(remoteSetCmd())
	cmd.AddCommand(remoteShowCmd())
	cmd.AddCommand(remoteClearCmd())
	return cmd
}

func remoteSetCmd() *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "set <api-url>",
		Short: "Save the server URL and optional API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := SaveRemote(Remote{URL: args[0], APIKey: apiKey})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved remote to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key sent as a bearer token")
	return cmd
}

func remoteShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective server connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")

			res, err := Resolve(flagKey, flagURL)
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.json {
				return p.JSON(map[string]any{
					"api_url":    res.URL,
					"url_source": res.URLSource,
					"has_key":    res.APIKey != "",
					"key_source": res.KeySource,
				})
			}
			fmt.Fprintf(p.out, "api_url: %s (%s)\n", res.URL, res.URLSource)
			if res.APIKey != "" {
				fmt.Fprintf(p.out, "api_key: set (%s)\n", res.KeySource)
			} else {
				fmt.Fprintln(p.out, "api_key: not set")
			}
			return nil
		},
	}
}

func remoteClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved server connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ClearRemote(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed saved remote")
			return nil
		},
	}
}
