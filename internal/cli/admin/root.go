// Package admin holds the jeeinsightd commands: the API server and
// schema migrations.
package admin

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/jeeinsight/internal/cli"
)

// NewRootCmd builds the jeeinsightd command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "jeeinsightd",
		Short:         "jeeinsight API server",
		Long:          "jeeinsight daemon for serving the analysis API, running queued summary jobs and managing the database schema",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(root)
	root.AddCommand(ServeCmd())
	root.AddCommand(MigrateCmd())
	return root
}
