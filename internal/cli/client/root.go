package client

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/jeeinsight/internal/cli"
)

// NewRootCmd builds the jeeinsight command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jeeinsight",
		Short: "JEE mock-test analysis",
		Long: `jeeinsight summarizes JEE mock-test results with a language model.

Local commands (students, scores, analyze, cohort) read the dataset directly.
Remote commands (job, reports) talk to a jeeinsightd server.

Environment variables:
  JEE_DATASET_URL   Dataset CSV path or URL
  JEE_LLM_PROVIDER  groq, openai or gemini (default: groq)
  JEE_GROQ_API_KEY  API key for the default provider
  JEE_API_KEY       API key for the jeeinsightd server
  JEE_API_URL       Server base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for the server (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "Server base URL (overrides env and config)")
	AddLocalFlags(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(StudentsCmd())
	rootCmd.AddCommand(ScoresCmd())
	rootCmd.AddCommand(AnalyzeCmd())
	rootCmd.AddCommand(CohortCmd())
	rootCmd.AddCommand(JobCmd())
	rootCmd.AddCommand(ReportsCmd())
	rootCmd.AddCommand(RemoteCmd())

	return rootCmd
}
