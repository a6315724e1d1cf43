package client

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/cli"
	"github.com/cloo-solutions/jeeinsight/internal/config"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
)

// runtime is the in-process analysis stack behind the local commands.
type runtime struct {
	cfg      *config.Config
	analysis *cli.Analysis
	logger   *zap.Logger
}

// configure applies command flag overrides to cfg.
type configure func(cfg *config.Config)

// newRuntime loads JEE_* config, applies the --dataset flag and any
// command-specific overrides, then wires the analysis service.
func newRuntime(cmd *cobra.Command, overrides ...configure) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if location, _ := cmd.Flags().GetString("dataset"); location != "" {
		cfg.DatasetURL = location
	}
	for _, apply := range overrides {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose || cfg.Debug {
		if logger, err = logging.New(true); err != nil {
			return nil, err
		}
	}

	analysis, err := cli.NewAnalysis(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{cfg: cfg, analysis: analysis, logger: logger}, nil
}

// AddLocalFlags registers the flags shared by commands that read the
// dataset directly.
func AddLocalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("dataset", "", "Dataset CSV path or URL (overrides JEE_DATASET_URL)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log pipeline progress to stderr")
	cmd.PersistentFlags().Bool("raw", false, "Print generated markdown without terminal rendering")
}
