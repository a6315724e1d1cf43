package client

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/jeeinsight/internal/config"
)

// AnalyzeCmd summarizes strengths and weaknesses for specific students.
func AnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <student-id>...",
		Short: "Summarize strengths and weaknesses for students",
		Long: `Generates a strengths-and-weaknesses summary for one or more students.

A single student uses the single-student prompt. Several students share one
prompt, or go through the batch-and-reduce pipeline when there are more than
JEE_DIRECT_LIMIT of them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			res, err := rt.analysis.Service.AnalyzeStudents(cmd.Context(), args)
			if err != nil {
				return err
			}
			return newPrinter(cmd).Analysis(res)
		},
	}
}

// CohortCmd runs the batch-and-reduce pipeline over the cohort.
func CohortCmd() *cobra.Command {
	var (
		batchSize   int
		groupSize   int
		threshold   int
		unit        string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "cohort [student-id]...",
		Short: "Summarize the whole cohort",
		Long: `Splits the dataset into batches, summarizes each batch, then merges the
summaries level by level until one cohort summary remains.

Pass student IDs to restrict the cohort. Flags override the JEE_BATCH_SIZE,
JEE_GROUP_SIZE, JEE_REDUCE_THRESHOLD, JEE_CHUNK_UNIT and JEE_CONCURRENCY
settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			rt, err := newRuntime(cmd, func(cfg *config.Config) {
				if flags.Changed("batch-size") {
					cfg.BatchSize = batchSize
				}
				if flags.Changed("group-size") {
					cfg.GroupSize = groupSize
				}
				if flags.Changed("threshold") {
					cfg.ReduceThreshold = threshold
				}
				if flags.Changed("unit") {
					cfg.ChunkUnit = unit
				}
				if flags.Changed("concurrency") {
					cfg.Concurrency = concurrency
				}
			})
			if err != nil {
				return err
			}

			res, err := rt.analysis.Service.SummarizeCohort(cmd.Context(), args)
			if err != nil {
				return err
			}
			return newPrinter(cmd).Analysis(res)
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 2, "Units per leaf batch")
	cmd.Flags().IntVarP(&groupSize, "group-size", "g", 5, "Summaries merged per reduce call")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Largest summary count merged directly into the final summary (0 = group size)")
	cmd.Flags().StringVar(&unit, "unit", "student", "Batching unit: student or row")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 1, "Concurrent generation calls per level")

	return cmd
}
