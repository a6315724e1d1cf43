package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// StudentsCmd lists the student IDs in the dataset.
func StudentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "students",
		Short: "List student IDs",
		Long:  "Lists every student ID found in the dataset, in first-appearance order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			ids, err := rt.analysis.Service.Students(cmd.Context())
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.json {
				return p.JSON(ids)
			}
			for _, id := range ids {
				fmt.Fprintln(p.out, id)
			}
			return nil
		},
	}
}

// ScoresCmd prints subject and chapter scores for one student or the cohort.
func ScoresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scores [student-id]",
		Short: "Show subject and chapter scores",
		Long:  "Aggregates marks per subject and chapter for a student, or for the whole cohort when no ID is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}

			id := ""
			title := "Cohort scores"
			if len(args) == 1 {
				id = args[0]
				title = "Scores for " + id
			}

			report, err := rt.analysis.Service.Scores(cmd.Context(), id)
			if err != nil {
				return err
			}
			return newPrinter(cmd).Scores(title, report)
		},
	}
}
