package client

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Job mirrors the daemon's summary job payload.
type Job struct {
	ID          string   `json:"id"`
	StudentIDs  []string `json:"student_ids"`
	Mode        string   `json:"mode"`
	Status      string   `json:"status"`
	Retries     int32    `json:"retries"`
	Error       string   `json:"error,omitempty"`
	ReportID    string   `json:"report_id,omitempty"`
	CreatedAt   string   `json:"created_at"`
	ProcessedAt string   `json:"processed_at,omitempty"`
}

// Report mirrors the daemon's stored summary report payload.
type Report struct {
	ID         string   `json:"id"`
	JobID      string   `json:"job_id,omitempty"`
	StudentIDs []string `json:"student_ids"`
	Mode       string   `json:"mode"`
	Summary    string   `json:"summary"`
	NoData     bool     `json:"no_data"`
	Calls      int      `json:"calls"`
	Levels     int      `json:"levels"`
	Chunks     int      `json:"chunks"`
	Archived   bool     `json:"archived"`
	CreatedAt  string   `json:"created_at"`
}

// ReportPage is one page of the report listing.
type ReportPage struct {
	Items   []*Report `json:"items"`
	Cursor  string    `json:"cursor,omitempty"`
	HasMore bool      `json:"has_more"`
}

// JobCmd groups the queued summary job commands.
func JobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Queue and inspect summary jobs on a jeeinsightd server",
	}
	cmd.AddCommand(jobSubmitCmd())
	cmd.AddCommand(jobGetCmd())
	return cmd
}

func jobSubmitCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "submit [student-id]...",
		Short: "Queue a summary job",
		Long:  "Queues a summary job. Direct mode needs at least one student; cohort mode with no IDs covers everyone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/summaries", map[string]interface{}{
				"student_ids": args,
				"mode":        mode,
			})
			if err != nil {
				return err
			}

			var job Job
			if err := resp.Decode(&job); err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.json {
				return p.JSON(job)
			}
			p.Heading("Queued job %s", job.ID)
			fmt.Fprintf(p.out, "mode: %s\nstatus: %s\n", job.Mode, job.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "direct", "Summary mode: direct or cohort")
	return cmd
}

func jobGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a summary job and its report once completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(cmd.Context(), "/summaries/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}

			var job Job
			if err := resp.Decode(&job); err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.json {
				return p.JSON(job)
			}

			p.Heading("Job %s", job.ID)
			fmt.Fprintf(p.out, "mode: %s\nstatus: %s\nretries: %d\n", job.Mode, job.Status, job.Retries)
			if len(job.StudentIDs) > 0 {
				fmt.Fprintf(p.out, "students: %s\n", strings.Join(job.StudentIDs, ", "))
			}
			if job.Error != "" {
				p.Warn("error: %s", job.Error)
			}
			if job.ReportID == "" {
				return nil
			}

			report, err := fetchReport(cmd, api, job.ReportID)
			if err != nil {
				return err
			}
			fmt.Fprintln(p.out)
			return printReport(p, report)
		},
	}
}

// ReportsCmd groups the stored report commands.
func ReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Browse stored summary reports on a jeeinsightd server",
	}
	cmd.AddCommand(reportsListCmd())
	cmd.AddCommand(reportsShowCmd())
	cmd.AddCommand(reportsSearchCmd())
	cmd.AddCommand(reportsDownloadCmd())
	return cmd
}

func reportsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			query.Set("limit", strconv.Itoa(limit))
			if cursor != "" {
				query.Set("cursor", cursor)
			}

			resp, err := api.Get(cmd.Context(), "/reports?"+query.Encode())
			if err != nil {
				return err
			}

			var page ReportPage
			if err := resp.Decode(&page); err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.json {
				return p.JSON(page)
			}
			printReportList(p, page.Items)
			if page.HasMore {
				p.Dim("next page: --cursor %s", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of reports")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	return cmd
}

func reportsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <report-id>",
		Short: "Show a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			report, err := fetchReport(cmd, api, args[0])
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.json {
				return p.JSON(report)
			}
			return printReport(p, report)
		},
	}
}

func reportsSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find reports by meaning",
		Long:  "Ranks stored reports by embedding similarity to the query. The server needs embeddings configured.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(cmd.Context(), "/reports/search", map[string]interface{}{
				"query": args[0],
				"limit": limit,
			})
			if err != nil {
				return err
			}

			var reports []*Report
			if err := resp.Decode(&reports); err != nil {
				return err
			}

			p := newPrinter(cmd)
			if p.json {
				return p.JSON(reports)
			}
			printReportList(p, reports)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	return cmd
}

func reportsDownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <report-id>",
		Short: "Download an archived report as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := FromCommand(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(cmd.Context(), "/reports/"+url.PathEscape(args[0])+"/download")
			if err != nil {
				return err
			}

			var link struct {
				URL string `json:"url"`
			}
			if err := resp.Decode(&link); err != nil {
				return err
			}

			if output == "" {
				return api.Download(cmd.Context(), link.URL, cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := api.Download(cmd.Context(), link.URL, f); err != nil {
				f.Close()
				os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved report to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "file", "f", "", "Write to this file instead of stdout")
	return cmd
}

func fetchReport(cmd *cobra.Command, api *APIClient, id string) (*Report, error) {
	resp, err := api.Get(cmd.Context(), "/reports/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var report Report
	if err := resp.Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

func printReport(p *printer, r *Report) error {
	p.Heading("Report %s (%s)", r.ID, r.Mode)
	if len(r.StudentIDs) > 0 {
		fmt.Fprintf(p.out, "students: %s\n", strings.Join(r.StudentIDs, ", "))
	}
	if r.NoData {
		p.Warn("No data found for the selected students.")
		return nil
	}
	if err := p.Markdown(r.Summary); err != nil {
		return err
	}
	p.Dim("calls=%d levels=%d chunks=%d created=%s", r.Calls, r.Levels, r.Chunks, r.CreatedAt)
	return nil
}

func printReportList(p *printer, reports []*Report) {
	if len(reports) == 0 {
		fmt.Fprintln(p.out, "No reports found.")
		return
	}
	for _, r := range reports {
		students := strings.Join(r.StudentIDs, ", ")
		if students == "" {
			students = "all students"
		}
		fmt.Fprintf(p.out, "%s  %-6s  %s  %s\n", r.ID, r.Mode, r.CreatedAt, students)
	}
}
