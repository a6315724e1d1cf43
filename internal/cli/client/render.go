package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/jeeinsight/internal/dataset"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/service"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

// printer writes command results as JSON, raw text or rendered markdown.
type printer struct {
	out  io.Writer
	json bool
	raw  bool
}

func newPrinter(cmd *cobra.Command) *printer {
	outputJSON, _ := cmd.Flags().GetBool("output")
	raw, _ := cmd.Flags().GetBool("raw")
	return &printer{out: cmd.OutOrStdout(), json: outputJSON, raw: raw}
}

func (p *printer) JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(p.out, string(data))
	return nil
}

// Markdown renders generated text for the terminal. Raw mode prints it as is.
func (p *printer) Markdown(md string) error {
	if p.raw {
		fmt.Fprintln(p.out, md)
		return nil
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	fmt.Fprint(p.out, out)
	return nil
}

func (p *printer) Heading(format string, args ...interface{}) {
	headingColor.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Warn(format string, args ...interface{}) {
	warnColor.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Dim(format string, args ...interface{}) {
	dimColor.Fprintf(p.out, format+"\n", args...)
}

// Analysis prints a strengths-and-weaknesses summary.
func (p *printer) Analysis(res *service.AnalysisResult) error {
	if p.json {
		return p.JSON(res)
	}

	if res.Mode == domain.SummaryModeCohort {
		p.Heading("Cohort summary (%d students)", len(res.StudentIDs))
	} else {
		p.Heading("Students: %s", strings.Join(res.StudentIDs, ", "))
	}
	if len(res.Missing) > 0 {
		p.Warn("No data for: %s", strings.Join(res.Missing, ", "))
	}
	if res.NoData {
		p.Warn("No data found for the selected students.")
		return nil
	}

	if err := p.Markdown(res.Summary); err != nil {
		return err
	}
	p.Dim("mode=%s calls=%d levels=%d chunks=%d", res.Mode, res.Calls, res.Levels, res.Chunks)
	return nil
}

// Scores prints subject and chapter tables.
func (p *printer) Scores(title string, report *dataset.ScoreReport) error {
	if p.json {
		return p.JSON(report)
	}

	p.Heading("%s (%d students, %d rows)", title, report.Students, report.Rows)

	subjects := tablewriter.NewWriter(p.out)
	subjects.SetHeader([]string{"Subject", "Marks", "Max", "%", "Avg", "Answered", "Missing", "Strong"})
	for _, s := range report.Subjects {
		subjects.Append([]string{
			string(s.Subject),
			formatFloat(s.Total),
			formatFloat(s.MaxPossible),
			fmt.Sprintf("%.1f", s.Percentage),
			fmt.Sprintf("%.2f", s.Average),
			fmt.Sprint(s.Answered),
			fmt.Sprint(s.Missing),
			fmt.Sprint(s.Strong),
		})
	}
	subjects.Render()

	if len(report.Chapters) == 0 {
		return nil
	}

	fmt.Fprintln(p.out)
	chapters := tablewriter.NewWriter(p.out)
	chapters.SetHeader([]string{"Subject", "Chapter", "Marks", "Max", "%"})
	for _, c := range report.Chapters {
		chapters.Append([]string{
			string(c.Subject),
			c.Chapter,
			formatFloat(c.Total),
			formatFloat(c.MaxPossible),
			fmt.Sprintf("%.1f", c.Percentage),
		})
	}
	chapters.Render()
	return nil
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
