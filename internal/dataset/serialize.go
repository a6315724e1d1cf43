package dataset

import (
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// Serialize renders records as a plain aligned table: columns in header
// order, rows in the given order, no index column. The same input always
// produces the same text.
func Serialize(records []domain.Record) string {
	if len(records) == 0 {
		return ""
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(records[0].Names())
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, r := range records {
		row := make([]string, len(r.Fields))
		for i, f := range r.Fields {
			row[i] = strings.Join(strings.Fields(f.Value), " ")
		}
		table.Append(row)
	}
	table.Render()

	return buf.String()
}
