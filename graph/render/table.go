// Package render formats entities, property bags and histograms as
// markdown tables.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/wbrown/janus-graph/graph"
	"github.com/wbrown/janus-graph/graph/storage"
	"github.com/wbrown/janus-graph/graph/traversal"
)

// TableFormatter provides utilities for formatting graph data as tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a column
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// Row is one entity and its data
type Row struct {
	Ref  graph.Ref
	Data graph.Props
}

// FormatRows formats entities as a table with one column per field. Fields
// are the union over all rows in sorted order.
func (tf *TableFormatter) FormatRows(rows []Row) string {
	if len(rows) == 0 {
		return "_No entities_"
	}

	seen := map[string]bool{}
	var fields []string
	for _, r := range rows {
		for field := range r.Data {
			if !seen[field] {
				seen[field] = true
				fields = append(fields, field)
			}
		}
	}
	sort.Strings(fields)

	headers := append([]string{"entity"}, fields...)
	cells := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, len(headers))
		row[0] = r.Ref.String()
		for j, field := range fields {
			v, ok := r.Data[field]
			if !ok {
				continue
			}
			row[j+1] = tf.formatValue(v)
		}
		cells[i] = row
	}
	return tf.formatTable(headers, cells, "entities")
}

// FormatBuckets formats a histogram
func (tf *TableFormatter) FormatBuckets(kind graph.Kind, buckets []traversal.Bucket) string {
	if len(buckets) == 0 {
		return "_No buckets_"
	}
	cells := make([][]string, len(buckets))
	for i, b := range buckets {
		cells[i] = []string{
			graph.Ref{Kind: kind, ID: b.ID}.String(),
			fmt.Sprintf("%d", b.Count),
			tf.formatValue(b.Frequency),
		}
	}
	return tf.formatTable([]string{"entity", "count", "frequency"}, cells, "buckets")
}

// FormatIndexes formats the index registry
func (tf *TableFormatter) FormatIndexes(indexes []storage.IndexInfo) string {
	if len(indexes) == 0 {
		return "_No indexes_"
	}
	cells := make([][]string, len(indexes))
	for i, idx := range indexes {
		cells[i] = []string{
			fmt.Sprintf("%d", idx.ID),
			idx.Kind.String(),
			strings.Join(idx.Fields, ", "),
		}
	}
	return tf.formatTable([]string{"id", "kind", "fields"}, cells, "indexes")
}

// formatTable renders headers and rows as a markdown table
func (tf *TableFormatter) formatTable(headers []string, rows [][]string, noun string) string {
	tableString := &strings.Builder{}

	// Create alignment array with all columns using AlignNone for simple separators
	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d %s_\n", len(rows), noun))
	return tableString.String()
}

// formatValue converts a value to a string representation
func (tf *TableFormatter) formatValue(val any) string {
	var s string
	switch v := val.(type) {
	case nil:
		s = "nil"
	case string:
		s = v
	case int64:
		s = fmt.Sprintf("%d", v)
	case uint64:
		s = fmt.Sprintf("%d", v)
	case float64:
		s = fmt.Sprintf("%.2f", v)
	case bool:
		s = fmt.Sprintf("%t", v)
	case time.Time:
		s = v.Format("2006-01-02 15:04:05")
	case []byte:
		s = fmt.Sprintf("%x", v)
	default:
		s = fmt.Sprintf("%v", v)
	}
	if tf.MaxWidth > 0 && len(s) > tf.MaxWidth {
		s = s[:tf.MaxWidth] + tf.TruncateString
	}
	return s
}

// RowsString formats entities with the default formatter
func RowsString(rows []Row) string {
	return NewTableFormatter().FormatRows(rows)
}
