package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/sitecrawl/internal/model"
)

// defaultChartSlices is how many pages the pie chart shows before the rest
// are folded into "other".
const defaultChartSlices = 8

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables and mermaid diagrams
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter

	// chart adds a mermaid pie chart of the most linked pages.
	chart bool

	// chartSlices caps the number of named slices in the chart.
	chartSlices int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithPieChart enables the mermaid pie chart section.
func WithPieChart(enabled bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.chart = enabled
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:  newBaseWriter(output),
		chartSlices: defaultChartSlices,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Base URL", "`" + report.BaseURL + "`"},
			{"Run ID", "`" + report.ID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Pages", strconv.Itoa(len(report.Pages))},
			{"Internal Links", strconv.Itoa(report.TotalLinks())},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	if report.Canceled {
		md.Warning("The crawl was interrupted. Counts only cover the pages visited before it stopped.")
		md.PlainText("")
	}
}

// statusText returns the status text based on report state.
func statusText(report *model.CrawlReport) string {
	if report.Canceled {
		return "⚠️ Canceled (partial results)"
	}
	return "✅ Complete"
}

// writePages writes the page table and the optional chart.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Internal Links")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		rows[i] = []string{strconv.Itoa(i + 1), "`" + p.URL + "`", strconv.Itoa(p.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Page", "Internal Links"},
		Rows:   rows,
	})
	md.PlainText("")

	if w.chart {
		w.writePieChart(md, report)
	}
}

// writePieChart writes a mermaid pie chart of link distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Internal Link Distribution"),
		piechart.WithShowData(true),
	)

	var other uint64
	for i, p := range report.Pages {
		if i < w.chartSlices {
			chart.LabelAndIntValue(p.URL, uint64(p.Count)) //nolint:gosec // counts are positive
			continue
		}
		other += uint64(p.Count) //nolint:gosec // counts are positive
	}
	if other > 0 {
		chart.LabelAndIntValue("other", other)
	}

	md.H2("Distribution")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitecrawl](https://github.com/nao1215/sitecrawl)*")
}
