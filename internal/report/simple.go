package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// border frames the report title and footer.
const border = "============================="

// SimpleWriter outputs the plain-text report:
//
//	=============================
//	     REPORT for https://example.com
//	=============================
//	Found 3 internal links to example.com/about
//	=============================
//	     END REPORT
//	=============================
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Existing scripts grep the "Found N internal links to" lines
type SimpleWriter struct {
	baseWriter

	// verbose appends a summary line with page totals and duration.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the trailing summary line.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in the bordered text format.
// Pages appear in report order (descending count).
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(border + "\n")
	fmt.Fprintf(&sb, "     REPORT for %s\n", report.BaseURL)
	sb.WriteString(border + "\n")

	for _, p := range report.Pages {
		fmt.Fprintf(&sb, "Found %d internal links to %s\n", p.Count, p.URL)
	}

	sb.WriteString(border + "\n")
	sb.WriteString("     END REPORT\n")
	sb.WriteString(border + "\n")

	if w.verbose {
		status := "complete"
		if report.Canceled {
			status = "canceled, partial results"
		}
		fmt.Fprintf(&sb, "%d pages, %d internal links, %s (%s)\n",
			len(report.Pages), report.TotalLinks(), report.Duration().Round(time.Millisecond), status)
	}

	return io.WriteString(w.output, sb.String())
}
