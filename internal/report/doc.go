// Package report renders finished crawl reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: The bordered plain-text report printed by default
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Tables (and an optional mermaid pie chart) for sharing
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
