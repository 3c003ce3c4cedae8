// Package pipeline runs a crawl and delivers its report through a sequence
// of steps.
//
// A typical run has one regular step, the crawl itself, followed by
// finalizers that write the report to stdout or a file, export it to SQLite,
// and dump Prometheus metrics. Each stage is implemented as a Step that
// receives the current report.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. Outputs can be added or removed without touching the crawl logic
// 2. It provides consistent error handling and logging across steps
// 3. Finalizers give a single place to guarantee that partial results are
// still written after SIGINT
//
// Independent outputs can be grouped with Parallel, which runs its children
// concurrently using errgroup.
package pipeline
