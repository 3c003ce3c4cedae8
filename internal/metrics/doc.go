// Package metrics counts crawl events with Prometheus collectors.
//
// A Collector implements crawler.Observer and registers its metrics on a
// private registry, so several crawls in one process (or parallel tests)
// never share counters. After a crawl the registry can be written in the
// Prometheus text exposition format with WriteTextfile, which suits the
// node_exporter textfile collector for cron-driven crawls.
package metrics
