// Package sweeper reclaims orphaned work directories left behind by
// interrupted batches. Every item directory under the configured temp root is
// normally removed by the pipeline itself; the sweeper only touches entries
// older than the grace period so it never races an in-flight download.
package sweeper
