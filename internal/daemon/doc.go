// Package daemon ties the pipeline together behind the HTTP API. It owns the
// browser session manager, the batch processor, the sweeper, and the server
// lifecycle, and enforces single-instance execution with a file lock.
package daemon
