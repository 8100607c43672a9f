// Package logging builds slog loggers for tubescribe.
//
// Two output formats are supported: a human-oriented console format used
// during interactive runs and a JSON format for log aggregation. Context
// helpers stamp batch and item identity onto every record produced inside
// a pipeline run.
package logging
