// Package batch runs transcription requests through the acquisition and
// transcription pipeline with a bounded worker pool. Outcomes are indexed by
// input position so callers can always correlate results with the submitted
// references, including failures.
package batch
