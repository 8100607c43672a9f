// Package services defines shared utilities consumed by the batch pipeline
// components and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp batch identifiers, item indices, component
//     names, and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the per-item outcome taxonomy (session, acquisition,
//     transcription) versus request-level faults.
//   - A command runner abstraction that makes external tool invocation
//     (yt-dlp, whisper) testable.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across components.
package services
