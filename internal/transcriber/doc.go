// Package transcriber converts downloaded audio into text.
//
// Two backends are available: a local whisper pipeline launched through
// uvx, and an OpenAI-compatible transcription API. Both produce the same
// Result shape so the batch pipeline does not care which one is active.
package transcriber
