// Package preflight verifies the runtime environment before the daemon
// accepts work: directory access, external binaries, the browser debug
// endpoint, and the transcription backend.
package preflight
