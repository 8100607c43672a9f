// Command tubescribe is the CLI client for the tubescribed daemon. It talks
// to the HTTP API for transcription, status, and history, and performs local
// maintenance like config bootstrap and orphan sweeps.
package main
