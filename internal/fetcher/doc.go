// Package fetcher downloads video audio tracks through yt-dlp.
//
// Downloads run through a ladder of extraction strategies that vary the
// user agent and player clients; each rung is tried in order until one
// produces an artifact. The session cookie jar maintained by the browser
// manager is handed to every invocation so age-gated and member content
// resolves with the operator's identity.
package fetcher
