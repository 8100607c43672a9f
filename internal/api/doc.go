// Package api defines the wire types shared by the HTTP server and the CLI
// client, plus request validation for video references.
package api
