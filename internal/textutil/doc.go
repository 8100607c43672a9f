// Package textutil provides text processing helpers for video titles,
// transcripts, and filesystem-safe naming.
package textutil
