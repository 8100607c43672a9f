package main

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]tableColumn{
			{title: "ID"},
			{title: "Videos", numeric: true},
			{title: "Message", maxWidth: 48},
		},
		[][]string{
			{"abc12345", "3", "Processed 3 of 3 videos"},
			{"def67890", "1"},
		},
	)

	for _, want := range []string{"ID", "Videos", "Message", "abc12345", "Processed 3 of 3 videos", "def67890"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableNoColumns(t *testing.T) {
	if out := renderTable(nil, nil); out != "" {
		t.Errorf("expected empty render, got %q", out)
	}
}
