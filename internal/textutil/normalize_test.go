package textutil

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses whitespace", "A   Video \t Title", "A Video Title"},
		{"composes accents", "Transcrição", "Transcrição"},
		{"trims edges", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTitle(tc.input); got != tc.want {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestFallbackTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"watch url uses video id", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short url uses slug", "https://youtu.be/abc123", "Abc123"},
		{"dashed slug becomes words", "https://example.com/my-great-talk", "My Great Talk"},
		{"garbage passes through", "not a url", "not a url"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := FallbackTitle(tc.input); got != tc.want {
				t.Fatalf("FallbackTitle(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCharCountCountsRunes(t *testing.T) {
	if got := CharCount("  olá  "); got != 3 {
		t.Fatalf("CharCount = %d, want 3", got)
	}
	if got := CharCount(""); got != 0 {
		t.Fatalf("CharCount of empty = %d, want 0", got)
	}
}

func TestCollapseTranscript(t *testing.T) {
	in := "line one\r\n\r\n\r\nline two  \n\nline three\n\n\n"
	want := "line one\n\nline two\n\nline three"
	if got := CollapseTranscript(in); got != want {
		t.Fatalf("CollapseTranscript = %q, want %q", got, want)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(`a/b\c:d*e?f"g<h>i|j`); got != "a-b-c-d-efghij" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("My Vídeo! 01"); got != "my_v_deo__01" {
		t.Fatalf("SanitizeToken = %q", got)
	}
	if got := SanitizeToken("   "); got != "unknown" {
		t.Fatalf("SanitizeToken empty = %q", got)
	}
}
