package browser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilterCookiesMatchesBaseAndSubdomains(t *testing.T) {
	cookies := []Cookie{
		{Domain: ".youtube.com", Name: "a"},
		{Domain: "accounts.google.com", Name: "b"},
		{Domain: "evil-youtube.com.example.org", Name: "c"},
		{Domain: "example.org", Name: "d"},
	}
	got := FilterCookies(cookies, []string{"youtube.com", "google.com"})
	if len(got) != 2 {
		t.Fatalf("expected 2 cookies, got %d: %+v", len(got), got)
	}
	if got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
}

func TestWriteCookieFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jar", "cookies.txt")
	cookies := []Cookie{
		{Domain: ".youtube.com", Path: "/", Name: "SID", Value: "s3cret", Secure: true, Expires: 1900000000},
		{Domain: "accounts.google.com", Name: "NID", Value: "v"},
		{Domain: "", Name: "dropped"},
	}
	if err := WriteCookieFile(path, cookies); err != nil {
		t.Fatalf("WriteCookieFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read jar: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "# Netscape HTTP Cookie File" {
		t.Fatalf("bad header: %q", lines[0])
	}
	var rows []string
	for _, line := range lines {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, line)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 cookie rows, got %d", len(rows))
	}
	if rows[0] != ".youtube.com\tTRUE\t/\tTRUE\t1900000000\tSID\ts3cret" {
		t.Fatalf("unexpected row: %q", rows[0])
	}
	if rows[1] != "accounts.google.com\tFALSE\t/\tFALSE\t0\tNID\tv" {
		t.Fatalf("unexpected row: %q", rows[1])
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("jar should be private, got %v", info.Mode().Perm())
	}
}

func TestWriteCookieFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")
	if err := WriteCookieFile(path, []Cookie{{Domain: "a.com", Name: "x", Value: "1"}}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteCookieFile(path, []Cookie{{Domain: "b.com", Name: "y", Value: "2"}}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "a.com") {
		t.Fatal("old jar contents should be replaced")
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".cookies-") {
			t.Fatalf("temp file leaked: %s", e.Name())
		}
	}
}
