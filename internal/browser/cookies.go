package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Cookie is a browser cookie destined for the exported jar.
type Cookie struct {
	Domain   string
	Path     string
	Name     string
	Value    string
	Secure   bool
	HTTPOnly bool
	// Expires is a unix timestamp in seconds. Zero marks a session cookie.
	Expires int64
}

// FilterCookies keeps cookies whose domain falls under one of the provided
// base domains. Matching ignores a leading dot and accepts subdomains.
func FilterCookies(cookies []Cookie, domains []string) []Cookie {
	if len(domains) == 0 {
		return cookies
	}
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		host := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		for _, base := range domains {
			if host == base || strings.HasSuffix(host, "."+base) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// WriteCookieFile writes cookies to path in Netscape cookies.txt format.
// The file is written to a temporary sibling and renamed so a concurrent
// reader never observes a partial jar.
func WriteCookieFile(path string, cookies []Cookie) error {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	b.WriteString("# Exported by tubescribe. Do not edit while the daemon is running.\n\n")
	for _, c := range cookies {
		if c.Name == "" || c.Domain == "" {
			continue
		}
		domain := c.Domain
		includeSubdomains := "FALSE"
		if strings.HasPrefix(domain, ".") {
			includeSubdomains = "TRUE"
		}
		cookiePath := c.Path
		if cookiePath == "" {
			cookiePath = "/"
		}
		fields := []string{
			domain,
			includeSubdomains,
			cookiePath,
			netscapeBool(c.Secure),
			strconv.FormatInt(c.Expires, 10),
			c.Name,
			c.Value,
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteByte('\n')
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure cookie directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".cookies-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp jar: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp jar: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp jar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp jar: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace jar: %w", err)
	}
	return nil
}

func netscapeBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
