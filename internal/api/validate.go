package api

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID pulls the 11-character video identifier out of a YouTube
// URL. Accepted forms are watch URLs, youtu.be short links, and shorts,
// embed and live paths. Bare identifiers are rejected: the fetcher hands
// references to yt-dlp verbatim, so anything that passes validation must
// already be a real URL.
func ExtractVideoID(ref string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || parsed.Host == "" {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := parsed.Query().Get("v"); videoIDPattern.MatchString(id) {
			return id, true
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(parsed.Path, prefix); ok {
				id := strings.SplitN(rest, "/", 2)[0]
				if videoIDPattern.MatchString(id) {
					return id, true
				}
			}
		}
	case "youtu.be":
		id := strings.TrimPrefix(parsed.Path, "/")
		id = strings.SplitN(id, "/", 2)[0]
		if videoIDPattern.MatchString(id) {
			return id, true
		}
	}
	return "", false
}

// Validate checks the request body before any work is scheduled.
func (r TranscriptionRequest) Validate() error {
	if len(r.VideoURLs) == 0 {
		return fmt.Errorf("video_urls must not be empty")
	}
	for i, ref := range r.VideoURLs {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("video_urls[%d] is empty", i)
		}
		if _, ok := ExtractVideoID(ref); !ok {
			return fmt.Errorf("video_urls[%d] is not a recognizable YouTube reference: %s", i, ref)
		}
	}
	return nil
}
