package api

import "testing"

func TestExtractVideoID(t *testing.T) {
	cases := []struct {
		name string
		ref  string
		id   string
		ok   bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch url extra params", "https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"shorts path", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"embed path", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"bare id rejected", "dQw4w9WgXcQ", "", false},
		{"live path", "https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short id", "https://www.youtube.com/watch?v=abc", "", false},
		{"wrong host", "https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"not a url", "not a url at all", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := ExtractVideoID(tc.ref)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if id != tc.id {
				t.Errorf("id = %q, want %q", id, tc.id)
			}
		})
	}
}

func TestTranscriptionRequestValidate(t *testing.T) {
	valid := TranscriptionRequest{VideoURLs: []string{"https://youtu.be/dQw4w9WgXcQ"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	empty := TranscriptionRequest{}
	if err := empty.Validate(); err == nil {
		t.Fatal("empty request accepted")
	}

	blank := TranscriptionRequest{VideoURLs: []string{"  "}}
	if err := blank.Validate(); err == nil {
		t.Fatal("blank reference accepted")
	}

	junk := TranscriptionRequest{VideoURLs: []string{"https://youtu.be/dQw4w9WgXcQ", "https://vimeo.com/12345"}}
	if err := junk.Validate(); err == nil {
		t.Fatal("non-youtube reference accepted")
	}

	// A bare identifier would fail in the fetcher, which only accepts URLs,
	// so it must never make it past validation.
	bare := TranscriptionRequest{VideoURLs: []string{"dQw4w9WgXcQ"}}
	if err := bare.Validate(); err == nil {
		t.Fatal("bare video id accepted")
	}
}
