package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenericAdapter_EnvelopeShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "bare array",
			body: `[{"title":"Song","artist":"Artist","url":"http://cdn/a","duration":"3:05"}]`,
		},
		{
			name: "data.results envelope",
			body: `{"data":{"results":[{"name":"Song","singer":"Artist","download_url":"http://cdn/a","duration":185}]}}`,
		},
		{
			name: "results envelope",
			body: `{"results":[{"title":"Song","subtitle":"Artist","stream_url":"http://cdn/a","duration":"185"}]}`,
		},
		{
			name: "songs envelope",
			body: `{"songs":[{"title":"Song","artist":"Artist","url":"http://cdn/a","duration":185.0}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			adapter := NewGenericAdapter(server.URL)

			track, err := adapter.Resolve(context.Background(), "song")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if track.Title != "Song" || track.Artist != "Artist" {
				t.Errorf("got (%q, %q), want (Song, Artist)", track.Title, track.Artist)
			}
			if track.OriginURL != "http://cdn/a" {
				t.Errorf("OriginURL = %q", track.OriginURL)
			}
			if track.Duration != 185 {
				t.Errorf("Duration = %d, want 185", track.Duration)
			}
			if track.Source != GenericID {
				t.Errorf("Source = %q, want %q", track.Source, GenericID)
			}
		})
	}
}

func TestGenericAdapter_DefaultQuality(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"title":"Song","url":"http://cdn/a"}]`)
	}))
	defer server.Close()

	adapter := NewGenericAdapter(server.URL)

	track, err := adapter.Resolve(context.Background(), "song")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if track.Quality != "96kbps" {
		t.Errorf("Quality = %q, want 96kbps default", track.Quality)
	}
	if track.Tier() != TierLow {
		t.Errorf("Tier() = %q, want %q", track.Tier(), TierLow)
	}
}

func TestGenericAdapter_SkipsUnusableEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// First entry has no stream URL, second has no title.
		fmt.Fprint(w, `[{"title":"No Link"},{"url":"http://cdn/untitled"},{"title":"Good","url":"http://cdn/good"}]`)
	}))
	defer server.Close()

	adapter := NewGenericAdapter(server.URL)

	track, err := adapter.Resolve(context.Background(), "song")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if track.Title != "Good" {
		t.Errorf("Title = %q, want the first usable entry", track.Title)
	}
}

func TestGenericAdapter_Unconfigured(t *testing.T) {
	adapter := NewGenericAdapter("")

	if _, err := adapter.Resolve(context.Background(), "song"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Resolve() error = %v, want ErrNoMatch", err)
	}
}

func TestGenericAdapter_TrendingUnsupported(t *testing.T) {
	adapter := NewGenericAdapter("http://unused.invalid")

	if _, err := adapter.Trending(context.Background(), 5); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Trending() error = %v, want ErrNoMatch", err)
	}
}
