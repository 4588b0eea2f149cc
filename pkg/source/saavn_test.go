package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBestDownloadLink(t *testing.T) {
	tests := []struct {
		name        string
		links       []saavnDownloadLink
		wantURL     string
		wantQuality string
	}{
		{
			name: "320 selected regardless of list order",
			links: []saavnDownloadLink{
				{Quality: "96kbps", URL: "http://cdn/low"},
				{Quality: "320kbps", URL: "http://cdn/high"},
				{Quality: "160kbps", URL: "http://cdn/mid"},
			},
			wantURL:     "http://cdn/high",
			wantQuality: "320kbps",
		},
		{
			name: "160 when 320 absent",
			links: []saavnDownloadLink{
				{Quality: "96kbps", URL: "http://cdn/low"},
				{Quality: "160kbps", URL: "http://cdn/mid"},
			},
			wantURL:     "http://cdn/mid",
			wantQuality: "160kbps",
		},
		{
			name: "last listed when no preferred tier present",
			links: []saavnDownloadLink{
				{Quality: "12kbps", URL: "http://cdn/tiny"},
				{Quality: "48kbps", URL: "http://cdn/small"},
			},
			wantURL:     "http://cdn/small",
			wantQuality: "48kbps",
		},
		{
			name: "entries without URLs skipped",
			links: []saavnDownloadLink{
				{Quality: "320kbps", URL: ""},
				{Quality: "160kbps", URL: "http://cdn/mid"},
			},
			wantURL:     "http://cdn/mid",
			wantQuality: "160kbps",
		},
		{
			name:        "empty list",
			links:       nil,
			wantURL:     "",
			wantQuality: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotURL, gotQuality := bestDownloadLink(tt.links)
			if gotURL != tt.wantURL || gotQuality != tt.wantQuality {
				t.Errorf("bestDownloadLink() = (%q, %q), want (%q, %q)",
					gotURL, gotQuality, tt.wantURL, tt.wantQuality)
			}
		})
	}
}

func saavnSearchBody(songs ...map[string]interface{}) string {
	body, _ := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{"results": songs},
	})
	return string(body)
}

func saavnSongJSON(id, name, artist string, duration interface{}, links []saavnDownloadLink) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"name":     name,
		"duration": duration,
		"artists": map[string]interface{}{
			"primary": []map[string]interface{}{{"name": artist}},
		},
		"downloadUrl": links,
	}
}

func TestSaavnAdapter_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/songs" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, saavnSearchBody(saavnSongJSON("sng1", "Tum Hi Ho", "Arijit Singh", "262",
			[]saavnDownloadLink{
				{Quality: "96kbps", URL: "http://cdn/96"},
				{Quality: "160kbps", URL: "http://cdn/160"},
				{Quality: "320kbps", URL: "http://cdn/320"},
			})))
	}))
	defer server.Close()

	adapter := NewSaavnAdapter(server.URL, "")

	track, err := adapter.Resolve(context.Background(), "tum hi ho")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if track.Title != "Tum Hi Ho" {
		t.Errorf("Title = %q, want %q", track.Title, "Tum Hi Ho")
	}
	if track.Artist != "Arijit Singh" {
		t.Errorf("Artist = %q, want %q", track.Artist, "Arijit Singh")
	}
	if track.OriginURL != "http://cdn/320" {
		t.Errorf("OriginURL = %q, want the 320kbps link", track.OriginURL)
	}
	if track.Quality != "320kbps" {
		t.Errorf("Quality = %q, want %q", track.Quality, "320kbps")
	}
	if track.Duration != 262 {
		t.Errorf("Duration = %d, want 262", track.Duration)
	}
	if track.Tier() != TierHigh {
		t.Errorf("Tier() = %q, want %q", track.Tier(), TierHigh)
	}
}

func TestSaavnAdapter_DetailsFallback(t *testing.T) {
	var detailCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/songs":
			// Search results carry no direct link.
			fmt.Fprint(w, saavnSearchBody(saavnSongJSON("sng9", "Kesariya", "Arijit Singh", 268, nil)))
		case "/songs/sng9":
			detailCalls++
			body, _ := json.Marshal(map[string]interface{}{
				"data": []map[string]interface{}{
					saavnSongJSON("sng9", "Kesariya", "Arijit Singh", 268,
						[]saavnDownloadLink{{Quality: "160kbps", URL: "http://cdn/detail160"}}),
				},
			})
			w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	adapter := NewSaavnAdapter(server.URL, "")

	track, err := adapter.Resolve(context.Background(), "kesariya")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if detailCalls != 1 {
		t.Errorf("details endpoint called %d times, want 1", detailCalls)
	}
	if track.OriginURL != "http://cdn/detail160" {
		t.Errorf("OriginURL = %q, want the details link", track.OriginURL)
	}
	if track.Tier() != TierMedium {
		t.Errorf("Tier() = %q, want %q", track.Tier(), TierMedium)
	}
}

func TestSaavnAdapter_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, saavnSearchBody())
	}))
	defer server.Close()

	adapter := NewSaavnAdapter(server.URL, "")

	if _, err := adapter.Resolve(context.Background(), "nothing"); !errors.Is(err, ErrNoMatch) {
		t.Errorf("Resolve() error = %v, want ErrNoMatch", err)
	}
}

func TestSaavnAdapter_RetriesOnFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewSaavnAdapter(server.URL, "")

	_, err := adapter.Resolve(context.Background(), "anything")
	if err == nil {
		t.Fatal("Resolve() should report persistent failure")
	}
	if calls != saavnMaxAttempts {
		t.Errorf("backend called %d times, want %d", calls, saavnMaxAttempts)
	}
}

func TestSaavnAdapter_Trending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		body, _ := json.Marshal(map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"id": "t1", "title": "Song One", "type": "song", "image": "http://img/1",
					"more_info": map[string]interface{}{
						"artistMap": map[string]interface{}{
							"primary_artists": []map[string]interface{}{{"name": "Artist One"}},
						},
					},
				},
				{"id": "a1", "title": "Some Album", "type": "album"},
				{"id": "t2", "title": "Song Two", "type": "song"},
				{"id": "t3", "title": "Song Three", "type": "song"},
			},
		})
		w.Write(body)
	}))
	defer server.Close()

	adapter := NewSaavnAdapter("http://unused.invalid", server.URL)

	items, err := adapter.Trending(context.Background(), 2)
	if err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Trending() returned %d items, want 2 (limit applied, albums filtered)", len(items))
	}
	if items[0].Title != "Song One" || items[0].Artist != "Artist One" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Title != "Song Two" {
		t.Errorf("album entry should be filtered, got %+v", items[1])
	}
}
