package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want int
	}{
		{"nil", nil, 0},
		{"float", 247.0, 247},
		{"int", 247, 247},
		{"plain string", "247", 247},
		{"float string", "247.9", 247},
		{"mm:ss", "4:07", 247},
		{"h:mm:ss", "1:02:33", 3753},
		{"padded clock", " 4:07 ", 247},
		{"empty string", "", 0},
		{"garbage", "four minutes", 0},
		{"too many segments", "1:2:3:4", 0},
		{"negative segment", "4:-7", 0},
		{"bool", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDurationSeconds(tt.raw); got != tt.want {
				t.Errorf("parseDurationSeconds(%v) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFetchJSON_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var dest map[string]interface{}
	err := fetchJSON(context.Background(), newHTTPClient(0), server.URL, &dest)
	if err == nil {
		t.Fatal("fetchJSON should fail on non-200 status")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}

func TestFetchJSON_SetsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var dest map[string]interface{}
	if err := fetchJSON(context.Background(), newHTTPClient(0), server.URL, &dest); err != nil {
		t.Fatalf("fetchJSON() error = %v", err)
	}
	if gotUA != commonUserAgent {
		t.Errorf("User-Agent = %q, want the shared browser string", gotUA)
	}
}

func TestNewHTTPClient_RedirectCap(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	client := newHTTPClient(0)
	resp, err := client.Get(server.URL + "/loop")
	if err == nil {
		resp.Body.Close()
		t.Fatal("request through a redirect loop should fail")
	}
	if !strings.Contains(err.Error(), ErrTooManyRedirects.Error()) {
		t.Errorf("error = %v, want redirect cap", err)
	}
}
