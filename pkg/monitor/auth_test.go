package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"gra-pca/sentinel/pkg/config"
)

func TestAPIKeyAuth(t *testing.T) {
	var seen string
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = APIKeyName(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	s := NewServer(config.MonitorConfig{}, NewBroadcaster(1, nil),
		WithMetricsHandler("/metrics", metricsHandler),
		WithAPIKeys(
			APIKey{Name: "dashboard", Key: "k-live", Enabled: true},
			APIKey{Name: "retired", Key: "k-old", Enabled: false},
		),
	)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	tests := []struct {
		name   string
		path   string
		header map[string]string
		code   int
	}{
		{"healthz is public", PathHealthz, nil, http.StatusOK},
		{"version is public", PathVersion, nil, http.StatusOK},
		{"missing key", "/metrics", nil, http.StatusUnauthorized},
		{"bearer", "/metrics", map[string]string{"Authorization": "Bearer k-live"}, http.StatusOK},
		{"header", "/metrics", map[string]string{APIKeyHeader: "k-live"}, http.StatusOK},
		{"query", "/metrics?api_key=k-live", nil, http.StatusOK},
		{"unknown key", "/metrics", map[string]string{APIKeyHeader: "nope"}, http.StatusUnauthorized},
		{"disabled key", "/metrics", map[string]string{"Authorization": "Bearer k-old"}, http.StatusUnauthorized},
		{"wrong scheme", "/metrics", map[string]string{"Authorization": "Basic k-live"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req, _ := http.NewRequest(http.MethodGet, srv.URL+tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.code {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.code)
			}
			if tt.code == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			if tt.code == http.StatusOK && strings.HasPrefix(tt.path, "/metrics") && seen != "dashboard" {
				t.Errorf("APIKeyName = %q, want dashboard", seen)
			}
		})
	}
}

func TestAPIKeyWebSocket(t *testing.T) {
	s := NewServer(config.MonitorConfig{}, NewBroadcaster(1, nil),
		WithAPIKeys(APIKey{Name: "dashboard", Key: "k-live", Enabled: true}),
	)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + PathWebSocket

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() without key succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Dial() without key response = %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url+"?api_key=k-live", nil)
	if err != nil {
		t.Fatalf("Dial() with key error = %v", err)
	}
	conn.Close()
}

func TestAPIKeyNameMissing(t *testing.T) {
	if _, ok := APIKeyName(context.Background()); ok {
		t.Error("APIKeyName() ok on bare context")
	}
}
