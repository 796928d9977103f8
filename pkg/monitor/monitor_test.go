package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gra-pca/sentinel/pkg/audit"
	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/simulation"
	"gra-pca/sentinel/pkg/telemetry/health"
	"gra-pca/sentinel/pkg/telemetry/metrics"
)

func progress(processed int) audit.Progress {
	return audit.Progress{
		ExecutionID: "exec-1",
		CaseID:      "CASE-1",
		Status:      execution.StatusRunning,
		Total:       10,
		Processed:   processed,
		Timestamp:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

type decoded struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func decode(t *testing.T, msg []byte) (decoded, audit.Progress) {
	t.Helper()
	var e decoded
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("invalid event %q: %v", msg, err)
	}
	var p audit.Progress
	if e.Type == EventProgress {
		if err := json.Unmarshal(e.Data, &p); err != nil {
			t.Fatal(err)
		}
	}
	return e, p
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster(4, nil)
	first, second := b.Subscribe(), b.Subscribe()
	defer first.Close()
	defer second.Close()

	b.Publish(progress(3))

	for _, sub := range []*Subscription{first, second} {
		select {
		case msg := <-sub.C:
			e, p := decode(t, msg)
			if e.Type != EventProgress || p.ExecutionID != "exec-1" || p.Processed != 3 {
				t.Errorf("event = %s %+v", e.Type, p)
			}
		default:
			t.Fatal("subscriber received nothing")
		}
	}
}

func TestBroadcasterNeverBlocks(t *testing.T) {
	b := NewBroadcaster(1, nil)
	slow := b.Subscribe()
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		for i := range 5 {
			b.Publish(progress(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if got := b.Dropped(); got != 4 {
		t.Errorf("Dropped() = %d, want 4", got)
	}
	_, p := decode(t, <-slow.C)
	if p.Processed != 0 {
		t.Errorf("buffered event processed = %d, want the first one", p.Processed)
	}
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster(2, nil)
	sub := b.Subscribe()
	b.Close()
	b.Close()

	if _, ok := <-sub.C; ok {
		t.Error("subscription channel should be closed")
	}
	sub.Close()
	b.Publish(progress(1))

	late := b.Subscribe()
	if _, ok := <-late.C; ok {
		t.Error("subscribing after Close should yield a closed channel")
	}
	if b.Clients() != 0 {
		t.Errorf("Clients() = %d, want 0", b.Clients())
	}
}

func TestBroadcasterAsProgressSink(t *testing.T) {
	b := NewBroadcaster(64, nil)
	sub := b.Subscribe()
	defer sub.Close()

	decls := []*declaration.Declaration{
		{ID: "D1", HSCode: "61091000", OriginCountry: "CN", ECOWASOrigin: true, Value: 1000},
		{ID: "D2", HSCode: "87032390", OriginCountry: "AE", Value: 20000},
	}
	cfg := audit.DefaultConfig()
	cfg.CaseID = "CASE-9"
	exec, err := audit.NewOrchestrator().Run(context.Background(), cfg, decls, b.Publish)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var last audit.Progress
	for len(sub.C) > 0 {
		_, last = decode(t, <-sub.C)
	}
	if last.ExecutionID != exec.ID || last.Status != execution.StatusCompleted {
		t.Errorf("last progress = %+v", last)
	}
	if last.Percent() != 100 {
		t.Errorf("Percent() = %v, want 100", last.Percent())
	}
}

func TestWebSocketStream(t *testing.T) {
	b := NewBroadcaster(8, nil)
	srv := httptest.NewServer(NewServer(config.MonitorConfig{}, b).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + PathWebSocket
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return b.Clients() == 1 })

	b.Publish(progress(7))
	b.ObserveSimulation(&simulation.Result{ID: "sim-1", RulePackID: "gra-default", Precision: 0.5})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if e, p := decode(t, msg); e.Type != EventProgress || p.Processed != 7 {
		t.Errorf("first event = %s %+v", e.Type, p)
	}

	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	e, _ := decode(t, msg)
	var summary SimulationSummary
	if err := json.Unmarshal(e.Data, &summary); err != nil {
		t.Fatal(err)
	}
	if e.Type != EventSimulation || summary.RulePackID != "gra-default" || summary.Precision != 0.5 {
		t.Errorf("second event = %s %+v", e.Type, summary)
	}

	b.Close()
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected going-away close, got %v", err)
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	b := NewBroadcaster(8, nil)
	srv := httptest.NewServer(b)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return b.Clients() == 1 })
	conn.Close()
	waitFor(t, func() bool { return b.Clients() == 0 })
}

func TestServerEndpoints(t *testing.T) {
	checker := health.New(time.Second)
	checker.RegisterCheck("rulepacks", func(context.Context) error { return errors.New("no active rule pack") })
	collector := metrics.NewCollector(nil, nil)

	s := NewServer(config.MonitorConfig{}, NewBroadcaster(1, nil),
		WithMetricsHandler("/metrics", collector.Handler()),
		WithHealthChecker(checker),
		WithBuildInfo(BuildInfo{Version: "1.4.0", Commit: "abc123"}),
	)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	tests := []struct {
		path string
		code int
		body string
	}{
		{PathHealthz, http.StatusOK, `"status":"ok"`},
		{PathReadyz, http.StatusServiceUnavailable, "no active rule pack"},
		{PathVersion, http.StatusOK, `"version":"1.4.0"`},
		{"/metrics", http.StatusOK, "sentinel_audit_compliance_rate"},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+tt.path, nil)
			req.Header.Set(RequestIDHeader, "req-42")
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.code {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.code)
			}
			if !strings.Contains(string(body), tt.body) {
				t.Errorf("body %q missing %q", body, tt.body)
			}
			if got := resp.Header.Get(RequestIDHeader); got != "req-42" {
				t.Errorf("%s = %q, want req-42", RequestIDHeader, got)
			}
		})
	}
}

func TestServerStartShutdown(t *testing.T) {
	b := NewBroadcaster(1, nil)
	s := NewServer(config.MonitorConfig{ListenAddress: "127.0.0.1:0", ShutdownTimeout: time.Second}, b)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}

	resp, err := http.Get("http://" + s.Addr().String() + PathHealthz)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	if err := s.Start(ctx); !errors.Is(err, ErrServerRunning) {
		t.Errorf("second Start() error = %v, want ErrServerRunning", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerListenError(t *testing.T) {
	s := NewServer(config.MonitorConfig{ListenAddress: "127.0.0.1:-1"}, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}
