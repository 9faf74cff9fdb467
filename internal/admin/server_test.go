package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hydronom-sim/internal/feeder"
	"hydronom-sim/internal/telemetry"
)

type fakeStatus struct{ st feeder.Status }

func (f fakeStatus) Status() feeder.Status { return f.st }

func TestHandleStatus(t *testing.T) {
	rec := telemetry.Record{Vehicle: telemetry.VehicleRef{ID: "hydronom-sub-01", Type: telemetry.ClassSub}}
	server := NewServer(fakeStatus{feeder.Status{RunID: "r1", VehicleID: "hydronom-sub-01", Ticks: 4, Sent: 3, Failed: 1, Leak: true, Last: &rec}}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	var got feeder.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.RunID != "r1" || got.Sent != 3 || got.Failed != 1 || !got.Leak {
		t.Errorf("unexpected status: %+v", got)
	}
	if got.Last == nil || got.Last.Vehicle.Type != telemetry.ClassSub {
		t.Errorf("last record missing: %+v", got.Last)
	}
}

func TestHandleStop(t *testing.T) {
	stopped := false
	server := NewServer(fakeStatus{}, func() { stopped = true }, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/stop", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if !stopped {
		t.Fatalf("stop callback not invoked")
	}

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stop", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /stop, got %d", w.Code)
	}
}

func TestHandleStopUnavailable(t *testing.T) {
	server := NewServer(fakeStatus{}, nil, nil, nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stop", nil))
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := feeder.NewMetrics(reg)
	if m == nil {
		t.Fatalf("metrics not created")
	}
	server := NewServer(fakeStatus{}, nil, reg, nil)

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status OK, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "hydronom_feeder_ticks_total") {
		t.Fatalf("feeder metrics not exposed:\n%s", w.Body.String())
	}
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	server := NewServer(fakeStatus{}, nil, nil, nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := NewServer(fakeStatus{feeder.Status{RunID: "r2"}}, nil, nil, NewHub("v"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/status"
	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get(url)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("server did not shut down")
	}
}
