package debughttp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestNewRejectsNonLoopbackAddr(t *testing.T) {
	if _, err := New("0.0.0.0:0", "test", func() Stats { return Stats{} }); err == nil {
		t.Fatal("expected an error binding a non-loopback address")
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	want := Stats{Namespace: "main", Outputs: []string{"DP-1", "DP-2"}, QueueDepth: 2, NumWorkers: 4}
	s, err := New("127.0.0.1:0", "1.2.3", func() Stats { return want })
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Serve's echo.StartServer call needs a moment to actually accept.
	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health HealthzResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Version != "1.2.3" {
		t.Fatalf("got %+v", health)
	}

	resp2, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var metrics MetricsResponse
	if err := json.NewDecoder(resp2.Body).Decode(&metrics); err != nil {
		t.Fatal(err)
	}
	if metrics.Namespace != "main" || metrics.QueueDepth != 2 || metrics.NumWorkers != 4 {
		t.Fatalf("got %+v", metrics)
	}
	if len(metrics.Outputs) != 2 {
		t.Fatalf("got outputs %v", metrics.Outputs)
	}
}
