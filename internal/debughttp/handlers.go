package debughttp

import (
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
)

// HealthzResponse is /healthz's body, grounded on
// matjam-smoothpaper/internal/ipc/handlers.go's StatusResponse.
type HealthzResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

func healthzHandler(version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, HealthzResponse{
			Status:  "ok",
			Version: strings.Trim(version, "\n\r "),
			PID:     os.Getpid(),
		}, "  ")
	}
}

// MetricsResponse is /metrics's body: a JSON snapshot rather than a
// Prometheus text exposition, since none of the retrieved examples pull in
// a Prometheus client and a hand-rolled text format would only imitate one
// badly.
type MetricsResponse struct {
	Namespace  string   `json:"namespace"`
	Outputs    []string `json:"outputs"`
	QueueDepth int      `json:"queue_depth"`
	NumWorkers int      `json:"num_workers"`
}

func metricsHandler(stats StatsFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := stats()
		return c.JSONPretty(http.StatusOK, MetricsResponse{
			Namespace:  s.Namespace,
			Outputs:    s.Outputs,
			QueueDepth: s.QueueDepth,
			NumWorkers: s.NumWorkers,
		}, "  ")
	}
}
