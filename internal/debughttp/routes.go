package debughttp

import "github.com/labstack/echo/v4"

// registerRoutes mirrors internal/ipc/routes.go's RegisterRoutes shape:
// one function wiring handlers onto e, kept separate from server
// construction.
func registerRoutes(e *echo.Echo, version string, stats StatsFunc) {
	e.GET("/healthz", healthzHandler(version))
	e.GET("/metrics", metricsHandler(stats))
}
