// Package debughttp serves a loopback-only diagnostic surface for
// swww-daemon, opt-in via --debug-http. It is grounded on
// matjam-smoothpaper/internal/ipc's echo.Echo server (Start/RegisterRoutes),
// generalized from that package's Unix-socket control API to a plain HTTP
// server bound to 127.0.0.1 that exposes read-only status instead of
// mutating commands — swww's own control plane is internal/ipc's Unix
// socket, not HTTP.
package debughttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// StatsFunc supplies the live daemon state /metrics reports. Grounded on
// internal/ipc/handlers.go's statusHandler closing over a ManagerInterface;
// here it closes over *internal/daemon.Daemon.Stats instead.
type StatsFunc func() Stats

// Stats mirrors internal/daemon.Daemon.Stats without importing the daemon
// package back into debughttp — cliapp, which already imports both, does
// the field-for-field conversion at the call site.
type Stats struct {
	Namespace  string
	Outputs    []string
	QueueDepth int
	NumWorkers int
}

// Server is a loopback-only HTTP server serving /healthz and /metrics.
type Server struct {
	echo     *echo.Echo
	listener net.Listener
}

// New builds a Server bound to addr (normally "127.0.0.1:0" to let the
// kernel pick a free port; the actual address is available via Addr()
// after Start). version is reported by /healthz.
func New(addr string, version string, stats StatsFunc) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("debughttp: listen %s: %w", addr, err)
	}
	if !isLoopback(ln.Addr()) {
		ln.Close()
		return nil, fmt.Errorf("debughttp: refusing to bind non-loopback address %s", addr)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Listener = ln
	e.Use(echomw.Recover())
	e.Use(requestLog())

	registerRoutes(e, version, stats)

	return &Server{echo: e, listener: ln}, nil
}

// Addr returns the address Server is bound to, including the kernel-chosen
// port when New was called with a ":0" port.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve blocks until ctx is canceled or the server errors, then shuts down
// gracefully. Run it in its own goroutine alongside Daemon.Run.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.StartServer(new(http.Server)); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func isLoopback(addr net.Addr) bool {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return false
	}
	return tcpAddr.IP.IsLoopback()
}

// requestLog is the CharmLog-shaped middleware
// matjam-smoothpaper/internal/ipc/server.go references
// (middleware.CharmLog()) but never actually ships in that repo — rebuilt
// here against charmbracelet/log directly since the debug surface still
// wants request-level logging.
func requestLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Debugf("debughttp: %s %s %d %s", c.Request().Method, c.Request().URL.Path,
				c.Response().Status, time.Since(start))
			return err
		}
	}
}
