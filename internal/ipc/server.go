package ipc

import (
	"fmt"
	"net"
	"os"
)

// Listener owns the daemon's per-namespace listening socket. The daemon's
// event loop registers Fd() directly in its poll() set (per spec.md §5)
// rather than calling Accept in a blocking loop of its own.
type Listener struct {
	ln   *net.UnixListener
	path string
}

// Listen binds the daemon's socket for namespace, refusing to start if a
// live daemon already answers a Ping on that path (spec.md §4.G) and
// removing a stale socket file left by a daemon that died uncleanly.
func Listen(namespace string) (*Listener, error) {
	path, err := SocketPath(namespace)
	if err != nil {
		return nil, err
	}

	if c, err := Dial(namespace); err == nil {
		pingErr := c.Ping()
		c.Close()
		if pingErr == nil {
			return nil, fmt.Errorf("ipc: a daemon is already running for namespace %q", namespace)
		}
	}
	_ = os.Remove(path) // stale socket from an unclean shutdown

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: resolve %s: %w", path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", path, err)
	}
	return &Listener{ln: ln, path: path}, nil
}

// Fd returns the listening socket's file descriptor for registration in a
// unix.Poll set. The returned *os.File must be kept alive by the caller for
// as long as the fd is in use (Go's runtime otherwise may finalize it).
func (l *Listener) Fd() (int, *os.File, error) {
	f, err := l.ln.File()
	if err != nil {
		return -1, nil, fmt.Errorf("ipc: listener file: %w", err)
	}
	return int(f.Fd()), f, nil
}

// Accept accepts one pending connection. Call only after poll() reports the
// listening fd is readable.
func (l *Listener) Accept() (*net.UnixConn, error) {
	conn, err := l.ln.AcceptUnix()
	if err != nil {
		return nil, fmt.Errorf("ipc: accept: %w", err)
	}
	return conn, nil
}

// Close closes the listening socket and unlinks its path, per spec.md
// §4.G's "unlinks on graceful shutdown".
func (l *Listener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.path)
	return err
}
