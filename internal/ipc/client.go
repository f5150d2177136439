package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// SocketPath returns the per-namespace socket path of spec.md §6:
// "${XDG_RUNTIME_DIR}/${WAYLAND_DISPLAY}-swww-daemon.<namespace>.socket".
func SocketPath(namespace string) (string, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("ipc: XDG_RUNTIME_DIR is not set")
	}
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	return filepath.Join(runtimeDir, fmt.Sprintf("%s-swww-daemon.%s.socket", display, namespace)), nil
}

// Client is a short-lived connection to the daemon: connect, send one
// request, read one reply, close — per spec.md §4.G.
type Client struct {
	conn *net.UnixConn
}

// Dial connects to the daemon serving namespace.
func Dial(namespace string) (*Client, error) {
	path, err := SocketPath(namespace)
	if err != nil {
		return nil, err
	}
	c, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial %s: %w", path, err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("ipc: dial %s: not a unix socket", path)
	}
	return &Client{conn: uc}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// call sends one request with an optional attached fd and returns the raw
// reply kind/payload for the caller to unmarshal.
func (c *Client) call(kind ReqKind, payload []byte, fd int) (RepKind, []byte, error) {
	if err := SendMessage(c.conn, byte(kind), payload, fd); err != nil {
		return 0, nil, err
	}
	repKind, repPayload, _, err := RecvMessage(c.conn)
	if err != nil {
		return 0, nil, err
	}
	return RepKind(repKind), repPayload, nil
}

// Ping checks daemon liveness.
func (c *Client) Ping() error {
	kind, payload, err := c.call(KindPing, nil, -1)
	if err != nil {
		return err
	}
	return expectPong(kind, payload)
}

// Query lists outputs matching outputs (nil/empty means all).
func (c *Client) Query(outputs []string) (InfoReply, error) {
	kind, payload, err := c.call(KindQuery, QueryRequest{Outputs: outputs}.Marshal(), -1)
	if err != nil {
		return InfoReply{}, err
	}
	if kind == KindErr {
		return InfoReply{}, unmarshalErr(payload)
	}
	if kind != KindInfo {
		return InfoReply{}, fmt.Errorf("ipc: unexpected reply kind %v to query", RepKind(kind))
	}
	return UnmarshalInfoReply(payload)
}

// Img sends an Img request. If req.Path == "", stdinFD is attached to the
// message as the pixel source per spec.md §4.C's stdin [SUPPLEMENT]; the
// caller is responsible for owning a memfd or regular fd it wants the
// daemon to read from.
func (c *Client) Img(req ImgRequest, stdinFD int) error {
	fd := -1
	if req.Path == "" {
		fd = stdinFD
	}
	kind, payload, err := c.call(KindImg, req.Marshal(), fd)
	if err != nil {
		return err
	}
	return expectOk(kind, payload)
}

// Clear sends a Clear request.
func (c *Client) Clear(req ClearRequest) error {
	kind, payload, err := c.call(KindClear, req.Marshal(), -1)
	if err != nil {
		return err
	}
	return expectOk(kind, payload)
}

// Restore sends a Restore request.
func (c *Client) Restore(req RestoreRequest) error {
	kind, payload, err := c.call(KindRestore, req.Marshal(), -1)
	if err != nil {
		return err
	}
	return expectOk(kind, payload)
}

// ClearCache sends a ClearCache request.
func (c *Client) ClearCache() error {
	kind, payload, err := c.call(KindClearCache, nil, -1)
	if err != nil {
		return err
	}
	return expectOk(kind, payload)
}

// Kill sends a Kill request.
func (c *Client) Kill() error {
	kind, payload, err := c.call(KindKill, nil, -1)
	if err != nil {
		return err
	}
	return expectOk(kind, payload)
}

func expectOk(kind RepKind, payload []byte) error {
	switch kind {
	case KindOk:
		return nil
	case KindErr:
		return unmarshalErr(payload)
	default:
		return fmt.Errorf("ipc: unexpected reply kind %v", kind)
	}
}

func expectPong(kind RepKind, payload []byte) error {
	switch kind {
	case KindPong:
		return nil
	case KindErr:
		return unmarshalErr(payload)
	default:
		return fmt.Errorf("ipc: unexpected reply kind %v to ping", kind)
	}
}

func unmarshalErr(payload []byte) error {
	e, err := UnmarshalErrReply(payload)
	if err != nil {
		return fmt.Errorf("ipc: malformed error reply: %w", err)
	}
	if len(e.PerOutput) == 0 {
		return fmt.Errorf("%s", e.Message)
	}
	return fmt.Errorf("%s: %v", e.Message, e.PerOutput)
}
