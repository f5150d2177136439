package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/swwwgo/swwwgo/internal/anim"
	"github.com/swwwgo/swwwgo/internal/imagepipe"
	"github.com/swwwgo/swwwgo/internal/ipc"
	"github.com/swwwgo/swwwgo/internal/ipcerr"
	"github.com/swwwgo/swwwgo/internal/transition"
	"github.com/swwwgo/swwwgo/internal/worker"
)

func transitionNone() transition.Descriptor { return transition.Descriptor{Type: transition.TypeNone} }

// multiOutputError carries one summary message plus a per-output detail
// map, matching ErrReply's shape for requests that touch several outputs
// and partially fail — spec.md §4.G's routing rule.
type multiOutputError struct {
	message   string
	perOutput map[string]string
}

func (e *multiOutputError) Error() string { return e.message }

// acceptOne accepts a single pending connection and reads its one framed
// request. The read happens directly on the event-loop goroutine: the
// request payload is always small (≤64KiB, pixel data rides an attached
// fd) and the client has already fully written it by the time it connects
// synchronously per spec.md §4.G, so this does not violate the "never
// block on I/O" rule in practice — only the decode/resize/compress work
// that follows is handed to internal/worker.
func (d *Daemon) acceptOne() {
	conn, err := d.listener.Accept()
	if err != nil {
		d.log.Warn("ipc: accept failed", "error", err)
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	kind, payload, fd, err := ipc.RecvMessage(conn)
	if err != nil {
		d.log.Warn("ipc: recv failed", "error", err)
		conn.Close()
		if fd >= 0 {
			unix.Close(fd)
		}
		return
	}

	switch ipc.ReqKind(kind) {
	case ipc.KindPing:
		d.reply(conn, ipc.PongReply{}.Marshal(), ipc.KindPong)
		conn.Close()

	case ipc.KindQuery:
		req, err := ipc.UnmarshalQueryRequest(payload)
		if err != nil {
			d.replyErr(conn, err)
			conn.Close()
			return
		}
		d.reply(conn, d.queryReply(req).Marshal(), ipc.KindInfo)
		conn.Close()

	case ipc.KindKill:
		d.reply(conn, ipc.OkReply{}.Marshal(), ipc.KindOk)
		conn.Close()
		close(d.stop)

	case ipc.KindClearCache:
		d.submit(conn, -1, func(ctx context.Context) (any, error) {
			return nil, d.ClearCache()
		})

	case ipc.KindImg:
		req, err := ipc.UnmarshalImgRequest(payload)
		if err != nil {
			d.replyErr(conn, err)
			conn.Close()
			if fd >= 0 {
				unix.Close(fd)
			}
			return
		}
		d.submit(conn, fd, func(ctx context.Context) (any, error) {
			return nil, d.handleImg(ctx, req, fd)
		})

	case ipc.KindClear:
		req, err := ipc.UnmarshalClearRequest(payload)
		if err != nil {
			d.replyErr(conn, err)
			conn.Close()
			return
		}
		d.submit(conn, -1, func(ctx context.Context) (any, error) {
			return nil, d.handleClear(req)
		})

	case ipc.KindRestore:
		req, err := ipc.UnmarshalRestoreRequest(payload)
		if err != nil {
			d.replyErr(conn, err)
			conn.Close()
			return
		}
		d.submit(conn, -1, func(ctx context.Context) (any, error) {
			return nil, d.handleRestore(req)
		})

	default:
		d.replyErr(conn, fmt.Errorf("unknown request kind %d", kind))
		conn.Close()
		if fd >= 0 {
			unix.Close(fd)
		}
	}
}

// submit hands job off to the worker pool and records conn so drainResults
// can answer it once the result arrives.
func (d *Daemon) submit(conn *net.UnixConn, fd int, run func(context.Context) (any, error)) {
	d.pendingMu.Lock()
	d.nextJobID++
	id := d.nextJobID
	d.pending[id] = &pendingRequest{conn: conn, fd: fd}
	d.pendingMu.Unlock()

	d.pool.Submit(worker.Job{ID: id, Run: run})
}

// drainResults answers every worker result ready since the last Ack.
func (d *Daemon) drainResults() {
	if err := d.pool.Ack(); err != nil {
		d.log.Warn("worker: ack failed", "error", err)
	}
	for {
		select {
		case res := <-d.pool.Results():
			d.completeRequest(res)
		default:
			return
		}
	}
}

func (d *Daemon) completeRequest(res worker.Result) {
	d.pendingMu.Lock()
	pending, ok := d.pending[res.ID]
	delete(d.pending, res.ID)
	d.pendingMu.Unlock()
	if !ok {
		return
	}
	defer pending.conn.Close()

	if res.Err == nil {
		d.reply(pending.conn, ipc.OkReply{}.Marshal(), ipc.KindOk)
		return
	}
	d.replyErr(pending.conn, res.Err)
}

func (d *Daemon) reply(conn *net.UnixConn, payload []byte, kind ipc.RepKind) {
	if err := ipc.SendMessage(conn, byte(kind), payload, -1); err != nil {
		d.log.Warn("ipc: reply failed", "error", err)
	}
}

func (d *Daemon) replyErr(conn *net.UnixConn, err error) {
	rep := ipc.ErrReply{Message: err.Error()}
	if moe, ok := err.(*multiOutputError); ok {
		rep.PerOutput = moe.perOutput
	}
	d.reply(conn, rep.Marshal(), ipc.KindErr)
}

func (d *Daemon) queryReply(req ipc.QueryRequest) ipc.InfoReply {
	names := d.matchOutputs(req.Outputs)
	out := make([]ipc.OutputInfo, 0, len(names))
	for _, name := range names {
		surf, ok := d.surfaceByName(name)
		if !ok {
			continue
		}
		w, h, scale120 := surf.Geometry()
		content := surf.Content()
		out = append(out, ipc.OutputInfo{
			Name: name, Width: int32(w), Height: int32(h), Scale120: scale120,
			ContentKind: content.Kind, ContentPath: content.Path, ContentColor: content.Color,
		})
	}
	return ipc.InfoReply{Outputs: out}
}

// resolveOptions applies spec.md §4.C's defaults for fields the client
// left blank.
func resolveOptions(req ipc.ImgRequest) (imagepipe.Options, error) {
	fitStr := req.Fit
	if fitStr == "" {
		fitStr = string(imagepipe.FitFit)
	}
	fit, err := imagepipe.ParseFitMode(fitStr)
	if err != nil {
		return imagepipe.Options{}, err
	}

	filterStr := req.FilterName
	if filterStr == "" {
		filterStr = string(imagepipe.FilterLanczos3)
	}
	filter, err := imagepipe.ParseFilter(filterStr)
	if err != nil {
		return imagepipe.Options{}, err
	}

	fill := imagepipe.Color{}
	if req.FillColor != "" {
		fill, err = imagepipe.ParseColor(req.FillColor)
		if err != nil {
			return imagepipe.Options{}, err
		}
	}

	return imagepipe.Options{Fit: fit, Filter: filter, Fill: fill}, nil
}

// handleImg is the worker-pool job body for an Img request: it decodes
// (imagepipe.Load, invoked inside surface.SetImage) once per matched
// output, reusing the fd-backed reader by seeking back to the start
// between outputs since spec.md §4.G's attached descriptor is always a
// seekable memfd.
func (d *Daemon) handleImg(ctx context.Context, req ipc.ImgRequest, fd int) error {
	defer func() {
		if fd >= 0 {
			unix.Close(fd)
		}
	}()

	outputs := d.matchOutputs(req.Outputs)
	if len(outputs) == 0 {
		return ipcerr.New(ipcerr.NoOutput, "", fmt.Errorf("no output matched the given names"))
	}

	opt, err := resolveOptions(req)
	if err != nil {
		return ipcerr.New(ipcerr.Decode, "", err)
	}
	desc := req.Transition.Descriptor()

	var stdinFile *os.File
	if req.Path == "" {
		stdinFile = os.NewFile(uintptr(fd), "swww-img-fd")
	}

	perOutput := map[string]string{}
	for _, name := range outputs {
		surf, ok := d.surfaceByName(name)
		if !ok {
			continue
		}

		bufW, bufH := surf.BufferSize()
		if cached, ok := d.loadCachedAnimation(req.ContentHash); ok &&
			cached.Anchor.Width == bufW && cached.Anchor.Height == bufH {
			if err := surf.Restore(ctx, cached, desc, req.Path); err != nil {
				perOutput[name] = err.Error()
			}
			continue
		}

		var reader io.Reader
		var closer io.Closer
		if stdinFile != nil {
			if _, err := stdinFile.Seek(0, io.SeekStart); err != nil {
				perOutput[name] = err.Error()
				continue
			}
			reader = stdinFile
		} else {
			rc, err := imagepipe.OpenPath(req.Path)
			if err != nil {
				perOutput[name] = err.Error()
				continue
			}
			reader, closer = rc, rc
		}

		targetHash := req.ContentHash
		surf.SetOnAnimationBuilt(func(a anim.Animation) { d.saveCachedAnimation(targetHash, a) })
		if err := surf.SetImage(ctx, reader, opt, desc, req.Path); err != nil {
			perOutput[name] = err.Error()
		}
		if closer != nil {
			closer.Close()
		}
	}

	if stdinFile != nil {
		stdinFile.Close()
		fd = -1
	}

	if len(perOutput) > 0 {
		return &multiOutputError{message: "img failed on some outputs", perOutput: perOutput}
	}
	return nil
}

func (d *Daemon) handleClear(req ipc.ClearRequest) error {
	outputs := d.matchOutputs(req.Outputs)
	if len(outputs) == 0 {
		return ipcerr.New(ipcerr.NoOutput, "", fmt.Errorf("no output matched the given names"))
	}
	color, err := imagepipe.ParseColor(req.Color)
	if err != nil {
		return ipcerr.New(ipcerr.Decode, "", err)
	}

	perOutput := map[string]string{}
	for _, name := range outputs {
		surf, ok := d.surfaceByName(name)
		if !ok {
			continue
		}
		if err := surf.Clear(context.Background(), color, transitionNone()); err != nil {
			perOutput[name] = err.Error()
		}
	}
	if len(perOutput) > 0 {
		return &multiOutputError{message: "clear failed on some outputs", perOutput: perOutput}
	}
	return nil
}

func (d *Daemon) handleRestore(req ipc.RestoreRequest) error {
	outputs := d.matchOutputs(req.Outputs)
	if len(outputs) == 0 {
		return ipcerr.New(ipcerr.NoOutput, "", fmt.Errorf("no output matched the given names"))
	}

	perOutput := map[string]string{}
	for _, name := range outputs {
		surf, ok := d.surfaceByName(name)
		if !ok {
			continue
		}
		path := surf.Content().Path
		desc := transitionNone()
		if a, ok := surf.LastAnimation(); ok {
			if err := surf.Restore(context.Background(), a, desc, path); err != nil {
				perOutput[name] = err.Error()
			}
			continue
		}
		anchor := surf.CurrentFrame()
		if anchor.Width == 0 {
			perOutput[name] = "no content to restore"
			continue
		}
		if err := surf.Restore(context.Background(), anim.Animation{Anchor: anchor}, desc, path); err != nil {
			perOutput[name] = err.Error()
		}
	}
	if len(perOutput) > 0 {
		return &multiOutputError{message: "restore failed on some outputs", perOutput: perOutput}
	}
	return nil
}
