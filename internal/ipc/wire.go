// Package ipc implements component G: a length-prefixed binary protocol
// over a Unix domain stream socket, with large pixel payloads carried
// out-of-band as a passed memfd rather than copied inline. Payload fields
// are written positionally (fixed-width integers and floats,
// length-prefixed strings) and carry no per-field tags.
//
// This supersedes the teacher's echo+resty HTTP-over-Unix-socket
// transport, which cannot carry ancillary file descriptors or express a
// length-prefixed binary frame without going through base64/JSON — see
// DESIGN.md for why those two teacher dependencies are dropped here.
package ipc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// maxPayloadLen bounds one message's metadata payload. Pixel data never
// travels inline (it rides an attached memfd instead), so a legitimate
// payload is always small: paths, transition parameters, output lists.
const maxPayloadLen = 64 * 1024

// WriteFrame writes [u32 length LE][u8 kind][payload] to w, where length
// covers exactly 1+len(payload) per spec.md §4.G's framing rule.
func WriteFrame(w io.Writer, kind byte, payload []byte) error {
	if len(payload) > maxPayloadLen {
		return fmt.Errorf("ipc: payload too large (%d bytes)", len(payload))
	}
	header := make([]byte, 5)
	binary.LittleEndian.PutUint32(header[0:4], uint32(1+len(payload)))
	header[4] = kind
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("ipc: write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("ipc: write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one [u32 length LE][u8 kind][payload] message from r.
func ReadFrame(r io.Reader) (kind byte, payload []byte, err error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return 0, nil, fmt.Errorf("ipc: read frame length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length == 0 || length > maxPayloadLen+1 {
		return 0, nil, fmt.Errorf("ipc: implausible frame length %d", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(br, body); err != nil {
		return 0, nil, fmt.Errorf("ipc: read frame body: %w", err)
	}
	return body[0], body[1:], nil
}

// writer accumulates a message payload as a positional sequence of fields:
// fixed-width little-endian integers and floats, and length-prefixed
// strings. No field carries a tag.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)  { w.buf = append(w.buf, v) }
func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) strs(ss []string) {
	w.u32(uint32(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *writer) bytes() []byte { return w.buf }

// reader parses the record stream a writer produces, bounds-checking every
// read against the remaining slice.
type reader struct {
	b   []byte
	off int
}

func newReader(b []byte) *reader { return &reader{b: b} }

func (r *reader) need(n int) error {
	if r.off+n > len(r.b) {
		return fmt.Errorf("ipc: truncated payload (need %d more bytes at offset %d, have %d)", n, r.off, len(r.b))
	}
	return nil
}

func (r *reader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.b[r.off]
	r.off++
	return v, nil
}

func (r *reader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.b[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.b[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *reader) f64() (float64, error) {
	bits, err := r.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.b[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *reader) strs() ([]string, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *reader) done() error {
	if r.off != len(r.b) {
		return fmt.Errorf("ipc: %d trailing bytes after decode", len(r.b)-r.off)
	}
	return nil
}
