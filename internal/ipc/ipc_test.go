package ipc

import (
	"bytes"
	"net"
	"os"
	"reflect"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/swwwgo/swwwgo/internal/transition"
)

func unixConnPair(t *testing.T) (*net.UnixConn, *net.UnixConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	toConn := func(fd int) *net.UnixConn {
		f := os.NewFile(uintptr(fd), "sock")
		c, err := net.FileConn(f)
		f.Close()
		if err != nil {
			t.Fatalf("FileConn: %v", err)
		}
		uc, ok := c.(*net.UnixConn)
		if !ok {
			t.Fatalf("not a unix conn: %T", c)
		}
		return uc
	}
	return toConn(fds[0]), toConn(fds[1])
}

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, byte(KindImg), []byte("hello")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	kind, payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if kind != byte(KindImg) || string(payload) != "hello" {
		t.Fatalf("got kind=%d payload=%q", kind, payload)
	}
}

func TestSendRecvMessageOverSocketpairWithoutFD(t *testing.T) {
	a, b := unixConnPair(t)
	defer a.Close()
	defer b.Close()

	req := QueryRequest{Outputs: []string{"eDP-1", "HDMI-A-1"}}
	if err := SendMessage(a, byte(KindQuery), req.Marshal(), -1); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	kind, payload, fd, err := RecvMessage(b)
	if err != nil {
		t.Fatalf("RecvMessage: %v", err)
	}
	if fd != -1 {
		t.Fatalf("fd = %d, want -1 (no descriptor attached)", fd)
	}
	if kind != byte(KindQuery) {
		t.Fatalf("kind = %d, want %d", kind, KindQuery)
	}
	got, err := UnmarshalQueryRequest(payload)
	if err != nil {
		t.Fatalf("UnmarshalQueryRequest: %v", err)
	}
	if !reflect.DeepEqual(got, req) {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestSendRecvMessageCarriesAttachedFD(t *testing.T) {
	a, b := unixConnPair(t)
	defer a.Close()
	defer b.Close()

	memfd, err := unix.MemfdCreate("swwwgo-test", 0)
	if err != nil {
		t.Skipf("memfd_create unavailable in this environment: %v", err)
	}
	defer unix.Close(memfd)
	if err := unix.Ftruncate(memfd, 4096); err != nil {
		t.Fatalf("ftruncate: %v", err)
	}

	req := ImgRequest{Path: "", ContentHash: 0xdeadbeef, Fit: "stretch"}
	if err := SendMessage(a, byte(KindImg), req.Marshal(), memfd); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	kind, payload, fd, err := RecvMessage(b)
	if err != nil {
		t.Fatalf("RecvMessage: %v", err)
	}
	defer unix.Close(fd)
	if kind != byte(KindImg) {
		t.Fatalf("kind = %d, want %d", kind, KindImg)
	}
	if fd < 0 {
		t.Fatal("expected an attached fd, got none")
	}
	got, err := UnmarshalImgRequest(payload)
	if err != nil {
		t.Fatalf("UnmarshalImgRequest: %v", err)
	}
	if got.ContentHash != req.ContentHash || got.Fit != req.Fit {
		t.Fatalf("got %+v, want %+v", got, req)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		t.Fatalf("fstat received fd: %v", err)
	}
	if st.Size != 4096 {
		t.Fatalf("received fd size = %d, want 4096 (same underlying file as the sender's memfd)", st.Size)
	}
}

func TestRequestReplyMarshalRoundTrips(t *testing.T) {
	transitionParams := ParamsFromDescriptor(transition.Descriptor{
		Type:       transition.TypeWipe,
		Step:       12,
		FPS:        30,
		DurationMS: 500,
		Bezier:     [4]float64{0.1, 0.2, 0.3, 0.4},
		AngleDeg:   90,
		Pos:        transition.Position{X: 10, Y: 20, Percentage: true},
		InvertY:    true,
		WaveSize:   [2]int{20, 30},
	})

	img := ImgRequest{
		Outputs:     []string{"eDP-1"},
		Path:        "/tmp/a.png",
		ContentHash: 42,
		Fit:         "fit",
		FilterName:  "lanczos3",
		FillColor:   "112233",
		FPSOverride: 24,
		Transition:  transitionParams,
	}
	gotImg, err := UnmarshalImgRequest(img.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalImgRequest: %v", err)
	}
	if !reflect.DeepEqual(gotImg, img) {
		t.Fatalf("Img round-trip mismatch:\ngot  %+v\nwant %+v", gotImg, img)
	}

	if gotImg.Transition.Descriptor().Pos != transition.CenterPosition &&
		gotImg.Transition.Descriptor().Type != transition.TypeWipe {
		t.Fatalf("Descriptor() lost fields: %+v", gotImg.Transition.Descriptor())
	}

	clear := ClearRequest{Outputs: []string{"HDMI-A-1"}, Color: "abcdef"}
	gotClear, err := UnmarshalClearRequest(clear.Marshal())
	if err != nil || !reflect.DeepEqual(gotClear, clear) {
		t.Fatalf("Clear round-trip: got %+v, err %v", gotClear, err)
	}

	restore := RestoreRequest{Outputs: nil}
	gotRestore, err := UnmarshalRestoreRequest(restore.Marshal())
	if err != nil || len(gotRestore.Outputs) != 0 {
		t.Fatalf("Restore round-trip: got %+v, err %v", gotRestore, err)
	}

	errReply := ErrReply{Message: "decode failed", PerOutput: map[string]string{"eDP-1": "bad header"}}
	gotErr, err := UnmarshalErrReply(errReply.Marshal())
	if err != nil || !reflect.DeepEqual(gotErr, errReply) {
		t.Fatalf("ErrReply round-trip: got %+v, err %v", gotErr, err)
	}

	info := InfoReply{Outputs: []OutputInfo{
		{Name: "eDP-1", Width: 1920, Height: 1080, Scale120: 120, ContentKind: "image", ContentPath: "/tmp/a.png"},
	}}
	gotInfo, err := UnmarshalInfoReply(info.Marshal())
	if err != nil || !reflect.DeepEqual(gotInfo, info) {
		t.Fatalf("InfoReply round-trip: got %+v, err %v", gotInfo, err)
	}
}

func TestReadFrameRejectsImplausibleLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0x7f}) // huge bogus length
	if _, _, err := ReadFrame(&buf); err == nil {
		t.Fatal("expected an error for an implausible frame length")
	}
}
