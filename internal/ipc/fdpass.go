package ipc

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// SendMessage writes one framed message to conn, optionally attaching fd as
// SCM_RIGHTS ancillary data in the same sendmsg(2) call — the mechanism
// spec.md §4.G specifies for transferring a client's memfd to the daemon
// without copying pixel data through the socket buffer. Pass fd < 0 to send
// a plain frame with no attached descriptor.
func SendMessage(conn *net.UnixConn, kind byte, payload []byte, fd int) error {
	if len(payload) > maxPayloadLen {
		return fmt.Errorf("ipc: payload too large (%d bytes)", len(payload))
	}
	header := make([]byte, 5)
	header[4] = kind
	msg := append(header, payload...)
	putFrameLength(msg)

	var oob []byte
	if fd >= 0 {
		oob = unix.UnixRights(fd)
	}

	rc, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("ipc: syscall conn: %w", err)
	}
	var sendErr error
	ctlErr := rc.Write(func(rawfd uintptr) bool {
		_, _, sendErr = unix.Sendmsg(int(rawfd), msg, oob, nil, 0)
		return sendErr != unix.EAGAIN
	})
	if ctlErr != nil {
		return fmt.Errorf("ipc: sendmsg control: %w", ctlErr)
	}
	if sendErr != nil {
		return fmt.Errorf("ipc: sendmsg: %w", sendErr)
	}
	return nil
}

// RecvMessage reads one framed message from conn, returning any SCM_RIGHTS
// fd carried alongside it (-1 if none). The client and daemon each send one
// message per sendmsg(2) call, so one recvmsg(2) call always sees a whole
// message plus whatever ancillary data rode with it — the same
// one-write/one-read control-plane convention long-lived Unix daemons use
// for fd-passing over SOCK_STREAM.
func RecvMessage(conn *net.UnixConn) (kind byte, payload []byte, fd int, err error) {
	fd = -1
	buf := make([]byte, maxPayloadLen+5)
	oob := make([]byte, unix.CmsgSpace(4))

	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, nil, -1, fmt.Errorf("ipc: syscall conn: %w", err)
	}

	var n, oobn int
	var recvErr error
	ctlErr := rc.Read(func(rawfd uintptr) bool {
		n, oobn, _, _, recvErr = unix.Recvmsg(int(rawfd), buf, oob, 0)
		return recvErr != unix.EAGAIN
	})
	if ctlErr != nil {
		return 0, nil, -1, fmt.Errorf("ipc: recvmsg control: %w", ctlErr)
	}
	if recvErr != nil {
		return 0, nil, -1, fmt.Errorf("ipc: recvmsg: %w", recvErr)
	}
	if n < 5 {
		return 0, nil, -1, fmt.Errorf("ipc: short message (%d bytes)", n)
	}

	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return 0, nil, -1, fmt.Errorf("ipc: parse control message: %w", err)
		}
		for _, cmsg := range cmsgs {
			fds, err := unix.ParseUnixRights(&cmsg)
			if err != nil {
				continue
			}
			if len(fds) > 0 {
				fd = fds[0]
			}
		}
	}

	length := frameLength(buf[:n])
	if int(length)+4 != n {
		return 0, nil, -1, fmt.Errorf("ipc: frame length %d does not match received %d bytes", length, n)
	}
	return buf[4], append([]byte(nil), buf[5:n]...), fd, nil
}

func putFrameLength(msg []byte) {
	l := uint32(len(msg) - 4)
	msg[0] = byte(l)
	msg[1] = byte(l >> 8)
	msg[2] = byte(l >> 16)
	msg[3] = byte(l >> 24)
}

func frameLength(msg []byte) uint32 {
	return uint32(msg[0]) | uint32(msg[1])<<8 | uint32(msg[2])<<16 | uint32(msg[3])<<24
}
