// Copyright 2024 The sockshim Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux && (amd64 || arm64 || riscv64)

package hostsock

import (
	"bytes"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"sockshim.dev/sockshim/pkg/abi/linux"
	"sockshim.dev/sockshim/pkg/socket"
)

func socketPair(t *testing.T) (int32, int32) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair failed: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return int32(fds[0]), int32(fds[1])
}

func TestSendRecv(t *testing.T) {
	a, b := socketPair(t)
	h := New()

	want := []byte("compatibility layer payload")
	n, err := socket.SendMsg(h, a, &socket.Message{
		Iov:  [][]byte{want[:4], want[4:]},
		Pad1: 0xffffffff,
		Pad2: 0xffffffff,
	}, 0)
	if err != nil {
		t.Fatalf("SendMsg failed: %v", err)
	}
	if n != len(want) {
		t.Fatalf("SendMsg sent %d bytes, expected %d", n, len(want))
	}

	got := make([]byte, 64)
	rn, err := h.RecvMsg(b, &socket.Message{Iov: [][]byte{got}}, 0)
	if err != nil {
		t.Fatalf("RecvMsg failed: %v", err)
	}
	if !bytes.Equal(got[:rn], want) {
		t.Errorf("received %q, expected %q", got[:rn], want)
	}
}

func TestRightsPassing(t *testing.T) {
	a, b := socketPair(t)
	h := New()

	var pipe [2]int
	if err := unix.Pipe(pipe[:]); err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	defer unix.Close(pipe[0])
	defer unix.Close(pipe[1])

	if _, err := socket.SendMsg(h, a, &socket.Message{
		Iov:     [][]byte{{0x0}},
		Control: socket.PackRights(nil, int32(pipe[1])),
	}, 0); err != nil {
		t.Fatalf("SendMsg with rights failed: %v", err)
	}

	msg := &socket.Message{
		Iov:     [][]byte{make([]byte, 1)},
		Control: make([]byte, 64),
	}
	if _, err := h.RecvMsg(b, msg, 0); err != nil {
		t.Fatalf("RecvMsg failed: %v", err)
	}
	fds := socket.ParseRights(msg.Control)
	if len(fds) != 1 {
		t.Fatalf("received %d descriptors, expected 1", len(fds))
	}
	defer unix.Close(int(fds[0]))

	// The received descriptor is the write end of the pipe.
	if _, err := unix.Write(int(fds[0]), []byte("ok")); err != nil {
		t.Fatalf("write through received descriptor failed: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := unix.Read(pipe[0], buf); err != nil {
		t.Fatalf("read from pipe failed: %v", err)
	}
	if !bytes.Equal(buf, []byte("ok")) {
		t.Errorf("read %q through passed descriptor, expected %q", buf, "ok")
	}
}

func TestRecvMsgShortNameBuffer(t *testing.T) {
	dir := t.TempDir()
	recvAddr := &unix.SockaddrUnix{Name: filepath.Join(dir, "r.sock")}
	sendAddr := &unix.SockaddrUnix{Name: filepath.Join(dir, "s.sock")}

	rfd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socket failed: %v", err)
	}
	defer unix.Close(rfd)
	if err := unix.Bind(rfd, recvAddr); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	sfd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socket failed: %v", err)
	}
	defer unix.Close(sfd)
	// The sender is path-bound, so its sockaddr is larger than the
	// receiver's 4-byte name buffer below.
	if err := unix.Bind(sfd, sendAddr); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := unix.Sendto(sfd, []byte("x"), 0, recvAddr); err != nil {
		t.Fatalf("sendto failed: %v", err)
	}

	h := New()
	msg := &socket.Message{
		Name: make([]byte, 4),
		Iov:  [][]byte{make([]byte, 1)},
	}
	n, err := h.RecvMsg(int32(rfd), msg, 0)
	if err != nil {
		t.Fatalf("RecvMsg failed: %v", err)
	}
	if n != 1 {
		t.Errorf("received %d bytes, expected 1", n)
	}
	// The kernel reports the sender's full address length; the truncated
	// name buffer must keep its own bounds.
	if len(msg.Name) > 4 {
		t.Errorf("name buffer grew past its capacity: %d bytes", len(msg.Name))
	}
}

func TestAccept4Flags(t *testing.T) {
	lfd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socket failed: %v", err)
	}
	defer unix.Close(lfd)
	sa := &unix.SockaddrUnix{Name: filepath.Join(t.TempDir(), "l.sock")}
	if err := unix.Bind(lfd, sa); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := unix.Listen(lfd, 1); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	cfd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socket failed: %v", err)
	}
	defer unix.Close(cfd)
	if err := unix.Connect(cfd, sa); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	h := New()
	nfd, _, err := socket.Accept4(h, int32(lfd), nil, linux.SOCK_CLOEXEC|linux.SOCK_NONBLOCK)
	if err != nil {
		t.Fatalf("Accept4 failed: %v", err)
	}
	defer unix.Close(int(nfd))

	fdFlags, err := unix.FcntlInt(uintptr(nfd), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("F_GETFD failed: %v", err)
	}
	if fdFlags&unix.FD_CLOEXEC == 0 {
		t.Errorf("accepted descriptor is not close-on-exec")
	}
	flFlags, err := unix.FcntlInt(uintptr(nfd), unix.F_GETFL, 0)
	if err != nil {
		t.Fatalf("F_GETFL failed: %v", err)
	}
	if flFlags&unix.O_NONBLOCK == 0 {
		t.Errorf("accepted descriptor is not non-blocking")
	}
}

func TestAcceptTruncatedAddr(t *testing.T) {
	dir := t.TempDir()
	listenAddr := &unix.SockaddrUnix{Name: filepath.Join(dir, "l.sock")}

	lfd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socket failed: %v", err)
	}
	defer unix.Close(lfd)
	if err := unix.Bind(lfd, listenAddr); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := unix.Listen(lfd, 1); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	cfd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socket failed: %v", err)
	}
	defer unix.Close(cfd)
	// Bind the client so its peer address does not fit a 4-byte buffer.
	if err := unix.Bind(cfd, &unix.SockaddrUnix{Name: filepath.Join(dir, "c.sock")}); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if err := unix.Connect(cfd, listenAddr); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	addr := make([]byte, 4)
	nfd, addrLen, err := New().Accept(int32(lfd), addr)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	defer unix.Close(int(nfd))
	// The kernel reports the peer's full address length even when the
	// buffer only holds a prefix.
	if addrLen <= uint32(len(addr)) {
		t.Errorf("addrLen = %d, expected the full sockaddr length past %d", addrLen, len(addr))
	}
}
