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
	"unsafe"

	"golang.org/x/sys/unix"

	"sockshim.dev/sockshim/pkg/errors/linuxerr"
	"sockshim.dev/sockshim/pkg/socket"
)

// buildIovec builds an iovec slice from the given []byte slice.
//
// iovecs is used as an initial slice, to avoid excessive allocations.
func buildIovec(bufs [][]byte, iovecs []unix.Iovec) ([]unix.Iovec, int) {
	var length int
	for i := range bufs {
		if l := len(bufs[i]); l > 0 {
			iovecs = append(iovecs, unix.Iovec{
				Base: &bufs[i][0],
				Len:  uint64(l),
			})
			length += l
		}
	}
	return iovecs, length
}

// Accept implements socket.Backend.Accept.
//
// accept4 with zero flags is used rather than accept; arm64 and riscv64 do
// not define SYS_ACCEPT.
func (*Host) Accept(fd int32, addr []byte) (int32, uint32, error) {
	var (
		addrPtr unsafe.Pointer
		lenPtr  unsafe.Pointer
		addrLen = uint32(len(addr))
	)
	if len(addr) != 0 {
		addrPtr = unsafe.Pointer(&addr[0])
		lenPtr = unsafe.Pointer(&addrLen)
	}
	for {
		nfd, _, e := unix.Syscall6(unix.SYS_ACCEPT4, uintptr(fd), uintptr(addrPtr), uintptr(lenPtr), 0, 0, 0)
		if e == unix.EINTR {
			continue
		}
		if e != 0 {
			return -1, 0, linuxerr.ErrorFromUnix(e)
		}
		return int32(nfd), addrLen, nil
	}
}

// Fcntl implements socket.Backend.Fcntl.
func (*Host) Fcntl(fd, cmd, arg int32) (int32, error) {
	r, _, e := unix.Syscall(unix.SYS_FCNTL, uintptr(fd), uintptr(cmd), uintptr(arg))
	if e != 0 {
		return -1, linuxerr.ErrorFromUnix(e)
	}
	return int32(r), nil
}

// msghdr builds a host message header referencing msg's buffers. The
// returned header is only valid while msg and iovecs are live.
func msghdr(msg *socket.Message, iovecs []unix.Iovec) unix.Msghdr {
	var hdr unix.Msghdr
	if len(msg.Name) != 0 {
		hdr.Name = &msg.Name[0]
		hdr.Namelen = uint32(len(msg.Name))
	}
	if len(msg.Control) != 0 {
		hdr.Control = &msg.Control[0]
		hdr.Controllen = uint64(len(msg.Control))
	}
	if len(iovecs) != 0 {
		hdr.Iov = &iovecs[0]
		hdr.Iovlen = uint64(len(iovecs))
	}
	return hdr
}

// SendMsg implements socket.Backend.SendMsg.
func (*Host) SendMsg(fd int32, msg *socket.Message, flags int32) (int, error) {
	if msg == nil {
		return 0, linuxerr.EFAULT
	}
	iovecs, _ := buildIovec(msg.Iov, make([]unix.Iovec, 0, 2))
	hdr := msghdr(msg, iovecs)
	for {
		n, _, e := unix.Syscall(unix.SYS_SENDMSG, uintptr(fd), uintptr(unsafe.Pointer(&hdr)), uintptr(flags))
		if e == unix.EINTR {
			continue
		}
		if e != 0 {
			return 0, linuxerr.ErrorFromUnix(e)
		}
		return int(n), nil
	}
}

// RecvMsg receives a message on fd into msg's buffers. On return msg.Name
// and msg.Control are trimmed to the lengths the kernel reported; payload
// bytes land in msg.Iov in order.
//
// The kernel reports the peer's full address length even when it exceeds
// the supplied buffer, so a trim only happens when the length fits.
func (*Host) RecvMsg(fd int32, msg *socket.Message, flags int32) (int, error) {
	if msg == nil {
		return 0, linuxerr.EFAULT
	}
	iovecs, _ := buildIovec(msg.Iov, make([]unix.Iovec, 0, 2))
	hdr := msghdr(msg, iovecs)
	for {
		n, _, e := unix.Syscall(unix.SYS_RECVMSG, uintptr(fd), uintptr(unsafe.Pointer(&hdr)), uintptr(flags))
		if e == unix.EINTR {
			continue
		}
		if e != 0 {
			return 0, linuxerr.ErrorFromUnix(e)
		}
		if hdr.Namelen < uint32(len(msg.Name)) {
			msg.Name = msg.Name[:hdr.Namelen]
		}
		if hdr.Controllen < uint64(len(msg.Control)) {
			msg.Control = msg.Control[:hdr.Controllen]
		}
		return int(n), nil
	}
}
