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

// Package socket provides the BSD-socket compatibility layer between a
// POSIX-style socket API and a minimal kernel-provided message-send
// primitive.
//
// The layer is stateless: every operation is a synchronous call that owns no
// descriptors and keeps no buffers alive past its return. Scratch storage for
// control-data rewriting is call-local, so concurrent calls never interact
// here; ordering on a shared descriptor is whatever the backend provides.
package socket

// Message is a caller-owned message descriptor for SendMsg: the Go shape of
// struct msghdr as the C library sees it. It is read during the call only
// and never retained.
type Message struct {
	// Name is the optional peer address.
	Name []byte

	// Iov is the ordered sequence of I/O segments. SendMsg never mutates
	// the segments.
	Iov [][]byte

	// Control is the raw ancillary data block: control-message records
	// laid out back-to-back, each record's start aligned to the machine
	// word.
	Control []byte

	// Pad1 and Pad2 are the platform-reserved padding words of the
	// message header. Their in-process values are caller-undefined and
	// must read as zero on the wire.
	Pad1 uint32
	Pad2 uint32
}

// Backend is the narrow primitive surface the compatibility layer forwards
// to. Implementations need not understand accept4 flags or the C library's
// control-message header shape; this layer handles both.
type Backend interface {
	// Accept waits for and accepts a pending connection on the listening
	// descriptor fd. If addr is non-empty the peer address is written to
	// it, truncated to len(addr). The returned addrLen is the full
	// address length, which may exceed len(addr) when the address was
	// truncated.
	Accept(fd int32, addr []byte) (nfd int32, addrLen uint32, err error)

	// Fcntl issues a descriptor-flag control command against fd.
	Fcntl(fd, cmd, arg int32) (int32, error)

	// SendMsg transmits msg over fd with the given flags, returning the
	// number of payload bytes sent.
	SendMsg(fd int32, msg *Message, flags int32) (int, error)
}
