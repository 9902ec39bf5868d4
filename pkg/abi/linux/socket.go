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

package linux

import (
	"sockshim.dev/sockshim/pkg/hostarch"
)

// Socket type flags for socket(2) and accept4(2), from linux/net.h. These
// share values with the corresponding open(2) flags.
const (
	SOCK_CLOEXEC  = O_CLOEXEC
	SOCK_NONBLOCK = O_NONBLOCK
)

// SOL_SOCKET, from linux/socket.h.
const SOL_SOCKET = 1

// Control message types, from linux/socket.h.
const (
	SCM_RIGHTS      = 0x1
	SCM_CREDENTIALS = 0x2
)

// SCM_MAX_FD is the maximum number of file descriptors a single SCM_RIGHTS
// control message carries, from net/scm.h (Linux 2.6.38 and later).
const SCM_MAX_FD = 253

// SCM_MAX_FD_LEGACY is the bound kernels before Linux 2.6.38 enforced.
// Buffers that must hold any historically valid SCM_RIGHTS payload are sized
// to it.
const SCM_MAX_FD_LEGACY = 255

// ControlMessageHeader is struct cmsghdr as a 64-bit little-endian C library
// lays it out: a 32-bit length followed by a reserved word that the kernel
// reads back as the high half of a 64-bit length. The reserved word is
// caller-undefined in process memory and must be transmitted as zero.
type ControlMessageHeader struct {
	Length uint32
	Pad    uint32
	Level  int32
	Type   int32
}

// SizeOfControlMessageHeader is the binary size of a ControlMessageHeader,
// which matches the kernel's 16-byte cmsghdr on 64-bit targets.
const SizeOfControlMessageHeader = 16

// Offsets of ControlMessageHeader fields within a serialized header.
const (
	OffsetOfControlMessagePad   = 4
	OffsetOfControlMessageLevel = 8
	OffsetOfControlMessageType  = 12
)

// MarshalBytes serializes h into the first SizeOfControlMessageHeader bytes
// of dst.
func (h *ControlMessageHeader) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint32(dst, h.Length)
	hostarch.ByteOrder.PutUint32(dst[OffsetOfControlMessagePad:], h.Pad)
	hostarch.ByteOrder.PutUint32(dst[OffsetOfControlMessageLevel:], uint32(h.Level))
	hostarch.ByteOrder.PutUint32(dst[OffsetOfControlMessageType:], uint32(h.Type))
}

// UnmarshalBytes deserializes h from the first SizeOfControlMessageHeader
// bytes of src.
func (h *ControlMessageHeader) UnmarshalBytes(src []byte) {
	h.Length = hostarch.ByteOrder.Uint32(src)
	h.Pad = hostarch.ByteOrder.Uint32(src[OffsetOfControlMessagePad:])
	h.Level = int32(hostarch.ByteOrder.Uint32(src[OffsetOfControlMessageLevel:]))
	h.Type = int32(hostarch.ByteOrder.Uint32(src[OffsetOfControlMessageType:]))
}
