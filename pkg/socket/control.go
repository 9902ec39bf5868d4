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

package socket

import (
	"sockshim.dev/sockshim/pkg/abi/linux"
	"sockshim.dev/sockshim/pkg/bits"
	"sockshim.dev/sockshim/pkg/errors/linuxerr"
	"sockshim.dev/sockshim/pkg/hostarch"
)

const (
	// controlAlign is the alignment of control-message records on the
	// wire: the word size of the 64-bit targets whose header shape
	// requires repacking.
	controlAlign = 8

	// rightsPayload is the ancillary payload carrying
	// linux.SCM_MAX_FD_LEGACY descriptors in one SCM_RIGHTS record.
	rightsPayload = linux.SCM_MAX_FD_LEGACY * 4
)

// MaxControlLen bounds the control-data block SendMsg accepts: room for the
// largest historically valid SCM_RIGHTS message plus one spare header slot,
// in whole header-sized units so scratch storage stays record-aligned. This
// is a fixed system constant, not caller-configurable.
const MaxControlLen = (((rightsPayload+controlAlign-1)&^(controlAlign-1)+linux.SizeOfControlMessageHeader)/linux.SizeOfControlMessageHeader + 1) * linux.SizeOfControlMessageHeader

// repackControl copies control into scratch and zeroes the reserved word of
// every control-message record in the copy, returning the rewritten block.
// The in-process reserved words may carry stale bits that must read as zero
// on the wire.
//
// Control blocks larger than the scratch buffer fail with ENOMEM.
func repackControl(scratch *[MaxControlLen]byte, control []byte) ([]byte, error) {
	if len(control) > MaxControlLen {
		return nil, linuxerr.ENOMEM
	}
	buf := scratch[:len(control)]
	copy(buf, control)
	if len(buf) < linux.SizeOfControlMessageHeader {
		// No room for a full header, so no records to rewrite.
		return buf, nil
	}
	for off := 0; ; {
		// Zero the current record's reserved word.
		hostarch.ByteOrder.PutUint32(buf[off+linux.OffsetOfControlMessagePad:], 0)

		length := int(hostarch.ByteOrder.Uint32(buf[off:]))
		if length < linux.SizeOfControlMessageHeader {
			// Malformed length; stop walking.
			break
		}
		// A record's on-wire footprint is its declared length rounded
		// up to the word size.
		next := off + bits.AlignUp(length, controlAlign)
		if next+linux.SizeOfControlMessageHeader > len(buf) {
			// No room for another full header.
			break
		}
		if l := int(hostarch.ByteOrder.Uint32(buf[next:])); l >= linux.SizeOfControlMessageHeader && next+l > len(buf) {
			// Overlength trailing record; not a visitable record.
			break
		}
		off = next
	}
	return buf, nil
}

// PackRights appends one SCM_RIGHTS control-message record carrying fds to
// buf, in the C library's header shape, and returns the extended buffer. The
// record is padded to the word size so further records can be appended
// back-to-back.
func PackRights(buf []byte, fds ...int32) []byte {
	hdr := linux.ControlMessageHeader{
		Length: uint32(linux.SizeOfControlMessageHeader + 4*len(fds)),
		Level:  linux.SOL_SOCKET,
		Type:   linux.SCM_RIGHTS,
	}
	var h [linux.SizeOfControlMessageHeader]byte
	hdr.MarshalBytes(h[:])
	buf = append(buf, h[:]...)
	for _, fd := range fds {
		var b [4]byte
		hostarch.ByteOrder.PutUint32(b[:], uint32(fd))
		buf = append(buf, b[:]...)
	}
	if pad := bits.AlignUp(len(buf), controlAlign) - len(buf); pad > 0 {
		buf = append(buf, make([]byte, pad)...)
	}
	return buf
}

// ParseRights returns the descriptors carried by the SCM_RIGHTS records in
// control. Records of other types are skipped; a truncated trailing record
// ends the parse.
func ParseRights(control []byte) []int32 {
	var fds []int32
	for off := 0; off+linux.SizeOfControlMessageHeader <= len(control); {
		var hdr linux.ControlMessageHeader
		hdr.UnmarshalBytes(control[off:])
		length := int(hdr.Length)
		if length < linux.SizeOfControlMessageHeader || off+length > len(control) {
			break
		}
		if hdr.Level == linux.SOL_SOCKET && hdr.Type == linux.SCM_RIGHTS {
			for p := off + linux.SizeOfControlMessageHeader; p+4 <= off+length; p += 4 {
				fds = append(fds, int32(hostarch.ByteOrder.Uint32(control[p:])))
			}
		}
		off += bits.AlignUp(length, controlAlign)
	}
	return fds
}
