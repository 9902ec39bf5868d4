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
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sockshim.dev/sockshim/pkg/abi/linux"
	"sockshim.dev/sockshim/pkg/errors/linuxerr"
	"sockshim.dev/sockshim/pkg/hostarch"
)

// buildRecord serializes one control-message record with an explicit
// reserved word and payload, padded to the record alignment.
func buildRecord(pad uint32, level, typ int32, payload []byte) []byte {
	hdr := linux.ControlMessageHeader{
		Length: uint32(linux.SizeOfControlMessageHeader + len(payload)),
		Pad:    pad,
		Level:  level,
		Type:   typ,
	}
	buf := make([]byte, linux.SizeOfControlMessageHeader, linux.SizeOfControlMessageHeader+len(payload))
	hdr.MarshalBytes(buf)
	buf = append(buf, payload...)
	for len(buf)%controlAlign != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// parseHeaders returns every header in control at its aligned offsets,
// without interpreting payloads.
func parseHeaders(t *testing.T, control []byte) []linux.ControlMessageHeader {
	t.Helper()
	var hdrs []linux.ControlMessageHeader
	for off := 0; off+linux.SizeOfControlMessageHeader <= len(control); {
		var hdr linux.ControlMessageHeader
		hdr.UnmarshalBytes(control[off:])
		hdrs = append(hdrs, hdr)
		if hdr.Length < linux.SizeOfControlMessageHeader {
			break
		}
		next := off + int(hdr.Length)
		off = (next + controlAlign - 1) &^ (controlAlign - 1)
	}
	return hdrs
}

func TestRepackZeroLength(t *testing.T) {
	var scratch [MaxControlLen]byte
	out, err := repackControl(&scratch, nil)
	if err != nil {
		t.Fatalf("repackControl(nil) failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("repackControl(nil) returned %d bytes, expected 0", len(out))
	}
}

func TestRepackOversized(t *testing.T) {
	var scratch [MaxControlLen]byte
	if _, err := repackControl(&scratch, make([]byte, MaxControlLen+1)); err != linuxerr.ENOMEM {
		t.Errorf("repackControl of %d bytes got %v, expected ENOMEM", MaxControlLen+1, err)
	}
}

func TestRepackZeroesReservedWords(t *testing.T) {
	// Three records with distinct nonzero reserved words.
	var control []byte
	control = append(control, buildRecord(0xdeadbeef, linux.SOL_SOCKET, linux.SCM_RIGHTS, []byte{1, 0, 0, 0, 2, 0, 0, 0})...)
	control = append(control, buildRecord(0xffffffff, 6, 1, []byte{9, 9, 9})...)
	control = append(control, buildRecord(0x1, linux.SOL_SOCKET, linux.SCM_CREDENTIALS, bytes.Repeat([]byte{0xab}, 12))...)

	var scratch [MaxControlLen]byte
	out, err := repackControl(&scratch, control)
	if err != nil {
		t.Fatalf("repackControl failed: %v", err)
	}
	if len(out) != len(control) {
		t.Fatalf("repacked length %d, expected %d", len(out), len(control))
	}

	got := parseHeaders(t, out)
	want := parseHeaders(t, control)
	for i := range want {
		want[i].Pad = 0
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("headers mismatch after repack (-want +got):\n%s", diff)
	}

	// Everything except the reserved words is byte-identical.
	masked := append([]byte(nil), control...)
	for off := 0; off+linux.SizeOfControlMessageHeader <= len(masked); {
		hostarch.ByteOrder.PutUint32(masked[off+linux.OffsetOfControlMessagePad:], 0)
		length := int(hostarch.ByteOrder.Uint32(masked[off:]))
		if length < linux.SizeOfControlMessageHeader {
			break
		}
		off += (length + controlAlign - 1) &^ (controlAlign - 1)
	}
	if !bytes.Equal(out, masked) {
		t.Errorf("repack changed bytes outside the reserved words:\ngot  %x\nwant %x", out, masked)
	}
}

func TestRepackShortBuffer(t *testing.T) {
	// Fewer bytes than one header: copied verbatim, nothing walked.
	control := []byte{1, 2, 3, 4, 5}
	var scratch [MaxControlLen]byte
	out, err := repackControl(&scratch, control)
	if err != nil {
		t.Fatalf("repackControl failed: %v", err)
	}
	if !bytes.Equal(out, control) {
		t.Errorf("short control block modified: got %x, want %x", out, control)
	}
}

func TestRepackMalformedTail(t *testing.T) {
	tests := []struct {
		desc    string
		control func() []byte
	}{
		{
			desc: "declared length shorter than header",
			control: func() []byte {
				rec := buildRecord(0x77, 1, 1, nil)
				hostarch.ByteOrder.PutUint32(rec, linux.SizeOfControlMessageHeader-1)
				return rec
			},
		},
		{
			desc: "overlength trailing record",
			control: func() []byte {
				first := buildRecord(0x77, 1, 1, []byte{1, 2, 3, 4})
				second := buildRecord(0x88, 1, 2, nil)
				// Declare more payload than the buffer holds.
				hostarch.ByteOrder.PutUint32(second, 4096)
				return append(first, second...)
			},
		},
		{
			desc: "truncated trailing header",
			control: func() []byte {
				first := buildRecord(0x77, 1, 1, nil)
				return append(first, 0xee, 0xee, 0xee)
			},
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			control := test.control()
			var scratch [MaxControlLen]byte
			out, err := repackControl(&scratch, control)
			if err != nil {
				t.Fatalf("repackControl failed: %v", err)
			}
			if len(out) != len(control) {
				t.Fatalf("repacked length %d, expected %d", len(out), len(control))
			}
			// The first record's reserved word is still zeroed.
			if got := hostarch.ByteOrder.Uint32(out[linux.OffsetOfControlMessagePad:]); got != 0 {
				t.Errorf("first record's reserved word = %#x, expected 0", got)
			}
		})
	}
}

func TestRepackExactFitTrailingHeader(t *testing.T) {
	// A payloadless trailing record whose header ends exactly at the end
	// of the buffer still reaches the wire, so its reserved word is
	// zeroed too.
	first := buildRecord(0x11, 1, 1, []byte{1, 2, 3, 4})
	second := buildRecord(0x22, 1, 2, nil)
	control := append(first, second...)

	var scratch [MaxControlLen]byte
	out, err := repackControl(&scratch, control)
	if err != nil {
		t.Fatalf("repackControl failed: %v", err)
	}
	if got := hostarch.ByteOrder.Uint32(out[linux.OffsetOfControlMessagePad:]); got != 0 {
		t.Errorf("first record's reserved word = %#x, expected 0", got)
	}
	if got := hostarch.ByteOrder.Uint32(out[len(first)+linux.OffsetOfControlMessagePad:]); got != 0 {
		t.Errorf("trailing record's reserved word = %#x, expected 0", got)
	}
}

func TestRepackCapacityBounds(t *testing.T) {
	fds := make([]int32, linux.SCM_MAX_FD)
	for i := range fds {
		fds[i] = int32(100 + i)
	}
	control := PackRights(nil, fds...)
	var scratch [MaxControlLen]byte
	if _, err := repackControl(&scratch, control); err != nil {
		t.Errorf("a %d-descriptor rights message should fit, got %v", linux.SCM_MAX_FD, err)
	}

	fds = make([]int32, 400)
	control = PackRights(nil, fds...)
	if _, err := repackControl(&scratch, control); err != linuxerr.ENOMEM {
		t.Errorf("a 400-descriptor rights message got %v, expected ENOMEM", err)
	}
}

func TestPackParseRights(t *testing.T) {
	want := []int32{3, 7, 11, 4095}
	control := PackRights(nil, want...)
	if len(control)%controlAlign != 0 {
		t.Errorf("packed record not aligned: %d bytes", len(control))
	}
	got := ParseRights(control)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rights round trip mismatch (-want +got):\n%s", diff)
	}

	// Two records back-to-back.
	control = PackRights(control, 13)
	got = ParseRights(control)
	if diff := cmp.Diff(append(want, 13), got); diff != "" {
		t.Errorf("two-record parse mismatch (-want +got):\n%s", diff)
	}
}
