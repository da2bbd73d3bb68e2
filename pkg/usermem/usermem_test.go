// Copyright 2026 The gVisor Authors.
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

package usermem

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

func newBytesIOString(s string) *BytesIO {
	return &BytesIO{Base: 0x1000, Bytes: []byte(s)}
}

func TestBytesIOCopyOutSuccess(t *testing.T) {
	b := newBytesIOString("ABCDE")
	n, err := b.CopyOut(0x1001, []byte("foo"))
	if wantN := 3; n != wantN || err != nil {
		t.Errorf("CopyOut: got (%v, %v), wanted (%v, nil)", n, err, wantN)
	}
	if got, want := b.Bytes, []byte("AfooE"); !bytes.Equal(got, want) {
		t.Errorf("Bytes: got %q, wanted %q", got, want)
	}
}

func TestBytesIOCopyOutFailure(t *testing.T) {
	b := newBytesIOString("ABC")
	n, err := b.CopyOut(0x1001, []byte("foo"))
	if wantN := 2; n != wantN || !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CopyOut: got (%v, %v), wanted (%v, EFAULT)", n, err, wantN)
	}
	if got, want := b.Bytes, []byte("Afo"); !bytes.Equal(got, want) {
		t.Errorf("Bytes: got %q, wanted %q", got, want)
	}
}

func TestBytesIOCopyInSuccess(t *testing.T) {
	b := newBytesIOString("AfooE")
	var dst [3]byte
	n, err := b.CopyIn(0x1001, dst[:])
	if wantN := 3; n != wantN || err != nil {
		t.Errorf("CopyIn: got (%v, %v), wanted (%v, nil)", n, err, wantN)
	}
	if got, want := dst[:], []byte("foo"); !bytes.Equal(got, want) {
		t.Errorf("dst: got %q, wanted %q", got, want)
	}
}

func TestBytesIOCopyInBelowBase(t *testing.T) {
	b := newBytesIOString("ABC")
	var dst [1]byte
	if n, err := b.CopyIn(0xfff, dst[:]); n != 0 || !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CopyIn: got (%v, %v), wanted (0, EFAULT)", n, err)
	}
}

func TestCopyInIovecs(t *testing.T) {
	b := &BytesIO{Base: 0x2000, Bytes: make([]byte, 32)}
	hostarch.ByteOrder.PutUint64(b.Bytes[0:], 0x5000)
	hostarch.ByteOrder.PutUint64(b.Bytes[8:], 10)
	hostarch.ByteOrder.PutUint64(b.Bytes[16:], 0x6000)
	hostarch.ByteOrder.PutUint64(b.Bytes[24:], 20)
	got, err := CopyInIovecs(b, 0x2000, 2)
	if err != nil {
		t.Fatalf("CopyInIovecs failed: %v", err)
	}
	want := []Iovec{{0x5000, 10}, {0x6000, 20}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CopyInIovecs mismatch (-want +got):\n%s", diff)
	}
	if _, err := CopyInIovecs(b, 0x2000, 3); !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("reading past the buffer: got %v, want EFAULT", err)
	}
}

func TestPagedIO(t *testing.T) {
	p := NewPagedIO(hostarch.AddrRange{Start: 0x10000, End: 0x13000})
	data := bytes.Repeat([]byte{'x'}, hostarch.PageSize+10)
	if n, err := p.CopyOut(0x10ffb, data); n != len(data) || err != nil {
		t.Fatalf("CopyOut: got (%v, %v), wanted (%v, nil)", n, err, len(data))
	}
	if got := p.Populated(); got != 3 {
		t.Errorf("Populated() = %d, want 3", got)
	}
	dst := make([]byte, 8)
	if n, err := p.CopyIn(0x12000, dst); n != 8 || err != nil {
		t.Fatalf("CopyIn: got (%v, %v)", n, err)
	}
	if want := []byte{'x', 'x', 'x', 'x', 'x', 0, 0, 0}; !bytes.Equal(dst, want) {
		t.Errorf("CopyIn = %q, want %q", dst, want)
	}
	if n, err := p.CopyIn(0x12ffc, dst); n != 4 || !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CopyIn across the range end: got (%v, %v), wanted (4, EFAULT)", n, err)
	}
}

func TestPagedIOUnpopulatedReadsZero(t *testing.T) {
	p := NewPagedIO(hostarch.AddrRange{Start: 0, End: 0x1000})
	dst := []byte{1, 2, 3}
	if _, err := p.CopyIn(0x10, dst); err != nil {
		t.Fatalf("CopyIn failed: %v", err)
	}
	if !bytes.Equal(dst, []byte{0, 0, 0}) {
		t.Errorf("unpopulated page read %v", dst)
	}
	if p.Populated() != 0 {
		t.Errorf("a read populated a page")
	}
}

func TestHostIO(t *testing.T) {
	mem, err := unix.Mmap(-1, 0, hostarch.PageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		t.Fatalf("Mmap failed: %v", err)
	}
	defer unix.Munmap(mem)

	base := hostarch.Addr(uintptr(unsafe.Pointer(&mem[0])))
	h := &HostIO{Ranges: []hostarch.AddrRange{{Start: base, End: base + hostarch.PageSize}}}
	if err := CopyOutUint64(h, base+8, 0xdeadbeef); err != nil {
		t.Fatalf("CopyOutUint64 failed: %v", err)
	}
	if got := hostarch.ByteOrder.Uint64(mem[8:]); got != 0xdeadbeef {
		t.Errorf("memory holds %#x, want 0xdeadbeef", got)
	}
	v, err := CopyInUint32(h, base+8)
	if err != nil || v != 0xdeadbeef {
		t.Errorf("CopyInUint32 = %#x, %v", v, err)
	}
	if _, err := h.CopyIn(base+hostarch.PageSize-4, make([]byte, 8)); !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CopyIn across the range end: got %v, want EFAULT", err)
	}
}
