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

package addrspace

import (
	"testing"

	"boxer.dev/boxer/pkg/abi/linux"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/usermem"
)

const (
	testELFMax   = hostarch.Addr(0x10000)
	testMmapBase = hostarch.Addr(0x100000)
	testMmapLen  = 0x10000
	testMmapEnd  = testMmapBase + testMmapLen
)

func testLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout(testELFMax, testMmapBase, testMmapLen)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	return l
}

// boundedIO fails the test if anything reads at or past limit.
type boundedIO struct {
	t     *testing.T
	limit hostarch.Addr
	usermem.IO
}

func (b *boundedIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	if end := addr + hostarch.Addr(len(dst)); end > b.limit {
		b.t.Errorf("read [%v, %v) crosses %v", addr, end, b.limit)
	}
	return b.IO.CopyIn(addr, dst)
}

func TestNewLayout(t *testing.T) {
	for _, tc := range []struct {
		name     string
		elfMax   hostarch.Addr
		mmapBase hostarch.Addr
		mmapLen  uint64
		ok       bool
	}{
		{"default", 0x70000000, 0x100000000000, 0x3fc00000, true},
		{"empty elf", 0, 0x100000, 0x1000, false},
		{"empty mmap", 0x1000, 0x100000, 0, false},
		{"overlap", 0x200000, 0x100000, 0x1000, false},
		{"adjacent", 0x100000, 0x100000, 0x1000, true},
		{"wraps", 0x1000, ^hostarch.Addr(0) - 0xfff, 0x2000, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLayout(tc.elfMax, tc.mmapBase, tc.mmapLen)
			if (err == nil) != tc.ok {
				t.Errorf("NewLayout(%v, %v, %#x) = %v, want ok=%t", tc.elfMax, tc.mmapBase, tc.mmapLen, err, tc.ok)
			}
		})
	}
}

func TestCheckExtent(t *testing.T) {
	l := testLayout(t)
	for _, tc := range []struct {
		name   string
		ptr    hostarch.Addr
		length uint64
		ok     bool
	}{
		{"inside elf", 0x1000, 0x100, true},
		{"elf ends exactly at max", testELFMax - 0x10, 0x10, true},
		{"one byte past elf", testELFMax - 0x10, 0x11, false},
		{"inside mmap", testMmapBase + 0x20, 0x100, true},
		{"ends exactly at mmap end", testMmapEnd - 8, 8, true},
		{"one byte past mmap", testMmapEnd - 8, 9, false},
		{"below mmap", testMmapBase - 1, 2, false},
		{"gap", testELFMax + 0x1000, 1, false},
		{"straddles both", 0x1000, uint64(testMmapBase), false},
		{"zero length anywhere", 0xdead0000, 0, true},
		{"zero length null", 0, 0, true},
		{"overflow", testMmapBase, ^uint64(0), false},
		{"wraps to elf", ^hostarch.Addr(0) - 0xf, 0x20, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := l.CheckExtent(tc.ptr, tc.length)
			if tc.ok && err != nil {
				t.Errorf("CheckExtent(%v, %#x) = %v, want nil", tc.ptr, tc.length, err)
			}
			if !tc.ok && !linuxerr.Equals(linuxerr.EFAULT, err) {
				t.Errorf("CheckExtent(%v, %#x) = %v, want EFAULT", tc.ptr, tc.length, err)
			}
		})
	}
}

func newTestValidator(t *testing.T) (*Validator, *usermem.PagedIO) {
	l := testLayout(t)
	mem := usermem.NewPagedIO(l.Ranges()...)
	return NewValidator(l, &boundedIO{t: t, limit: testMmapEnd, IO: mem}), mem
}

func TestCheckString(t *testing.T) {
	v, mem := newTestValidator(t)
	mem.CopyOut(0x2000, []byte("/etc/passwd\x00"))

	if err := v.CheckString(0x2000); err != nil {
		t.Errorf("CheckString of a terminated string = %v", err)
	}
	if err := v.CheckString(testELFMax + 0x100); !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CheckString in the gap = %v, want EFAULT", err)
	}
}

func TestCheckStringCrossesPages(t *testing.T) {
	v, mem := newTestValidator(t)
	s := make([]byte, 3*hostarch.PageSize)
	for i := range s {
		s[i] = 'a'
	}
	s[len(s)-1] = 0
	mem.CopyOut(testMmapBase+0x800, s)
	if err := v.CheckString(testMmapBase + 0x800); err != nil {
		t.Errorf("CheckString across pages = %v", err)
	}
}

func TestCheckStringTerminatorAtRangeEnd(t *testing.T) {
	v, mem := newTestValidator(t)
	mem.CopyOut(testMmapEnd-4, []byte("abc\x00"))
	if err := v.CheckString(testMmapEnd - 4); err != nil {
		t.Errorf("CheckString with terminator on the last byte = %v", err)
	}
}

func TestCheckStringUnterminated(t *testing.T) {
	v, mem := newTestValidator(t)
	// Fill the last two pages of the mapping range with non-zero bytes.
	fill := make([]byte, 2*hostarch.PageSize)
	for i := range fill {
		fill[i] = 'x'
	}
	mem.CopyOut(testMmapEnd-hostarch.Addr(len(fill)), fill)
	// boundedIO fails the test if the validator reads past testMmapEnd.
	if err := v.CheckString(testMmapEnd - 0x1800); !linuxerr.Equals(linuxerr.EFAULT, err) {
		t.Errorf("CheckString of an unterminated string = %v, want EFAULT", err)
	}
}

func putIovecs(mem usermem.IO, addr hostarch.Addr, iovs []usermem.Iovec) {
	buf := make([]byte, len(iovs)*linux.SizeOfIovec)
	for i, iov := range iovs {
		hostarch.ByteOrder.PutUint64(buf[i*16:], uint64(iov.Base))
		hostarch.ByteOrder.PutUint64(buf[i*16+8:], iov.Len)
	}
	mem.CopyOut(addr, buf)
}

func TestCheckIovec(t *testing.T) {
	v, mem := newTestValidator(t)
	putIovecs(mem, 0x3000, []usermem.Iovec{
		{Base: 0x4000, Len: 0x100},
		{Base: testMmapBase, Len: 0x2000},
		{Base: 0, Len: 0},
	})
	putIovecs(mem, 0x5000, []usermem.Iovec{
		{Base: 0x4000, Len: 0x100},
		{Base: testMmapEnd - 0x10, Len: 0x20},
	})
	putIovecs(mem, testMmapEnd-16, []usermem.Iovec{
		{Base: 0x4000, Len: 1},
	})

	for _, tc := range []struct {
		name string
		iov  hostarch.Addr
		n    uint64
		want error
	}{
		{"valid", 0x3000, 3, nil},
		{"empty", 0xdead0000, 0, nil},
		{"bad element", 0x5000, 2, linuxerr.EFAULT},
		{"array outside", testELFMax - 8, 1, linuxerr.EFAULT},
		{"array at range end", testMmapEnd - 16, 1, nil},
		{"array past range end", testMmapEnd - 16, 2, linuxerr.EFAULT},
		{"too many", 0x3000, linux.UIO_MAXIOV + 1, linuxerr.EINVAL},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := v.CheckIovec(tc.iov, tc.n)
			if tc.want == nil {
				if err != nil {
					t.Errorf("CheckIovec(%v, %d) = %v, want nil", tc.iov, tc.n, err)
				}
				return
			}
			if !linuxerr.Equals(linuxerr.FromError(tc.want), err) {
				t.Errorf("CheckIovec(%v, %d) = %v, want %v", tc.iov, tc.n, err, tc.want)
			}
		})
	}
}
