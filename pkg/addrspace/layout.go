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

// Package addrspace decides whether guest-supplied memory references lie in
// memory the guest may touch.
//
// A guest has two valid ranges: the program image [0, ELFMax) and the
// dynamic mapping area [MmapBase, MmapBase+MmapLen). Every buffer, string or
// vector passed as a syscall argument must lie entirely inside one of them.
package addrspace

import (
	"fmt"

	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

// Layout holds the valid ranges of one guest. It is immutable.
type Layout struct {
	elf  hostarch.AddrRange
	mmap hostarch.AddrRange
}

// NewLayout returns the layout [0, elfMax) plus [mmapBase, mmapBase+mmapLen).
// Both ranges must be non-empty, must not wrap and must not overlap.
func NewLayout(elfMax, mmapBase hostarch.Addr, mmapLen uint64) (*Layout, error) {
	if elfMax == 0 {
		return nil, fmt.Errorf("empty program range")
	}
	if mmapLen == 0 {
		return nil, fmt.Errorf("empty mapping range at %v", mmapBase)
	}
	mmap, ok := mmapBase.ToRange(mmapLen)
	if !ok {
		return nil, fmt.Errorf("mapping range %v+%#x overflows", mmapBase, mmapLen)
	}
	elf := hostarch.AddrRange{Start: 0, End: elfMax}
	if elf.Overlaps(mmap) {
		return nil, fmt.Errorf("program range %v overlaps mapping range %v", elf, mmap)
	}
	return &Layout{elf: elf, mmap: mmap}, nil
}

// ELF returns the program image range.
func (l *Layout) ELF() hostarch.AddrRange {
	return l.elf
}

// Mmap returns the dynamic mapping range.
func (l *Layout) Mmap() hostarch.AddrRange {
	return l.mmap
}

// Ranges returns both valid ranges in address order.
func (l *Layout) Ranges() []hostarch.AddrRange {
	if l.mmap.Start < l.elf.Start {
		return []hostarch.AddrRange{l.mmap, l.elf}
	}
	return []hostarch.AddrRange{l.elf, l.mmap}
}

// RangeOf returns the valid range containing addr.
func (l *Layout) RangeOf(addr hostarch.Addr) (hostarch.AddrRange, bool) {
	switch {
	case l.elf.Contains(addr):
		return l.elf, true
	case l.mmap.Contains(addr):
		return l.mmap, true
	}
	return hostarch.AddrRange{}, false
}

// Contains returns true if [ptr, ptr+length) lies entirely inside one valid
// range. A zero length is always contained.
func (l *Layout) Contains(ptr hostarch.Addr, length uint64) bool {
	if length == 0 {
		return true
	}
	ar, ok := ptr.ToRange(length)
	if !ok {
		return false
	}
	return l.elf.IsSupersetOf(ar) || l.mmap.IsSupersetOf(ar)
}

// CheckExtent returns linuxerr.EFAULT unless [ptr, ptr+length) lies entirely
// inside one valid range. An extent straddling both ranges, or one whose end
// overflows, is rejected.
func (l *Layout) CheckExtent(ptr hostarch.Addr, length uint64) error {
	if !l.Contains(ptr, length) {
		return linuxerr.EFAULT
	}
	return nil
}
