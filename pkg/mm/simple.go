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

package mm

import (
	"fmt"

	"github.com/google/btree"
	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/log"
)

// VMA is a mapped range with uniform protection.
type VMA struct {
	hostarch.AddrRange
	Prot  int
	Flags int
}

// String implements fmt.Stringer.String.
func (v VMA) String() string {
	return fmt.Sprintf("%v prot=%#x flags=%#x", v.AddrRange, v.Prot, v.Flags)
}

func vmaLess(a, b VMA) bool {
	return a.Start < b.Start
}

// Simple is a Manager that only keeps books: it tracks the program break
// inside [brkBase, brkMax) and anonymous mappings inside the mapping range,
// without backing memory. Pages are populated by the fault handler when the
// guest touches them.
//
// Simple is not safe for concurrent use.
type Simple struct {
	brkBase hostarch.Addr
	brkMax  hostarch.Addr
	brk     hostarch.Addr

	area hostarch.AddrRange
	vmas *btree.BTreeG[VMA]
}

// NewSimple returns a manager whose break starts at brkBase and may grow up
// to brkMax, and whose mappings are placed inside area.
func NewSimple(brkBase, brkMax hostarch.Addr, area hostarch.AddrRange) *Simple {
	return &Simple{
		brkBase: brkBase,
		brkMax:  brkMax,
		brk:     brkBase,
		area:    area,
		vmas:    btree.NewG[VMA](8, vmaLess),
	}
}

// Brk implements Manager.Brk.
func (s *Simple) Brk(addr hostarch.Addr) uintptr {
	if addr < s.brkBase || addr > s.brkMax {
		return uintptr(s.brk)
	}
	s.brk = addr
	return uintptr(s.brk)
}

// Mmap implements Manager.Mmap. Only anonymous mappings are supported.
func (s *Simple) Mmap(addr hostarch.Addr, length uint64, prot, flags int, fd int, offset int64) uintptr {
	if length == 0 {
		return linuxerr.ToReturn(linuxerr.EINVAL)
	}
	if flags&unix.MAP_ANONYMOUS == 0 {
		log.Debugf("mmap of fd %d refused: file mappings are not supported", fd)
		return linuxerr.ToReturn(linuxerr.ENODEV)
	}
	if !addr.IsPageAligned() && flags&unix.MAP_FIXED != 0 {
		return linuxerr.ToReturn(linuxerr.EINVAL)
	}
	rounded, ok := hostarch.Addr(length).RoundUp()
	if !ok {
		return linuxerr.ToReturn(linuxerr.ENOMEM)
	}
	ar, ok := addr.ToRange(uint64(rounded))
	if flags&unix.MAP_FIXED != 0 {
		if !ok || !s.area.IsSupersetOf(ar) {
			return linuxerr.ToReturn(linuxerr.ENOMEM)
		}
		s.carve(ar)
	} else if !ok || addr == 0 || !s.area.IsSupersetOf(ar) || s.overlaps(ar) {
		start, found := s.findGap(uint64(rounded))
		if !found {
			return linuxerr.ToReturn(linuxerr.ENOMEM)
		}
		ar = hostarch.AddrRange{Start: start, End: start + rounded}
	}
	s.vmas.ReplaceOrInsert(VMA{AddrRange: ar, Prot: prot, Flags: flags})
	return uintptr(ar.Start)
}

// Munmap implements Manager.Munmap.
func (s *Simple) Munmap(addr hostarch.Addr, length uint64) uintptr {
	ar, err := alignedRange(addr, length)
	if err != nil {
		return linuxerr.ToReturn(linuxerr.EINVAL)
	}
	s.carve(ar)
	return 0
}

// Mprotect implements Manager.Mprotect.
func (s *Simple) Mprotect(addr hostarch.Addr, length uint64, prot int) uintptr {
	ar, err := alignedRange(addr, length)
	if err != nil {
		return linuxerr.ToReturn(linuxerr.EINVAL)
	}
	if ar.Length() == 0 {
		return 0
	}
	vmas := s.overlapping(ar)
	// The whole range must be mapped.
	cur := ar.Start
	for _, v := range vmas {
		if v.Start > cur {
			return linuxerr.ToReturn(linuxerr.ENOMEM)
		}
		cur = v.End
	}
	if cur < ar.End {
		return linuxerr.ToReturn(linuxerr.ENOMEM)
	}
	s.carve(ar)
	for _, v := range vmas {
		if v.Start < ar.Start {
			v.Start = ar.Start
		}
		if v.End > ar.End {
			v.End = ar.End
		}
		v.Prot = prot
		s.vmas.ReplaceOrInsert(v)
	}
	return 0
}

// Find returns the mapping containing addr.
func (s *Simple) Find(addr hostarch.Addr) (VMA, bool) {
	var found VMA
	ok := false
	s.vmas.DescendLessOrEqual(VMA{AddrRange: hostarch.AddrRange{Start: addr}}, func(v VMA) bool {
		if v.Contains(addr) {
			found, ok = v, true
		}
		return false
	})
	return found, ok
}

// Mappings returns all mappings in address order.
func (s *Simple) Mappings() []VMA {
	vmas := make([]VMA, 0, s.vmas.Len())
	s.vmas.Ascend(func(v VMA) bool {
		vmas = append(vmas, v)
		return true
	})
	return vmas
}

// Break returns the current program break.
func (s *Simple) Break() hostarch.Addr {
	return s.brk
}

func alignedRange(addr hostarch.Addr, length uint64) (hostarch.AddrRange, error) {
	if !addr.IsPageAligned() {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	rounded, ok := hostarch.Addr(length).RoundUp()
	if !ok {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	ar, ok := addr.ToRange(uint64(rounded))
	if !ok {
		return hostarch.AddrRange{}, linuxerr.EINVAL
	}
	return ar, nil
}

// overlapping returns the mappings that intersect ar, in address order.
func (s *Simple) overlapping(ar hostarch.AddrRange) []VMA {
	var vmas []VMA
	s.vmas.DescendLessOrEqual(VMA{AddrRange: hostarch.AddrRange{Start: ar.Start}}, func(v VMA) bool {
		if v.Overlaps(ar) {
			vmas = append(vmas, v)
		}
		return false
	})
	s.vmas.AscendRange(VMA{AddrRange: hostarch.AddrRange{Start: ar.Start + 1}}, VMA{AddrRange: hostarch.AddrRange{Start: ar.End}}, func(v VMA) bool {
		vmas = append(vmas, v)
		return true
	})
	return vmas
}

func (s *Simple) overlaps(ar hostarch.AddrRange) bool {
	return len(s.overlapping(ar)) != 0
}

// carve removes ar from all mappings, splitting those that straddle it.
func (s *Simple) carve(ar hostarch.AddrRange) {
	for _, v := range s.overlapping(ar) {
		s.vmas.Delete(v)
		if v.Start < ar.Start {
			head := v
			head.End = ar.Start
			s.vmas.ReplaceOrInsert(head)
		}
		if v.End > ar.End {
			tail := v
			tail.Start = ar.End
			s.vmas.ReplaceOrInsert(tail)
		}
	}
}

// findGap returns the lowest address in the mapping area with length free
// bytes.
func (s *Simple) findGap(length uint64) (hostarch.Addr, bool) {
	cur := s.area.Start
	found := false
	s.vmas.AscendGreaterOrEqual(VMA{AddrRange: hostarch.AddrRange{Start: s.area.Start}}, func(v VMA) bool {
		if uint64(v.Start-cur) >= length {
			found = true
			return false
		}
		cur = v.End
		return true
	})
	if found {
		return cur, true
	}
	if cur <= s.area.End && uint64(s.area.End-cur) >= length {
		return cur, true
	}
	return 0, false
}
