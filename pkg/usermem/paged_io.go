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
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
)

// PagedIO implements IO over a sparse set of pages. Only pages inside one of
// the configured ranges are accessible; pages that were never written read as
// zeros.
type PagedIO struct {
	ranges []hostarch.AddrRange
	pages  map[hostarch.Addr][]byte
}

// NewPagedIO returns a PagedIO that allows access to the given ranges.
func NewPagedIO(ranges ...hostarch.AddrRange) *PagedIO {
	return &PagedIO{
		ranges: append([]hostarch.AddrRange(nil), ranges...),
		pages:  make(map[hostarch.Addr][]byte),
	}
}

func (p *PagedIO) accessible(addr hostarch.Addr) bool {
	for _, r := range p.ranges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// Populated returns the number of pages that have backing storage.
func (p *PagedIO) Populated() int {
	return len(p.pages)
}

// CopyOut implements IO.CopyOut.
func (p *PagedIO) CopyOut(addr hostarch.Addr, src []byte) (int, error) {
	done := 0
	for done < len(src) {
		cur := addr + hostarch.Addr(done)
		if cur < addr || !p.accessible(cur) {
			return done, linuxerr.EFAULT
		}
		page := cur.RoundDown()
		buf, ok := p.pages[page]
		if !ok {
			buf = make([]byte, hostarch.PageSize)
			p.pages[page] = buf
		}
		done += copy(buf[cur.PageOffset():], src[done:])
	}
	return done, nil
}

// CopyIn implements IO.CopyIn.
func (p *PagedIO) CopyIn(addr hostarch.Addr, dst []byte) (int, error) {
	done := 0
	for done < len(dst) {
		cur := addr + hostarch.Addr(done)
		if cur < addr || !p.accessible(cur) {
			return done, linuxerr.EFAULT
		}
		n := hostarch.PageSize - int(cur.PageOffset())
		if rem := len(dst) - done; n > rem {
			n = rem
		}
		if buf, ok := p.pages[cur.RoundDown()]; ok {
			copy(dst[done:done+n], buf[cur.PageOffset():])
		} else {
			clear(dst[done : done+n])
		}
		done += n
	}
	return done, nil
}
