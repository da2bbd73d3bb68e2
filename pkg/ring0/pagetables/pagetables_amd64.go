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

package pagetables

import (
	"boxer.dev/boxer/pkg/hostarch"
)

// Address constraints.
//
// lowerTop applies to four-level pagetables; five-level pagetables are not
// supported.
const (
	lowerTop = 0x00007fffffffffff

	pteShift = 12

	pteSize = 1 << pteShift

	entriesPerPage = 512
)

// Bits in page table entries.
const (
	present        = 0x001
	writable       = 0x002
	user           = 0x004
	accessed       = 0x020
	dirty          = 0x040
	optionMask     = executeDisable | 0xfff
	executeDisable = 1 << 63
)

// PTE is a page table entry.
type PTE uintptr

// PTEs is a collection of entries.
type PTEs [entriesPerPage]PTE

// Clear clears this PTE.
func (p *PTE) Clear() {
	*p = 0
}

// Valid returns true iff this entry is valid.
func (p *PTE) Valid() bool {
	return *p&present != 0
}

// Opts returns the PTE options.
func (p *PTE) Opts() MapOpts {
	v := *p
	return MapOpts{
		AccessType: accessType(v),
		User:       v&user != 0,
	}
}

func accessType(v PTE) hostarch.AccessType {
	return hostarch.AccessType{
		Read:    v&present != 0,
		Write:   v&writable != 0,
		Execute: v&executeDisable == 0,
	}
}

// Set sets this PTE value.
//
// This does not change the super page property.
func (p *PTE) Set(addr uintptr, opts MapOpts) {
	if !opts.AccessType.Any() {
		p.Clear()
		return
	}
	v := (addr &^ optionMask) | present | accessed
	if opts.User {
		v |= user
	}
	if !opts.AccessType.Execute {
		v |= executeDisable
	}
	if opts.AccessType.Write {
		v |= writable | dirty
	}
	*p = PTE(v)
}

// setPageTable points this PTE at a child node. Intermediate entries are
// maximally permissive; the leaf decides.
func (p *PTE) setPageTable(addr uintptr) {
	v := (addr &^ optionMask) | present | user | writable | accessed | dirty
	*p = PTE(v)
}

// Address extracts the address. This should only be used if Valid returns
// true.
func (p *PTE) Address() uintptr {
	return uintptr(*p &^ optionMask)
}
