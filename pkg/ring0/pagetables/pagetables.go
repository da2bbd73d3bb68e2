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

// Package pagetables provides four-level amd64 page tables whose nodes live
// in a host-side arena.
//
// Nodes are never placed in guest memory. A non-leaf entry holds the arena
// "physical" address of its child, which the Allocator maps back to the
// node. The fault handler can therefore walk and extend the tables without
// touching memory that could itself fault.
package pagetables

import (
	"fmt"

	"boxer.dev/boxer/pkg/hostarch"
)

// Level identifies one level of the page table hierarchy.
type Level int

// Page table levels, from the leaf up.
const (
	PTELevel Level = iota
	PMDLevel
	PUDLevel
	PGDLevel

	numLevels = 4
)

var levelNames = [numLevels]string{"pte", "pmd", "pud", "pgd"}

// String implements fmt.Stringer.String.
func (l Level) String() string {
	if l < 0 || l >= numLevels {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Shift returns the binary log of the span covered by one entry at l.
func (l Level) Shift() uint {
	return pteShift + 9*uint(l)
}

// Index returns the index of addr's entry in a node at level l.
func (l Level) Index(addr hostarch.Addr) int {
	return int((uint64(addr) >> l.Shift()) & (entriesPerPage - 1))
}

// MapOpts are options for a leaf entry.
type MapOpts struct {
	// AccessType defines permissions.
	AccessType hostarch.AccessType

	// User indicates the page is a user page.
	User bool
}

// PageTables is a set of page tables rooted at a single PGD node.
//
// PageTables is not safe for concurrent use. Each guest owns its tables and
// handles one trap at a time.
type PageTables struct {
	// Allocator is used to allocate and look up nodes.
	Allocator Allocator

	root         *PTEs
	rootPhysical uintptr
}

// New returns new PageTables. It fails only if the allocator cannot provide a
// root node.
func New(a Allocator) (*PageTables, error) {
	root, phys, err := a.NewPTEs()
	if err != nil {
		return nil, err
	}
	return &PageTables{
		Allocator:    a,
		root:         root,
		rootPhysical: phys,
	}, nil
}

// CR3 returns the CR3 value for these tables.
func (p *PageTables) CR3() uint64 {
	return uint64(p.rootPhysical)
}

// missing returns the number of intermediate nodes that must be allocated
// before addr has a leaf slot.
func (p *PageTables) missing(addr hostarch.Addr) int {
	entries := p.root
	for level := PGDLevel; level > PTELevel; level-- {
		entry := &entries[level.Index(addr)]
		if !entry.Valid() {
			return int(level)
		}
		entries = p.Allocator.LookupPTEs(entry.Address())
	}
	return 0
}

// Walk returns the leaf entry slot for addr.
//
// If create is set, missing intermediate nodes are allocated. The number of
// nodes needed is checked against the allocator before anything is modified,
// so a failed walk leaves the tables unchanged. If create is not set and a
// level is missing, Walk returns nil and no error.
func (p *PageTables) Walk(addr hostarch.Addr, create bool) (*PTE, error) {
	if uint64(addr) > lowerTop {
		return nil, fmt.Errorf("%w: %v", ErrNonCanonical, addr)
	}
	if create {
		if need := p.missing(addr); need > 0 && p.Allocator.Available() < need {
			return nil, fmt.Errorf("%w: need %d nodes for %v, %d available", ErrNoNodes, need, addr, p.Allocator.Available())
		}
	}

	entries := p.root
	for level := PGDLevel; level > PTELevel; level-- {
		entry := &entries[level.Index(addr)]
		if !entry.Valid() {
			if !create {
				return nil, nil
			}
			child, phys, err := p.Allocator.NewPTEs()
			if err != nil {
				// Unreachable after the check above unless the
				// allocator is shared.
				return nil, err
			}
			entry.setPageTable(phys)
			entries = child
			continue
		}
		entries = p.Allocator.LookupPTEs(entry.Address())
	}
	return &entries[PTELevel.Index(addr)], nil
}

// Map installs a single page mapping of addr to physical. It returns true if
// a previous mapping was replaced.
//
// Precondition: addr and physical must be page aligned.
func (p *PageTables) Map(addr hostarch.Addr, opts MapOpts, physical uintptr) (bool, error) {
	if !addr.IsPageAligned() || physical&(hostarch.PageSize-1) != 0 {
		panic(fmt.Sprintf("unaligned mapping: %v -> %#x", addr, physical))
	}
	pte, err := p.Walk(addr, true)
	if err != nil {
		return false, err
	}
	prev := pte.Valid()
	pte.Set(physical, opts)
	return prev, nil
}

// Unmap removes the mapping for the page containing addr. It returns true if
// there was a mapping. Intermediate nodes are kept.
func (p *PageTables) Unmap(addr hostarch.Addr) bool {
	pte, _ := p.Walk(addr.RoundDown(), false)
	if pte == nil || !pte.Valid() {
		return false
	}
	pte.Clear()
	return true
}

// Lookup returns the physical address and options mapped for addr.
func (p *PageTables) Lookup(addr hostarch.Addr) (physical uintptr, opts MapOpts, ok bool) {
	pte, _ := p.Walk(addr.RoundDown(), false)
	if pte == nil || !pte.Valid() {
		return 0, MapOpts{}, false
	}
	return pte.Address() + uintptr(addr.PageOffset()), pte.Opts(), true
}

// ForEach calls fn for every valid leaf entry, in address order.
func (p *PageTables) ForEach(fn func(addr hostarch.Addr, pte *PTE)) {
	p.forEach(p.root, PGDLevel, 0, fn)
}

func (p *PageTables) forEach(entries *PTEs, level Level, base uint64, fn func(hostarch.Addr, *PTE)) {
	for i := range entries {
		entry := &entries[i]
		if !entry.Valid() {
			continue
		}
		addr := base | uint64(i)<<level.Shift()
		if level == PTELevel {
			fn(hostarch.Addr(addr), entry)
			continue
		}
		p.forEach(p.Allocator.LookupPTEs(entry.Address()), level-1, addr, fn)
	}
}
