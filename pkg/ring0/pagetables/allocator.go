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
	"errors"
	"fmt"
	"math"

	"boxer.dev/boxer/pkg/hostarch"
)

var (
	// ErrNoNodes is returned when the allocator has no node left for a
	// missing page table level.
	ErrNoNodes = errors.New("page table node arena exhausted")

	// ErrNonCanonical is returned for addresses outside the lower half of
	// the four-level address space.
	ErrNonCanonical = errors.New("non-canonical address")
)

// Allocator is used to allocate and map PTEs.
type Allocator interface {
	// NewPTEs returns a new, zeroed set of PTEs and its physical address.
	NewPTEs() (*PTEs, uintptr, error)

	// LookupPTEs looks up PTEs by physical address.
	LookupPTEs(physical uintptr) *PTEs

	// Available returns the number of nodes that can still be allocated.
	Available() int
}

// ArenaAllocator allocates nodes from a host-side arena. Node i has the
// physical address (i+1)*PageSize, so a zero entry never aliases a node.
type ArenaAllocator struct {
	limit int
	nodes []*PTEs
}

// NewArenaAllocator returns an allocator that hands out at most limit nodes.
// A limit of zero or less means no limit.
func NewArenaAllocator(limit int) *ArenaAllocator {
	return &ArenaAllocator{limit: limit}
}

// NewPTEs implements Allocator.NewPTEs.
func (a *ArenaAllocator) NewPTEs() (*PTEs, uintptr, error) {
	if a.Available() == 0 {
		return nil, 0, fmt.Errorf("%w: limit %d", ErrNoNodes, a.limit)
	}
	ptes := new(PTEs)
	a.nodes = append(a.nodes, ptes)
	return ptes, uintptr(len(a.nodes)) << hostarch.PageShift, nil
}

// LookupPTEs implements Allocator.LookupPTEs.
func (a *ArenaAllocator) LookupPTEs(physical uintptr) *PTEs {
	i := int(physical>>hostarch.PageShift) - 1
	if i < 0 || i >= len(a.nodes) {
		panic(fmt.Sprintf("physical address %#x is not an arena node", physical))
	}
	return a.nodes[i]
}

// Available implements Allocator.Available.
func (a *ArenaAllocator) Available() int {
	if a.limit <= 0 {
		return math.MaxInt
	}
	return a.limit - len(a.nodes)
}

// Nodes returns the number of nodes allocated so far.
func (a *ArenaAllocator) Nodes() int {
	return len(a.nodes)
}
