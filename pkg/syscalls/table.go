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

package syscalls

import (
	"fmt"
	"sort"

	"boxer.dev/boxer/pkg/addrspace"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
)

// Table maps syscall numbers to rules. It is read-only after construction
// and may be shared by any number of guests.
type Table struct {
	// Name is the ABI name, e.g. "linux/amd64".
	Name string

	rules map[uintptr]Rule
}

// NewTable returns a table holding a copy of rules.
func NewTable(name string, rules map[uintptr]Rule) *Table {
	t := &Table{
		Name:  name,
		rules: make(map[uintptr]Rule, len(rules)),
	}
	for sysno, r := range rules {
		r.Checks = append([]Check(nil), r.Checks...)
		t.rules[sysno] = r
	}
	return t
}

// Lookup returns the rule for sysno.
func (t *Table) Lookup(sysno uintptr) (Rule, bool) {
	r, ok := t.rules[sysno]
	return r, ok
}

// SyscallName returns the name of sysno: the rule's name if listed, the host ABI
// name if known, or "sys_N".
func (t *Table) SyscallName(sysno uintptr) string {
	if r, ok := t.rules[sysno]; ok {
		return r.Name
	}
	if name, ok := Name(sysno); ok {
		return name
	}
	return fmt.Sprintf("sys_%d", sysno)
}

// Entry is a listed syscall.
type Entry struct {
	Sysno uintptr
	Rule
}

// Entries returns all listed syscalls ordered by number.
func (t *Table) Entries() []Entry {
	es := make([]Entry, 0, len(t.rules))
	for sysno, r := range t.rules {
		es = append(es, Entry{Sysno: sysno, Rule: r})
	}
	sort.Slice(es, func(i, j int) bool { return es[i].Sysno < es[j].Sysno })
	return es
}

// Size returns the number of listed syscalls.
func (t *Table) Size() int {
	return len(t.rules)
}

// CheckParams validates f against the rule for f.Sysno.
//
// Unlisted syscalls pass unchanged. On the first failing check the frame's
// result is set to that check's error and Rejected is returned. A check may
// also complete the call itself, in which case Handled is returned.
func (t *Table) CheckParams(v *addrspace.Validator, f *arch.TrapFrame) Verdict {
	r, ok := t.rules[f.Sysno]
	if !ok {
		return Continue
	}
	for _, c := range r.Checks {
		verdict, err := c.Apply(v, f)
		if err != nil {
			f.SetError(linuxerr.FromError(err))
			return Rejected
		}
		if verdict != Continue {
			return verdict
		}
	}
	return Continue
}
