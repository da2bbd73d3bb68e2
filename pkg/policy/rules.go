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

package policy

import (
	"fmt"
	"strings"

	"boxer.dev/boxer/pkg/arch"
)

// Matcher matches a single syscall argument.
type Matcher interface {
	// Match returns true if v satisfies the matcher.
	Match(v uintptr) bool

	fmt.Stringer
}

// MatchAny is marker to indicate any value will be accepted.
type MatchAny struct{}

// Match implements Matcher.Match.
func (MatchAny) Match(uintptr) bool { return true }

func (MatchAny) String() string {
	return "*"
}

// EqualTo specifies a value that needs to be strictly matched.
type EqualTo uintptr

// Match implements Matcher.Match.
func (a EqualTo) Match(v uintptr) bool { return v == uintptr(a) }

func (a EqualTo) String() string {
	return fmt.Sprintf("== %#x", uintptr(a))
}

// NotEqual specifies a value that is strictly not equal.
type NotEqual uintptr

// Match implements Matcher.Match.
func (a NotEqual) Match(v uintptr) bool { return v != uintptr(a) }

func (a NotEqual) String() string {
	return fmt.Sprintf("!= %#x", uintptr(a))
}

// GreaterThan specifies a value that the argument must be strictly greater
// than.
type GreaterThan uintptr

// Match implements Matcher.Match.
func (a GreaterThan) Match(v uintptr) bool { return v > uintptr(a) }

func (a GreaterThan) String() string {
	return fmt.Sprintf("> %#x", uintptr(a))
}

// GreaterThanOrEqual specifies a value that the argument must be greater
// than or equal to.
type GreaterThanOrEqual uintptr

// Match implements Matcher.Match.
func (a GreaterThanOrEqual) Match(v uintptr) bool { return v >= uintptr(a) }

func (a GreaterThanOrEqual) String() string {
	return fmt.Sprintf(">= %#x", uintptr(a))
}

// LessThan specifies a value that the argument must be strictly less than.
type LessThan uintptr

// Match implements Matcher.Match.
func (a LessThan) Match(v uintptr) bool { return v < uintptr(a) }

func (a LessThan) String() string {
	return fmt.Sprintf("< %#x", uintptr(a))
}

// LessThanOrEqual specifies a value that the argument must be less than or
// equal to.
type LessThanOrEqual uintptr

// Match implements Matcher.Match.
func (a LessThanOrEqual) Match(v uintptr) bool { return v <= uintptr(a) }

func (a LessThanOrEqual) String() string {
	return fmt.Sprintf("<= %#x", uintptr(a))
}

// MaskedEqual specifies a value that matches the input after the input is
// masked (bitwise &) against the given mask. Can be used to verify that input
// only includes certain approved flags.
type MaskedEqual struct {
	Mask  uintptr
	Value uintptr
}

// Match implements Matcher.Match.
func (a MaskedEqual) Match(v uintptr) bool { return v&a.Mask == a.Value }

func (a MaskedEqual) String() string {
	return fmt.Sprintf("& %#x == %#x", a.Mask, a.Value)
}

// Rule stores the allowed syscall arguments. A nil entry matches anything.
//
// For example:
//
//	rule := Rule{
//		EqualTo(linux.ARCH_GET_FS), // arg0
//	}
type Rule [6]Matcher

// Match returns true if every non-nil matcher accepts its argument.
func (r Rule) Match(args *arch.SyscallArguments) bool {
	for i, m := range r {
		if m != nil && !m.Match(args[i].Value) {
			return false
		}
	}
	return true
}

func (r Rule) String() string {
	var parts []string
	for _, m := range r {
		if m == nil {
			parts = append(parts, "*")
			continue
		}
		parts = append(parts, m.String())
	}
	// Trailing wildcards add nothing.
	for len(parts) > 0 && parts[len(parts)-1] == "*" {
		parts = parts[:len(parts)-1]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SyscallRules stores a map of OR'ed argument rules indexed by the syscall
// number. If the rules are empty, we treat it as any argument is allowed.
//
// For example:
//
//	rules := SyscallRules{
//		unix.SYS_FCNTL: []Rule{
//			{
//				MatchAny{},
//				EqualTo(linux.F_GETFL),
//			}, // OR
//			{
//				MatchAny{},
//				EqualTo(linux.F_SETFL),
//			},
//		},
//		unix.SYS_GETPID: []Rule{},
//	}
type SyscallRules map[uintptr][]Rule

// NewSyscallRules returns a new SyscallRules.
func NewSyscallRules() SyscallRules {
	return make(map[uintptr][]Rule)
}

// AddRule adds the given rule. It will create a new entry for a new syscall,
// otherwise it will append to the existing rules.
func (sr SyscallRules) AddRule(sysno uintptr, r Rule) {
	if cur, ok := sr[sysno]; ok {
		// An empty rules means allow all. Honor it when more rules are added.
		if len(cur) == 0 {
			sr[sysno] = append(sr[sysno], Rule{})
		}
		sr[sysno] = append(sr[sysno], r)
	} else {
		sr[sysno] = []Rule{r}
	}
}

// Merge merges the given SyscallRules.
func (sr SyscallRules) Merge(rules SyscallRules) {
	for sysno, rs := range rules {
		if cur, ok := sr[sysno]; ok {
			// An empty rules means allow all. Honor it when more rules are added.
			if len(cur) == 0 {
				sr[sysno] = append(sr[sysno], Rule{})
			}
			if len(rs) == 0 {
				rs = []Rule{{}}
			}
			sr[sysno] = append(sr[sysno], rs...)
		} else {
			sr[sysno] = rs
		}
	}
}

// Matches returns true if sysno is listed and its arguments satisfy at least
// one rule.
func (sr SyscallRules) Matches(sysno uintptr, args *arch.SyscallArguments) bool {
	rs, ok := sr[sysno]
	if !ok {
		return false
	}
	if len(rs) == 0 {
		return true
	}
	for _, r := range rs {
		if r.Match(args) {
			return true
		}
	}
	return false
}
