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
	"sync"
	"testing"

	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/abi/linux"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
)

func TestGateWithoutMonitor(t *testing.T) {
	var g Gate
	f := arch.NewSyscallFrame(39)
	if g.Allow(f) {
		t.Fatalf("empty gate allowed a call")
	}
	if !linuxerr.Equals(linuxerr.EPERM, f.Error()) {
		t.Errorf("result = %v, want EPERM", f.Error())
	}
}

func TestGateAllow(t *testing.T) {
	calls := 0
	g := NewGate(func(f *arch.TrapFrame) bool {
		calls++
		return true
	})
	f := arch.NewSyscallFrame(39)
	if !g.Allow(f) {
		t.Fatalf("gate denied an allowed call")
	}
	if calls != 1 {
		t.Errorf("monitor called %d times, want 1", calls)
	}
	if f.ReturnSet() {
		t.Errorf("allowed call has a result: %#x", f.Return())
	}
}

func TestGateDenyDefaultsToEPERM(t *testing.T) {
	g := NewGate(func(*arch.TrapFrame) bool { return false })
	f := arch.NewSyscallFrame(39)
	if g.Allow(f) {
		t.Fatalf("gate allowed a denied call")
	}
	if !linuxerr.Equals(linuxerr.EPERM, f.Error()) {
		t.Errorf("result = %v, want EPERM", f.Error())
	}
}

func TestGateDenyKeepsFabricatedResult(t *testing.T) {
	g := NewGate(func(f *arch.TrapFrame) bool {
		f.SetReturn(42)
		return false
	})
	f := arch.NewSyscallFrame(39)
	if g.Allow(f) {
		t.Fatalf("gate allowed a denied call")
	}
	if f.Return() != 42 {
		t.Errorf("result = %d, want 42", f.Return())
	}
}

func TestGateReplaceAndClear(t *testing.T) {
	g := NewGate(func(*arch.TrapFrame) bool { return false })
	g.Register(func(*arch.TrapFrame) bool { return true })
	if !g.Allow(arch.NewSyscallFrame(39)) {
		t.Errorf("replacement monitor was not used")
	}
	g.Register(nil)
	if g.Registered() {
		t.Errorf("Register(nil) left a monitor")
	}
	if g.Allow(arch.NewSyscallFrame(39)) {
		t.Errorf("cleared gate allowed a call")
	}
}

func TestGateConcurrentRegister(t *testing.T) {
	g := NewGate(func(*arch.TrapFrame) bool { return true })
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				g.Allow(arch.NewSyscallFrame(39))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				g.Register(func(*arch.TrapFrame) bool { return j%2 == 0 })
			}
		}()
	}
	wg.Wait()
}

func TestMatchers(t *testing.T) {
	for _, tc := range []struct {
		m    Matcher
		v    uintptr
		want bool
	}{
		{MatchAny{}, 7, true},
		{EqualTo(3), 3, true},
		{EqualTo(3), 4, false},
		{NotEqual(3), 4, true},
		{GreaterThan(3), 3, false},
		{GreaterThanOrEqual(3), 3, true},
		{LessThan(3), 3, false},
		{LessThanOrEqual(3), 3, true},
		{MaskedEqual{Mask: 0xf0, Value: 0x10}, 0x1f, true},
		{MaskedEqual{Mask: 0xf0, Value: 0x10}, 0x2f, false},
	} {
		if got := tc.m.Match(tc.v); got != tc.want {
			t.Errorf("%v.Match(%#x) = %t, want %t", tc.m, tc.v, got, tc.want)
		}
	}
}

func TestSyscallRulesMatches(t *testing.T) {
	sr := SyscallRules{
		72: {
			{MatchAny{}, EqualTo(linux.F_GETFL)},
			{MatchAny{}, EqualTo(linux.F_SETFL)},
		},
		39: {},
	}
	for _, tc := range []struct {
		name string
		f    *arch.TrapFrame
		want bool
	}{
		{"unlisted", arch.NewSyscallFrame(0, 1, 2, 3), false},
		{"empty rules", arch.NewSyscallFrame(39), true},
		{"first rule", arch.NewSyscallFrame(72, 3, linux.F_GETFL), true},
		{"second rule", arch.NewSyscallFrame(72, 3, linux.F_SETFL, 0), true},
		{"no rule", arch.NewSyscallFrame(72, 3, linux.F_SETLK), false},
	} {
		if got := sr.Matches(tc.f.Sysno, &tc.f.Args); got != tc.want {
			t.Errorf("%s: Matches = %t, want %t", tc.name, got, tc.want)
		}
	}
}

func TestAddRuleKeepsAllowAll(t *testing.T) {
	sr := SyscallRules{39: {}}
	sr.AddRule(39, Rule{EqualTo(1)})
	f := arch.NewSyscallFrame(39, 5)
	if !sr.Matches(39, &f.Args) {
		t.Errorf("adding a rule narrowed an allow-all entry")
	}
}

func TestRuleString(t *testing.T) {
	r := Rule{MatchAny{}, EqualTo(3), MaskedEqual{Mask: 0xff, Value: 1}}
	if got, want := r.String(), "(*, == 0x3, & 0xff == 0x1)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func testPolicy() *Policy {
	return &Policy{
		Default: Deny,
		Groups: []Group{
			{Action: Errno(unix.ENOENT), Rules: SyscallRules{2: {}}},
			{Action: Return(7), Rules: SyscallRules{39: {}}},
			{Action: Allow, Rules: SyscallRules{0: {}, 1: {{EqualTo(1)}, {EqualTo(2)}}}},
		},
	}
}

func TestRuleMonitor(t *testing.T) {
	g := NewGate(NewRuleMonitor(testPolicy()).Monitor())
	for _, tc := range []struct {
		name    string
		f       *arch.TrapFrame
		allowed bool
		ret     uintptr
	}{
		{"allow read", arch.NewSyscallFrame(0, 3, 0x1000, 1), true, 0},
		{"allow write stdout", arch.NewSyscallFrame(1, 1, 0x1000, 1), true, 0},
		{"deny write fd 3", arch.NewSyscallFrame(1, 3, 0x1000, 1), false, linuxerr.ReturnErrno(unix.EPERM)},
		{"errno open", arch.NewSyscallFrame(2, 0x1000), false, linuxerr.ReturnErrno(unix.ENOENT)},
		{"fabricated getpid", arch.NewSyscallFrame(39), false, 7},
		{"default", arch.NewSyscallFrame(57), false, linuxerr.ReturnErrno(unix.EPERM)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.Allow(tc.f); got != tc.allowed {
				t.Fatalf("Allow = %t, want %t", got, tc.allowed)
			}
			if !tc.allowed && tc.f.Return() != tc.ret {
				t.Errorf("result = %#x, want %#x", tc.f.Return(), tc.ret)
			}
		})
	}
}

func TestRuleMonitorSnapshot(t *testing.T) {
	p := testPolicy()
	m := NewRuleMonitor(p)
	// Mutate the caller's policy after registration.
	p.Default = Allow
	p.Groups[2].Rules[57] = nil
	p.Groups[0].Action = Allow

	if m.Decide(arch.NewSyscallFrame(57)) {
		t.Errorf("caller mutation reached the monitor")
	}
	if m.Decide(arch.NewSyscallFrame(2, 0x1000)) {
		t.Errorf("caller mutation of a group action reached the monitor")
	}
	got := m.Policy()
	if got.Groups[0].Action != Errno(unix.ENOENT) {
		t.Errorf("Policy() group 0 action = %v", got.Groups[0].Action)
	}
	if _, ok := got.Groups[2].Rules[1]; !ok {
		t.Errorf("Policy() lost the write rules")
	}
	if !got.Groups[2].Rules.Matches(1, &arch.NewSyscallFrame(1, 2).Args) {
		t.Errorf("Policy() copy lost matcher values")
	}
}
