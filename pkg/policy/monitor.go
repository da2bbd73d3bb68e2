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

	"github.com/mohae/deepcopy"
	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/log"
)

// ActionKind is what a policy does with a matching call.
type ActionKind int

// Action kinds.
const (
	// ActionDeny refuses the call. The gate reports EPERM.
	ActionDeny ActionKind = iota

	// ActionAllow lets the call execute.
	ActionAllow

	// ActionErrno refuses the call and fabricates -Errno.
	ActionErrno

	// ActionReturn refuses the call and fabricates Value as its result.
	ActionReturn
)

var actionNames = map[ActionKind]string{
	ActionDeny:   "deny",
	ActionAllow:  "allow",
	ActionErrno:  "errno",
	ActionReturn: "return",
}

// String implements fmt.Stringer.String.
func (k ActionKind) String() string {
	if s, ok := actionNames[k]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is the outcome of a policy decision.
type Action struct {
	Kind  ActionKind
	Errno unix.Errno
	Value uintptr
}

// Convenient actions.
var (
	Allow = Action{Kind: ActionAllow}
	Deny  = Action{Kind: ActionDeny}
)

// Errno returns an action that fabricates -errno.
func Errno(errno unix.Errno) Action {
	return Action{Kind: ActionErrno, Errno: errno}
}

// Return returns an action that fabricates v.
func Return(v uintptr) Action {
	return Action{Kind: ActionReturn, Value: v}
}

// String implements fmt.Stringer.String.
func (a Action) String() string {
	switch a.Kind {
	case ActionErrno:
		return fmt.Sprintf("errno(%s)", unix.ErrnoName(a.Errno))
	case ActionReturn:
		return fmt.Sprintf("return(%#x)", a.Value)
	default:
		return a.Kind.String()
	}
}

// apply carries out a on f and returns the gate decision.
func (a Action) apply(f *arch.TrapFrame) bool {
	switch a.Kind {
	case ActionAllow:
		return true
	case ActionErrno:
		f.SetError(linuxerr.ErrorFromUnix(a.Errno))
	case ActionReturn:
		f.SetReturn(a.Value)
	}
	return false
}

// Group applies Action to every call matched by Rules.
type Group struct {
	Action Action
	Rules  SyscallRules
}

// Policy is an ordered list of groups. The first group whose rules match a
// call decides it; calls matched by no group get Default.
type Policy struct {
	Default Action
	Groups  []Group
}

// Decide returns the action for the call in f.
func (p *Policy) Decide(f *arch.TrapFrame) Action {
	for _, g := range p.Groups {
		if g.Rules.Matches(f.Sysno, &f.Args) {
			return g.Action
		}
	}
	return p.Default
}

// RuleMonitor is a Monitor backed by a Policy.
type RuleMonitor struct {
	policy *Policy
	log    log.Logger
}

// NewRuleMonitor returns a monitor for a private copy of p. Changes the
// caller makes to p afterwards have no effect on the monitor.
func NewRuleMonitor(p *Policy) *RuleMonitor {
	return &RuleMonitor{
		policy: deepcopy.Copy(p).(*Policy),
		log:    log.Log(),
	}
}

// Policy returns a copy of the monitor's policy.
func (m *RuleMonitor) Policy() *Policy {
	return deepcopy.Copy(m.policy).(*Policy)
}

// Decide implements Monitor.
func (m *RuleMonitor) Decide(f *arch.TrapFrame) bool {
	a := m.policy.Decide(f)
	if a.Kind != ActionAllow && m.log.IsLogging(log.Debug) {
		m.log.Debugf("Policy %v for %v", a, f)
	}
	return a.apply(f)
}

// Monitor returns m.Decide as a Monitor, for Gate.Register.
func (m *RuleMonitor) Monitor() Monitor {
	return m.Decide
}
