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

// Package policy decides which guest system calls may execute.
//
// A Gate holds at most one Monitor, the decision function supplied by the
// policy owner. Without a monitor every call is denied. RuleMonitor is a
// Monitor driven by argument-matching rules loaded from a policy file.
package policy

import (
	"sync/atomic"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
)

// Monitor decides whether the system call in f may execute. It may inspect
// the frame and may write the frame's result to fabricate a return value
// for a denied call.
type Monitor func(f *arch.TrapFrame) bool

// Gate guards system call execution with a replaceable Monitor.
//
// The zero value denies everything. Gate is safe for concurrent use;
// Register may be called while other goroutines call Allow.
type Gate struct {
	monitor atomic.Pointer[Monitor]
}

// NewGate returns a gate with m registered.
func NewGate(m Monitor) *Gate {
	g := &Gate{}
	g.Register(m)
	return g
}

// Register installs m, replacing any previous monitor. Register(nil)
// removes the monitor.
func (g *Gate) Register(m Monitor) {
	if m == nil {
		g.monitor.Store(nil)
		return
	}
	g.monitor.Store(&m)
}

// Registered returns true if a monitor is installed.
func (g *Gate) Registered() bool {
	return g.monitor.Load() != nil
}

// Allow returns true if the call in f may execute.
//
// Without a monitor the result is set to -EPERM. If the monitor denies the
// call without writing the result, the result is set to -EPERM.
func (g *Gate) Allow(f *arch.TrapFrame) bool {
	m := g.monitor.Load()
	if m == nil {
		f.SetError(linuxerr.EPERM)
		return false
	}
	if (*m)(f) {
		return true
	}
	if !f.ReturnSet() {
		f.SetError(linuxerr.EPERM)
	}
	return false
}
