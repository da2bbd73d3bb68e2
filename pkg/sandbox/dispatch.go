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

package sandbox

import (
	"fmt"
	"sync/atomic"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
)

// Action tells the vCPU loop what to do after a trap.
type Action int

const (
	// Resume re-enters the guest with the frame's result.
	Resume Action = iota

	// Exit ends the guest. It is not resumed.
	Exit
)

// String implements fmt.Stringer.String.
func (a Action) String() string {
	switch a {
	case Resume:
		return "resume"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Outcome classifies how a trap was resolved.
type Outcome int

const (
	// Executed means the system call was emulated or forwarded.
	Executed Outcome = iota

	// Handled means argument validation completed the call itself.
	Handled

	// AddressFault means an argument failed validation.
	AddressFault

	// PermissionDenied means the policy gate refused the call.
	PermissionDenied

	// IllegalGuestFault means guest user code raised a page fault.
	IllegalGuestFault

	// PageMapped means a privileged fault was resolved with a new mapping.
	PageMapped

	// FatalPagingFailure means a page table entry could not be created.
	FatalPagingFailure

	// UnknownTrap means no handler accepts the trap vector.
	UnknownTrap

	// Exited means the guest called exit or exit_group.
	Exited

	numOutcomes
)

var outcomeNames = [...]string{
	Executed:           "executed",
	Handled:            "handled",
	AddressFault:       "address-fault",
	PermissionDenied:   "permission-denied",
	IllegalGuestFault:  "illegal-guest-fault",
	PageMapped:         "page-mapped",
	FatalPagingFailure: "fatal-paging-failure",
	UnknownTrap:        "unknown-trap",
	Exited:             "exited",
}

// String implements fmt.Stringer.String.
func (o Outcome) String() string {
	if o >= 0 && o < numOutcomes {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the result of handling one trap.
type Result struct {
	Action  Action
	Outcome Outcome

	// ExitCode is the guest's exit code when Outcome is Exited.
	ExitCode int

	// Err is set when Outcome is FatalPagingFailure.
	Err error
}

// String implements fmt.Stringer.String.
func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%v (%v): %v", r.Action, r.Outcome, r.Err)
	case r.Outcome == Exited:
		return fmt.Sprintf("%v (%v, code %d)", r.Action, r.Outcome, r.ExitCode)
	default:
		return fmt.Sprintf("%v (%v)", r.Action, r.Outcome)
	}
}

func resume(o Outcome) Result {
	return Result{Action: Resume, Outcome: o}
}

// HandleTrap handles one trap raised by the guest.
//
// Any result left in f by an earlier trap is discarded. On return the frame
// holds the value the guest observes, if any, and the Result says whether
// the guest is resumed.
func (s *Sandbox) HandleTrap(f *arch.TrapFrame) Result {
	f.ResetReturn()
	var r Result
	switch f.Vector {
	case arch.PageFault:
		r = s.dispatch(&s.faultHandler, f)
	case arch.Syscall:
		r = s.dispatch(&s.syscallHandler, f)
	default:
		s.log.Warningf("%s: unhandled trap: %v", s.name, f)
		f.SetError(linuxerr.EFAULT)
		r = resume(UnknownTrap)
	}
	if r.Outcome >= 0 && r.Outcome < numOutcomes {
		s.stats[r.Outcome].Add(1)
	}
	return r
}

func (s *Sandbox) dispatch(slot *atomic.Pointer[TrapHandler], f *arch.TrapFrame) Result {
	h := slot.Load()
	if h == nil {
		s.log.Warningf("%s: no handler for trap: %v", s.name, f)
		f.SetError(linuxerr.EFAULT)
		return resume(UnknownTrap)
	}
	return (*h)(f)
}
