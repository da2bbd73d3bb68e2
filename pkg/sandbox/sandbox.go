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

// Package sandbox intercepts the traps raised by an untrusted guest.
//
// A Sandbox receives every system call and memory-access fault of one guest
// through HandleTrap. System calls have their pointer arguments checked
// against the guest's valid address ranges, are submitted to a policy gate,
// and are then either emulated locally or forwarded to the host kernel.
// Faults raised by the guest kernel are resolved by installing one page
// mapping; faults raised by guest user code are refused.
//
// One trap is in flight per Sandbox at a time. A Sandbox may share its
// argument table and gate with other sandboxes in the same process.
package sandbox

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"boxer.dev/boxer/pkg/addrspace"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/log"
	"boxer.dev/boxer/pkg/mm"
	"boxer.dev/boxer/pkg/platform"
	"boxer.dev/boxer/pkg/policy"
	"boxer.dev/boxer/pkg/ring0/pagetables"
	"boxer.dev/boxer/pkg/syscalls"
)

// ErrHandlerRegistered is returned when a trap handler slot is filled twice.
var ErrHandlerRegistered = errors.New("trap handler already registered")

// TrapHandler handles one class of trap.
type TrapHandler func(f *arch.TrapFrame) Result

// Config configures a Sandbox.
type Config struct {
	// Name identifies the guest in logs and diagnostics.
	Name string

	// Layout holds the guest's valid address ranges. Required.
	Layout *addrspace.Layout

	// Substrate is the guest's virtualization substrate. Required.
	Substrate platform.Substrate

	// Table is the syscall argument table. Defaults to syscalls.AMD64.
	Table *syscalls.Table

	// Gate is the policy gate. Defaults to a gate with no monitor, which
	// denies everything.
	Gate *policy.Gate

	// MM emulates brk, mmap, munmap and mprotect. If nil those calls fail
	// with ENOSYS.
	MM mm.Manager

	// Kernel executes forwarded system calls. Defaults to
	// platform.HostKernel.
	Kernel platform.Kernel

	// Translator supplies the physical address for demand-paged pages.
	// Defaults to the identity translation.
	Translator platform.Translator

	// PageTables is the guest's address space. Defaults to page tables
	// backed by an unlimited arena.
	PageTables *pagetables.PageTables

	// Abort is called when a page table entry cannot be created. It
	// defaults to panicking. If Abort returns, the trap ends the guest.
	Abort func(err error)

	// Logger receives trap logs. Defaults to log.Log().
	Logger log.Logger

	// ViolationLogInterval limits how often guest protocol violations are
	// logged. Zero logs every violation.
	ViolationLogInterval time.Duration

	// Diagnostics receives frame dumps of guest protocol violations.
	// Optional.
	Diagnostics *Diagnostics

	// CustomHandlers leaves both handler slots empty so the caller can
	// register its own with RegisterFaultHandler and
	// RegisterSyscallHandler.
	CustomHandlers bool
}

// Sandbox interposes on the traps of one guest.
type Sandbox struct {
	name       string
	layout     *addrspace.Layout
	validator  *addrspace.Validator
	substrate  platform.Substrate
	table      *syscalls.Table
	gate       *policy.Gate
	mm         mm.Manager
	kernel     platform.Kernel
	translator platform.Translator
	pt         *pagetables.PageTables
	abort      func(error)
	log        log.Logger
	violations log.Logger
	diag       *Diagnostics

	// mu guards handler registration only.
	mu             sync.Mutex
	faultHandler   atomic.Pointer[TrapHandler]
	syscallHandler atomic.Pointer[TrapHandler]

	stats [numOutcomes]atomic.Uint64
}

// New returns a Sandbox for the guest described by cfg, with the built-in
// fault and syscall handlers registered unless cfg.CustomHandlers is set.
func New(cfg Config) (*Sandbox, error) {
	if cfg.Layout == nil {
		return nil, fmt.Errorf("sandbox %q: no address layout", cfg.Name)
	}
	if cfg.Substrate == nil {
		return nil, fmt.Errorf("sandbox %q: no substrate", cfg.Name)
	}
	s := &Sandbox{
		name:       cfg.Name,
		layout:     cfg.Layout,
		validator:  addrspace.NewValidator(cfg.Layout, cfg.Substrate.Memory()),
		substrate:  cfg.Substrate,
		table:      cfg.Table,
		gate:       cfg.Gate,
		mm:         cfg.MM,
		kernel:     cfg.Kernel,
		translator: cfg.Translator,
		pt:         cfg.PageTables,
		abort:      cfg.Abort,
		log:        cfg.Logger,
		diag:       cfg.Diagnostics,
	}
	if s.table == nil {
		s.table = syscalls.AMD64
	}
	if s.gate == nil {
		s.gate = policy.NewGate(nil)
	}
	if s.kernel == nil {
		s.kernel = platform.HostKernel{}
	}
	if s.translator == nil {
		s.translator = platform.OffsetTranslator(0)
	}
	if s.pt == nil {
		pt, err := pagetables.New(pagetables.NewArenaAllocator(0))
		if err != nil {
			return nil, fmt.Errorf("sandbox %q: creating page tables: %w", cfg.Name, err)
		}
		s.pt = pt
	}
	if s.abort == nil {
		s.abort = func(err error) {
			panic(fmt.Sprintf("sandbox %q: %v", cfg.Name, err))
		}
	}
	if s.log == nil {
		s.log = log.Log()
	}
	s.violations = log.RateLimitedLogger(s.log, cfg.ViolationLogInterval)

	if !cfg.CustomHandlers {
		if err := s.RegisterFaultHandler(s.HandleFault); err != nil {
			return nil, err
		}
		if err := s.RegisterSyscallHandler(s.HandleSyscall); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Name returns the guest name.
func (s *Sandbox) Name() string {
	return s.name
}

// Gate returns the sandbox's policy gate.
func (s *Sandbox) Gate() *policy.Gate {
	return s.gate
}

// Table returns the sandbox's argument table.
func (s *Sandbox) Table() *syscalls.Table {
	return s.table
}

// PageTables returns the guest's page tables.
func (s *Sandbox) PageTables() *pagetables.PageTables {
	return s.pt
}

// RegisterFaultHandler installs h as the page fault handler. It fails if a
// handler is already installed.
func (s *Sandbox) RegisterFaultHandler(h TrapHandler) error {
	return s.register(&s.faultHandler, h, "fault")
}

// RegisterSyscallHandler installs h as the system call handler. It fails if
// a handler is already installed.
func (s *Sandbox) RegisterSyscallHandler(h TrapHandler) error {
	return s.register(&s.syscallHandler, h, "syscall")
}

func (s *Sandbox) register(slot *atomic.Pointer[TrapHandler], h TrapHandler, kind string) error {
	if h == nil {
		return fmt.Errorf("nil %s handler", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot.Load() != nil {
		return fmt.Errorf("%s: %w", kind, ErrHandlerRegistered)
	}
	slot.Store(&h)
	return nil
}

// Stats returns the number of traps that ended with each outcome.
func (s *Sandbox) Stats() map[Outcome]uint64 {
	m := make(map[Outcome]uint64)
	for i := range s.stats {
		if n := s.stats[i].Load(); n != 0 {
			m[Outcome(i)] = n
		}
	}
	return m
}
