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

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/log"
	"boxer.dev/boxer/pkg/ring0/pagetables"
)

// faultOpts are the permissions of a demand-paged page. The user bit stays
// clear; only the guest kernel reaches these pages.
var faultOpts = pagetables.MapOpts{AccessType: hostarch.AnyAccess}

// HandleFault is the built-in page fault handler.
//
// A fault raised by guest user code violates the guest's protocol: it is
// logged, the result is set to -EFAULT and nothing is mapped. A fault raised
// by the guest kernel is resolved by mapping the faulting page.
func (s *Sandbox) HandleFault(f *arch.TrapFrame) Result {
	if f.IsUser() {
		return s.illegalFault(f)
	}
	return s.demandPage(f)
}

func (s *Sandbox) illegalFault(f *arch.TrapFrame) Result {
	s.violations.Warningf("%s: guest %v fault at %v, code %#x, rip %#x",
		s.name, arch.FaultAccessType(f.ErrorCode), f.FaultAddr, f.ErrorCode, f.RIP)
	s.violations.Infof("%s: frame: %v", s.name, f)
	if err := s.diag.Record(s.name, f); err != nil {
		s.log.Warningf("%s: recording diagnostics: %v", s.name, err)
	}
	f.SetError(linuxerr.EFAULT)
	return resume(IllegalGuestFault)
}

// demandPage installs exactly one page for the faulting address.
func (s *Sandbox) demandPage(f *arch.TrapFrame) Result {
	page := f.FaultAddr.RoundDown()
	pte, err := s.pt.Walk(page, true)
	if err != nil {
		err = fmt.Errorf("mapping %v: %w", page, err)
		s.log.Warningf("%s: fatal page fault: %v", s.name, err)
		s.abort(err)
		return Result{Action: Exit, Outcome: FatalPagingFailure, Err: err}
	}
	pte.Set(s.translator.Translate(page), faultOpts)
	if s.log.IsLogging(log.Debug) {
		s.log.Debugf("%s: mapped %v -> %#x", s.name, page, pte.Address())
	}
	return resume(PageMapped)
}
