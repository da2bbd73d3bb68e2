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

package arch

import (
	"fmt"

	"boxer.dev/boxer/pkg/hostarch"
)

// Vector is an exception vector.
type Vector uintptr

// Exception vectors.
const (
	DivideByZero Vector = iota
	Debug
	NMI
	Breakpoint
	Overflow
	BoundRangeExceeded
	InvalidOpcode
	DeviceNotAvailable
	DoubleFault
	CoprocessorSegmentOverrun
	InvalidTSS
	SegmentNotPresent
	StackSegmentFault
	GeneralProtectionFault
	PageFault
	_
	X87FloatingPointException
	AlignmentCheck
	MachineCheck
	SIMDFloatingPointException
	VirtualizationException
	SecurityException Vector = 0x1e
	SyscallInt80      Vector = 0x80
	_NR_INTERRUPTS    Vector = 0x100
)

// Syscall is the pseudo-vector used for system calls. System calls do not
// arrive through the interrupt table, so the value lies above all real
// vectors.
const Syscall Vector = _NR_INTERRUPTS

var vectorNames = map[Vector]string{
	DivideByZero:               "divide by zero",
	Debug:                      "debug",
	NMI:                        "nmi",
	Breakpoint:                 "breakpoint",
	Overflow:                   "overflow",
	BoundRangeExceeded:         "bound range exceeded",
	InvalidOpcode:              "invalid opcode",
	DeviceNotAvailable:         "device not available",
	DoubleFault:                "double fault",
	CoprocessorSegmentOverrun:  "coprocessor segment overrun",
	InvalidTSS:                 "invalid tss",
	SegmentNotPresent:          "segment not present",
	StackSegmentFault:          "stack segment fault",
	GeneralProtectionFault:     "general protection fault",
	PageFault:                  "page fault",
	X87FloatingPointException:  "x87 floating point exception",
	AlignmentCheck:             "alignment check",
	MachineCheck:               "machine check",
	SIMDFloatingPointException: "simd floating point exception",
	VirtualizationException:    "virtualization exception",
	SecurityException:          "security exception",
	SyscallInt80:               "int 0x80",
	Syscall:                    "syscall",
}

// String implements fmt.Stringer.String.
func (v Vector) String() string {
	if name, ok := vectorNames[v]; ok {
		return name
	}
	return fmt.Sprintf("vector %#x", uintptr(v))
}

// Page fault error code bits.
const (
	PageFaultPresent     = 1 << 0
	PageFaultWrite       = 1 << 1
	PageFaultUser        = 1 << 2
	PageFaultReserved    = 1 << 3
	PageFaultInstruction = 1 << 4
)

// FaultAccessType decodes the access that caused a page fault from its error
// code.
func FaultAccessType(code uint64) hostarch.AccessType {
	if code&PageFaultInstruction != 0 {
		return hostarch.Execute
	}
	if code&PageFaultWrite != 0 {
		return hostarch.Write
	}
	return hostarch.Read
}
