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

package sim

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/hostarch"
	"boxer.dev/boxer/pkg/syscalls"
	"boxer.dev/boxer/pkg/usermem"
)

// Trace is a scripted guest run: initial memory contents and the traps the
// guest raises, in order.
//
// Example:
//
//	memory:
//	  - addr: 0x1000
//	    string: /etc/hostname
//	traps:
//	  - syscall: openat
//	    args: [-100, 0x1000, 0]
//	  - fault: 0x100000002000
//	    code: 0x2
//	  - syscall: exit_group
//	    args: [0]
type Trace struct {
	Memory []Region `yaml:"memory"`
	Traps  []Trap   `yaml:"traps"`
}

// Region is initial guest memory content. String is written with a
// terminating zero byte; Hex is written verbatim.
type Region struct {
	Addr   Value  `yaml:"addr"`
	String string `yaml:"string,omitempty"`
	Hex    string `yaml:"hex,omitempty"`
}

// Trap describes one trap. Exactly one of Syscall, Fault and Vector is set.
type Trap struct {
	// Syscall is a syscall name or number.
	Syscall string  `yaml:"syscall,omitempty"`
	Args    []Value `yaml:"args,omitempty"`

	// Fault is the faulting address of a page fault; Code is its error
	// code.
	Fault *Value `yaml:"fault,omitempty"`
	Code  Value  `yaml:"code,omitempty"`

	// Vector raises an arbitrary trap vector.
	Vector *Value `yaml:"vector,omitempty"`

	// User marks the trap as raised in unprivileged guest mode.
	User bool  `yaml:"user,omitempty"`
	RIP  Value `yaml:"rip,omitempty"`
}

// Value is an integer that accepts decimal, hex (0x), octal (0o) and
// negative literals. Negative values wrap as two's complement.
type Value uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an integer", node.Line)
	}
	n, err := parseValue(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = Value(n)
	return nil
}

func parseValue(s string) (uint64, error) {
	if strings.HasPrefix(s, "-") {
		n, err := strconv.ParseInt(s, 0, 64)
		return uint64(n), err
	}
	return strconv.ParseUint(s, 0, 64)
}

// LoadTrace reads a YAML trace from path.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseTrace(data)
	if err != nil {
		return nil, fmt.Errorf("trace %q: %w", path, err)
	}
	return t, nil
}

// ParseTrace decodes a YAML trace.
func ParseTrace(data []byte) (*Trace, error) {
	var t Trace
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Populate writes the trace's memory regions to uio.
func (t *Trace) Populate(uio usermem.IO) error {
	for i, r := range t.Memory {
		var data []byte
		switch {
		case r.String != "" && r.Hex != "":
			return fmt.Errorf("memory[%d]: both string and hex set", i)
		case r.Hex != "":
			b, err := hex.DecodeString(r.Hex)
			if err != nil {
				return fmt.Errorf("memory[%d]: %w", i, err)
			}
			data = b
		default:
			data = append([]byte(r.String), 0)
		}
		if _, err := uio.CopyOut(hostarch.Addr(r.Addr), data); err != nil {
			return fmt.Errorf("memory[%d] at %#x: %w", i, uint64(r.Addr), err)
		}
	}
	return nil
}

// Frames returns the trap frames described by the trace.
func (t *Trace) Frames() ([]*arch.TrapFrame, error) {
	frames := make([]*arch.TrapFrame, 0, len(t.Traps))
	for i := range t.Traps {
		f, err := t.Traps[i].Frame()
		if err != nil {
			return nil, fmt.Errorf("traps[%d]: %w", i, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// Frame builds the trap frame for tr.
func (tr *Trap) Frame() (*arch.TrapFrame, error) {
	set := 0
	for _, b := range []bool{tr.Syscall != "", tr.Fault != nil, tr.Vector != nil} {
		if b {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of syscall, fault and vector must be set")
	}

	f := &arch.TrapFrame{CS: KernelCS, RIP: uint64(tr.RIP)}
	if tr.User {
		f.CS = UserCS
	}
	switch {
	case tr.Syscall != "":
		sysno, err := resolveSyscall(tr.Syscall)
		if err != nil {
			return nil, err
		}
		if len(tr.Args) > len(f.Args) {
			return nil, fmt.Errorf("%d arguments, at most %d allowed", len(tr.Args), len(f.Args))
		}
		f.Vector = arch.Syscall
		f.Sysno = sysno
		for i, a := range tr.Args {
			f.Args[i].Value = uintptr(a)
		}
	case tr.Fault != nil:
		f.Vector = arch.PageFault
		f.FaultAddr = hostarch.Addr(*tr.Fault)
		f.ErrorCode = uint64(tr.Code)
	default:
		f.Vector = arch.Vector(*tr.Vector)
		f.ErrorCode = uint64(tr.Code)
	}
	return f, nil
}

func resolveSyscall(s string) (uintptr, error) {
	if n, err := strconv.ParseUint(s, 0, 64); err == nil {
		return uintptr(n), nil
	}
	if n, ok := syscalls.Number(s); ok {
		return n, nil
	}
	return 0, fmt.Errorf("unknown syscall %q", s)
}
