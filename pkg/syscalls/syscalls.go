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

// Package syscalls describes, per system call, which arguments reference
// guest memory and how to validate them before the call goes any further.
//
// Each Rule holds a list of tagged Checks. Generic checks cover the common
// shapes (buffer with a length argument, fixed-size structure, string,
// iovec array); Custom checks handle calls whose arguments only make sense
// together, like ioctl or accept.
package syscalls

import (
	"fmt"
	"math"

	"boxer.dev/boxer/pkg/addrspace"
	"boxer.dev/boxer/pkg/arch"
	"boxer.dev/boxer/pkg/errors/linuxerr"
)

// Kind is the type of a Check.
type Kind int

// Check kinds.
const (
	// KindNone documents a call that needs no argument validation.
	KindNone Kind = iota

	// KindBuffer is a pointer plus a length argument.
	KindBuffer

	// KindFixed is a pointer to a structure of known size.
	KindFixed

	// KindArray is a pointer plus an element count argument.
	KindArray

	// KindString is a pointer to a NUL-terminated string.
	KindString

	// KindVector is a pointer to an array of struct iovec plus a count.
	KindVector

	// KindCustom is a predicate over the whole frame.
	KindCustom
)

var kindNames = map[Kind]string{
	KindNone:   "none",
	KindBuffer: "buffer",
	KindFixed:  "fixed",
	KindArray:  "array",
	KindString: "string",
	KindVector: "vector",
	KindCustom: "custom",
}

// String implements fmt.Stringer.String.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Verdict is the outcome of validating a frame.
type Verdict int

const (
	// Continue means all checks passed and the call proceeds.
	Continue Verdict = iota

	// Rejected means a check failed. The frame's result holds the error.
	Rejected

	// Handled means a check completed the call itself. The frame's result
	// holds the return value and nothing further runs.
	Handled
)

// String implements fmt.Stringer.String.
func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Rejected:
		return "rejected"
	case Handled:
		return "handled"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// CustomFunc validates a frame as a whole. It returns Continue, Handled
// after setting the frame's result, or a non-nil error to reject.
type CustomFunc func(v *addrspace.Validator, f *arch.TrapFrame) (Verdict, error)

// Check is one validation applied to a syscall's arguments.
type Check struct {
	Kind Kind

	// Ptr is the argument holding the pointer.
	Ptr arch.ArgIndex

	// Len is the argument holding the length (KindBuffer) or the element
	// count (KindArray, KindVector).
	Len arch.ArgIndex

	// Size is the structure size (KindFixed) or element size (KindArray).
	Size uint64

	// Func and Desc describe a KindCustom check.
	Func CustomFunc
	Desc string
}

// Buffer checks [ptr, ptr+len). A null pointer or a zero length means the
// argument was not supplied and passes.
func Buffer(ptr, length arch.ArgIndex) Check {
	return Check{Kind: KindBuffer, Ptr: ptr, Len: length}
}

// Fixed checks [ptr, ptr+size). A null pointer passes.
func Fixed(ptr arch.ArgIndex, size uint64) Check {
	return Check{Kind: KindFixed, Ptr: ptr, Size: size}
}

// Array checks [ptr, ptr+count*size). A null pointer or zero count passes;
// a product that overflows is rejected with EFAULT.
func Array(ptr, count arch.ArgIndex, size uint64) Check {
	return Check{Kind: KindArray, Ptr: ptr, Len: count, Size: size}
}

// String checks a NUL-terminated string at ptr. A null pointer passes.
func String(ptr arch.ArgIndex) Check {
	return Check{Kind: KindString, Ptr: ptr}
}

// Vector checks count struct iovec at ptr and every extent they describe.
// It is applied even for null pointers.
func Vector(ptr, count arch.ArgIndex) Check {
	return Check{Kind: KindVector, Ptr: ptr, Len: count}
}

// Custom wraps a predicate with a human-readable description.
func Custom(desc string, fn CustomFunc) Check {
	return Check{Kind: KindCustom, Desc: desc, Func: fn}
}

// String implements fmt.Stringer.String.
func (c Check) String() string {
	switch c.Kind {
	case KindBuffer:
		return fmt.Sprintf("buffer(%v, %v)", c.Ptr, c.Len)
	case KindFixed:
		return fmt.Sprintf("fixed(%v, %d)", c.Ptr, c.Size)
	case KindArray:
		return fmt.Sprintf("array(%v, %v*%d)", c.Ptr, c.Len, c.Size)
	case KindString:
		return fmt.Sprintf("string(%v)", c.Ptr)
	case KindVector:
		return fmt.Sprintf("vector(%v, %v)", c.Ptr, c.Len)
	case KindCustom:
		return fmt.Sprintf("custom(%s)", c.Desc)
	default:
		return c.Kind.String()
	}
}

// Apply runs the check against f.
func (c Check) Apply(v *addrspace.Validator, f *arch.TrapFrame) (Verdict, error) {
	switch c.Kind {
	case KindNone:
		return Continue, nil
	case KindBuffer:
		ptr, length := f.Arg(c.Ptr).Pointer(), f.Arg(c.Len).Uint64()
		if ptr == 0 || length == 0 {
			return Continue, nil
		}
		return Continue, v.CheckExtent(ptr, length)
	case KindFixed:
		ptr := f.Arg(c.Ptr).Pointer()
		if ptr == 0 {
			return Continue, nil
		}
		return Continue, v.CheckExtent(ptr, c.Size)
	case KindArray:
		ptr, count := f.Arg(c.Ptr).Pointer(), f.Arg(c.Len).Uint64()
		if ptr == 0 || count == 0 {
			return Continue, nil
		}
		if c.Size != 0 && count > math.MaxUint64/c.Size {
			return Continue, linuxerr.EFAULT
		}
		return Continue, v.CheckExtent(ptr, count*c.Size)
	case KindString:
		ptr := f.Arg(c.Ptr).Pointer()
		if ptr == 0 {
			return Continue, nil
		}
		return Continue, v.CheckString(ptr)
	case KindVector:
		return Continue, v.CheckIovec(f.Arg(c.Ptr).Pointer(), f.Arg(c.Len).Uint64())
	case KindCustom:
		return c.Func(v, f)
	default:
		panic(fmt.Sprintf("unknown check kind %v", c.Kind))
	}
}

// Rule is the immutable description of one syscall.
type Rule struct {
	// Name is the syscall name.
	Name string

	// Checks are applied in order; the first failure rejects the call.
	Checks []Check

	// Note describes special handling for documentation.
	Note string
}
