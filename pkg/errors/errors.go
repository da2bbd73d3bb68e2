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

// Package errors defines the error type that guest-visible failures carry.
// Each Error maps to exactly one errno, which is what the guest sees in its
// result register.
package errors

import (
	"golang.org/x/sys/unix"
)

// Error is a guest-visible failure: an errno plus a message for logs.
type Error struct {
	errno   unix.Errno
	message string
}

// New returns an Error for errno with the given log message.
func New(errno unix.Errno, message string) *Error {
	return &Error{errno: errno, message: message}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Errno returns the errno reported to the guest.
func (e *Error) Errno() unix.Errno { return e.errno }

// Is reports whether target is the same errno, so that errors.Is works
// against both *Error values and bare unix.Errno values.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return t != nil && e.errno == t.errno
	case unix.Errno:
		return e.errno == t
	}
	return false
}
