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

// Package linuxerr contains syscall error codes exported as error interface
// pointers. This allows for fast comparison and return operations comparable
// to unix.Errno constants, and for conversion into the negative-errno form
// that is written into a trap frame's result slot.
package linuxerr

import (
	goerrors "errors"

	"golang.org/x/sys/unix"

	"boxer.dev/boxer/pkg/errors"
)

// The following errors are semantically identical to the unix.Errno of the
// same name. The Errno method returns the number such that
// unix.Errno(EPERM.Errno()) == unix.EPERM.
var (
	noError      *errors.Error = nil
	EPERM                      = errors.New(unix.EPERM, "operation not permitted")
	ENOENT                     = errors.New(unix.ENOENT, "no such file or directory")
	ESRCH                      = errors.New(unix.ESRCH, "no such process")
	EINTR                      = errors.New(unix.EINTR, "interrupted system call")
	EIO                        = errors.New(unix.EIO, "I/O error")
	E2BIG                      = errors.New(unix.E2BIG, "argument list too long")
	EBADF                      = errors.New(unix.EBADF, "bad file number")
	EAGAIN                     = errors.New(unix.EAGAIN, "try again")
	ENOMEM                     = errors.New(unix.ENOMEM, "out of memory")
	EACCES                     = errors.New(unix.EACCES, "permission denied")
	EFAULT                     = errors.New(unix.EFAULT, "bad address")
	EBUSY                      = errors.New(unix.EBUSY, "device or resource busy")
	EEXIST                     = errors.New(unix.EEXIST, "file exists")
	ENODEV                     = errors.New(unix.ENODEV, "no such device")
	ENOTDIR                    = errors.New(unix.ENOTDIR, "not a directory")
	EISDIR                     = errors.New(unix.EISDIR, "is a directory")
	EINVAL                     = errors.New(unix.EINVAL, "invalid argument")
	EMFILE                     = errors.New(unix.EMFILE, "too many open files")
	ENOTTY                     = errors.New(unix.ENOTTY, "not a typewriter")
	ENOSPC                     = errors.New(unix.ENOSPC, "no space left on device")
	ESPIPE                     = errors.New(unix.ESPIPE, "illegal seek")
	EROFS                      = errors.New(unix.EROFS, "read-only file system")
	EPIPE                      = errors.New(unix.EPIPE, "broken pipe")
	ERANGE                     = errors.New(unix.ERANGE, "math result not representable")
	ENAMETOOLONG               = errors.New(unix.ENAMETOOLONG, "file name too long")
	ENOSYS                     = errors.New(unix.ENOSYS, "invalid system call number")
	EOVERFLOW                  = errors.New(unix.EOVERFLOW, "value too large for defined data type")
	ENOTSOCK                   = errors.New(unix.ENOTSOCK, "socket operation on non-socket")
	EOPNOTSUPP                 = errors.New(unix.EOPNOTSUPP, "operation not supported on transport endpoint")
	ECONNREFUSED               = errors.New(unix.ECONNREFUSED, "connection refused")
	ETIMEDOUT                  = errors.New(unix.ETIMEDOUT, "connection timed out")

	// Errors equivalent to other errors.
	EWOULDBLOCK = EAGAIN
	ENOTSUP     = EOPNOTSUPP
)

// errorMap holds the errors above by errno for translation from a raw
// unix.Errno returned by the host kernel.
var errorMap = map[unix.Errno]*errors.Error{
	0:                 noError,
	unix.EPERM:        EPERM,
	unix.ENOENT:       ENOENT,
	unix.ESRCH:        ESRCH,
	unix.EINTR:        EINTR,
	unix.EIO:          EIO,
	unix.E2BIG:        E2BIG,
	unix.EBADF:        EBADF,
	unix.EAGAIN:       EAGAIN,
	unix.ENOMEM:       ENOMEM,
	unix.EACCES:       EACCES,
	unix.EFAULT:       EFAULT,
	unix.EBUSY:        EBUSY,
	unix.EEXIST:       EEXIST,
	unix.ENODEV:       ENODEV,
	unix.ENOTDIR:      ENOTDIR,
	unix.EISDIR:       EISDIR,
	unix.EINVAL:       EINVAL,
	unix.EMFILE:       EMFILE,
	unix.ENOTTY:       ENOTTY,
	unix.ENOSPC:       ENOSPC,
	unix.ESPIPE:       ESPIPE,
	unix.EROFS:        EROFS,
	unix.EPIPE:        EPIPE,
	unix.ERANGE:       ERANGE,
	unix.ENAMETOOLONG: ENAMETOOLONG,
	unix.ENOSYS:       ENOSYS,
	unix.EOVERFLOW:    EOVERFLOW,
	unix.ENOTSOCK:     ENOTSOCK,
	unix.EOPNOTSUPP:   EOPNOTSUPP,
	unix.ECONNREFUSED: ECONNREFUSED,
	unix.ETIMEDOUT:    ETIMEDOUT,
}

// ErrorFromUnix returns the *errors.Error for the given errno. Errnos without
// a named value above get a freshly allocated error carrying the errno and
// the host's description.
func ErrorFromUnix(err unix.Errno) *errors.Error {
	if e, ok := errorMap[err]; ok {
		return e
	}
	return errors.New(err, err.Error())
}

// ToReturn converts an error into the value stored in a trap frame's result
// slot: the negated errno, as the kernel would return it.
func ToReturn(err *errors.Error) uintptr {
	if err == nil {
		return 0
	}
	return ReturnErrno(err.Errno())
}

// ReturnErrno returns the negated errno as a raw syscall return value.
func ReturnErrno(errno unix.Errno) uintptr {
	return uintptr(-int64(errno))
}

// FromReturn decodes a raw syscall return value. Values in [-4095, -1] are
// errors, as on Linux.
func FromReturn(ret uintptr) (uintptr, *errors.Error) {
	if v := int64(ret); v < 0 && v >= -4095 {
		return 0, ErrorFromUnix(unix.Errno(-v))
	}
	return ret, nil
}

// FromError converts err to an *errors.Error. A bare unix.Errno maps to its
// named value; errors that carry no errno become EIO.
func FromError(err error) *errors.Error {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if goerrors.As(err, &e) && e != nil {
		return e
	}
	var errno unix.Errno
	if goerrors.As(err, &errno) {
		return ErrorFromUnix(errno)
	}
	return EIO
}

// Equals compares a linuxerr to a given error. It also accepts a bare
// unix.Errno, which is what the host kernel hands back on passthrough.
func Equals(e *errors.Error, err error) bool {
	if err == nil {
		return e == noError || e == nil
	}
	if e == nil {
		return false
	}
	switch v := err.(type) {
	case *errors.Error:
		return v != nil && e.Errno() == v.Errno()
	case unix.Errno:
		return e.Errno() == v
	}
	return false
}
