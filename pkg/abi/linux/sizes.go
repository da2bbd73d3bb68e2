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

package linux

// UTSLen is the maximum length of strings contained in fields of struct
// utsname.
const UTSLen = 64

// Sizes of the amd64 kernel structures that syscalls read from or write to
// guest memory.
const (
	// SizeOfUtsName is sizeof(struct new_utsname): six fields of
	// UTSLen+1 bytes.
	SizeOfUtsName = 6 * (UTSLen + 1)

	SizeOfStat   = 144
	SizeOfStatfs = 120

	// SizeOfEpollEvent is sizeof(struct epoll_event), which is packed on
	// amd64.
	SizeOfEpollEvent = 12

	SizeOfRlimit = 16

	// SizeOfSigAction is sizeof(struct sigaction) as the kernel sees it:
	// handler, flags, restorer and a 64-bit mask.
	SizeOfSigAction = 32

	SizeOfIovec   = 16
	SizeOfSocklen = 4
	SizeOfGID     = 4

	// SizeOfTimeT is sizeof(time_t). Also sizeof(off_t).
	SizeOfTimeT = 8
)

// UIO_MAXIOV is the maximum number of struct iovec in a single readv(2) or
// writev(2) call.
const UIO_MAXIOV = 1024
