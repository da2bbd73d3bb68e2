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

package log

import (
	"os"
	"time"
)

// GoogleEmitter is a wrapper that emits logs in a format compatible with
// package github.com/golang/glog.
type GoogleEmitter struct {
	*Writer
}

// pid is used for the threadid component of the header.
var pid = os.Getpid()

// levelPrefixes are the glog severity letters, indexed by Level.
var levelPrefixes = [...]byte{Warning: 'W', Info: 'I', Debug: 'D'}

// Emit emits the message, google-style:
//
//	Lmmdd hh:mm:ss.uuuuuu pid file:line] msg...
//
// L is the level letter. The boxer process ID stands in for the thread ID
// since guests migrate between threads only at trap boundaries.
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, args ...any) {
	prefix := byte('?')
	if int(level) < len(levelPrefixes) {
		prefix = levelPrefixes[level]
	}

	_, month, day := timestamp.Date()
	hour, minute, second := timestamp.Clock()
	microsecond := timestamp.Nanosecond() / 1000

	where := caller(depth + 1)
	if where == "" {
		where = "???:0"
	}

	fprintf(g.Writer, "%c%02d%02d %02d:%02d:%02d.%06d % 7d %s] %s\n",
		prefix, int(month), day, hour, minute, second, microsecond, pid, where, sprintf(format, args...))
}
