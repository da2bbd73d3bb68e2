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
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedLogger forwards at most one message per interval and reports
// how many were dropped in between.
type rateLimitedLogger struct {
	next       Logger
	limiter    *rate.Limiter
	suppressed atomic.Uint64
}

// RateLimitedLogger returns a Logger that logs to next no more than once per
// every. Messages dropped in the meantime are counted and the count is
// appended to the next message that gets through. A non-positive every
// disables rate limiting.
func RateLimitedLogger(next Logger, every time.Duration) Logger {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &rateLimitedLogger{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (rl *rateLimitedLogger) admit(format string, v []any) (string, []any, bool) {
	if !rl.limiter.Allow() {
		rl.suppressed.Add(1)
		return "", nil, false
	}
	if n := rl.suppressed.Swap(0); n > 0 {
		return format + " (%d similar messages suppressed)", append(v, n), true
	}
	return format, v, true
}

func (rl *rateLimitedLogger) Debugf(format string, v ...any) {
	if format, v, ok := rl.admit(format, v); ok {
		rl.next.Debugf(format, v...)
	}
}

func (rl *rateLimitedLogger) Infof(format string, v ...any) {
	if format, v, ok := rl.admit(format, v); ok {
		rl.next.Infof(format, v...)
	}
}

func (rl *rateLimitedLogger) Warningf(format string, v ...any) {
	if format, v, ok := rl.admit(format, v); ok {
		rl.next.Warningf(format, v...)
	}
}

func (rl *rateLimitedLogger) IsLogging(level Level) bool {
	return rl.next.IsLogging(level)
}
