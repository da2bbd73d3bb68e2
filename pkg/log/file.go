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
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// expandLogPattern substitutes %PID% in a log file pattern, so that several
// boxer processes started with the same flags write separate files.
func expandLogPattern(pattern string) string {
	return strings.NewReplacer("%PID%", strconv.Itoa(os.Getpid())).Replace(pattern)
}

// OpenFile opens the log file named by pattern with the given flags,
// creating missing parent directories. An empty pattern means logging to
// a file is disabled: OpenFile returns a nil file and no error.
func OpenFile(pattern string, flags int) (*os.File, error) {
	if pattern == "" {
		return nil, nil
	}
	path := expandLogPattern(pattern)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0775); err != nil {
			return nil, fmt.Errorf("creating log directory %q: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, flags, 0664)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	return f, nil
}
