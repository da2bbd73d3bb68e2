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

// Package cmd holds implementations of the boxer commands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"
	"github.com/google/subcommands"

	"boxer.dev/boxer/boxer/config"
	"boxer.dev/boxer/pkg/log"
)

// ErrorLogger is where error messages should be written to, in addition to
// the log. It may be nil.
var ErrorLogger io.Writer

// Errorf logs error to the error log (--log), to stderr, and debug logs. It
// returns subcommands.ExitFailure for convenience with subcommand.Execute()
// methods:
//
//	return Errorf("Danger! Danger!")
func Errorf(format string, args ...any) subcommands.ExitStatus {
	msg := fmt.Sprintf(format, args...)
	log.Warningf("FATAL ERROR: %s", msg)
	fmt.Fprintln(os.Stderr, msg)
	if ErrorLogger != nil {
		fmt.Fprintln(ErrorLogger, msg)
	}
	return subcommands.ExitFailure
}

// Fatalf logs the same way as Errorf() does, plus *exits* the process.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	// Return an error that is unlikely to be used by the application.
	os.Exit(128)
}

// confFromArgs extracts the configuration passed by the CLI.
func confFromArgs(args []any) *config.Config {
	if len(args) == 0 {
		return nil
	}
	conf, _ := args[0].(*config.Config)
	return conf
}

// lockDiagnostics takes a file lock next to the diagnostics file so that
// concurrent runs appending to it do not interleave records.
func lockDiagnostics(path string) (func() error, error) {
	f := path + ".lock"
	l := flock.NewFlock(f)
	if err := l.Lock(); err != nil {
		return nil, fmt.Errorf("error acquiring lock on diagnostics lock file %q: %v", f, err)
	}
	return l.Unlock, nil
}
