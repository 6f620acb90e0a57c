/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package errs

import (
	"fmt"
)

// ConfigError reports a misconfigured rule. It always points at the file and
// line the offending entry was read from.
type ConfigError struct {
	msg      string
	filename string
	line     int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s, at %s", e.msg, e.Pos())
}

func (e *ConfigError) Message() string {
	return e.msg
}

func (e *ConfigError) Filename() string {
	return e.filename
}

func (e *ConfigError) Line() int {
	return e.line
}

// Pos returns the position of the entry as "file:line".
func (e *ConfigError) Pos() string {
	return FormatPos(e.filename, e.line)
}

func NewConfigError(filename string, line int, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		msg:      fmt.Sprintf(format, args...),
		filename: filename,
		line:     line,
	}
}

func FormatPos(filename string, line int) string {
	if filename == "" {
		filename = "<unknown>"
	}
	return fmt.Sprintf("%s:%d", filename, line)
}
