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
	"strings"
)

// CopyError is returned when streaming the rows of a table fails.
type CopyError struct {
	tableName string
	err       error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("failed to copy from table %s: %s", e.tableName, e.err.Error())
}

func (e *CopyError) TableName() string {
	return e.tableName
}

func (e *CopyError) Unwrap() error {
	return e.err
}

func NewCopyError(tableName string, err error) *CopyError {
	return &CopyError{
		tableName: tableName,
		err:       err,
	}
}

// DumpError aborts a dump before or while the output is written.
type DumpError struct {
	msg string
	err error
}

func (e *DumpError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.err.Error())
	}
	return e.msg
}

func (e *DumpError) Unwrap() error {
	return e.err
}

func NewDumpError(format string, args ...interface{}) *DumpError {
	return &DumpError{msg: fmt.Sprintf(format, args...)}
}

func WrapDumpError(err error, format string, args ...interface{}) *DumpError {
	return &DumpError{msg: fmt.Sprintf(format, args...), err: err}
}

// PlanError collects the objects that cannot be dumped, one message each.
type PlanError struct {
	problems []string
}

func (e *PlanError) Error() string {
	if len(e.problems) == 1 {
		return "cannot dump " + e.problems[0]
	}
	return fmt.Sprintf("cannot dump %d objects:\n\t%s", len(e.problems), strings.Join(e.problems, "\n\t"))
}

func (e *PlanError) Problems() []string {
	return e.problems
}

func NewPlanError(problems []string) *PlanError {
	return &PlanError{problems: problems}
}

type UnknownColumnsErr struct {
	tableName      string
	optionName     string
	unknownColumns []string
}

func (e *UnknownColumnsErr) Error() string {
	return fmt.Sprintf("the table %s has no column(s) named %s listed in '%s'",
		e.tableName, strings.Join(e.unknownColumns, ", "), e.optionName)
}

func (e *UnknownColumnsErr) UnknownColumns() []string {
	return e.unknownColumns
}

func NewUnknownColumnsErr(tableName string, optionName string, unknownColumns []string) *UnknownColumnsErr {
	return &UnknownColumnsErr{
		tableName:      tableName,
		optionName:     optionName,
		unknownColumns: unknownColumns,
	}
}
