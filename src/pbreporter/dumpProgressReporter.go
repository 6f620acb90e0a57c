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
package pbreporter

import (
	"github.com/vbauerster/mpb/v8"
)

// DumpProgressReporter follows the number of objects written by a dump.
type DumpProgressReporter interface {
	SetTotalObjectCount(totalObjectCount int64, triggerComplete bool)
	SetDumpedObjectCount(dumpedObjectCount int64)
	IsComplete() bool
}

// NewDumpPB returns a progress bar in progressContainer, or a reporter which
// only keeps the counts if disablePb is set.
func NewDumpPB(progressContainer *mpb.Progress, title string, disablePb bool) DumpProgressReporter {
	if disablePb || progressContainer == nil {
		return newDisablePBReporter()
	} else {
		return newEnablePBReporter(progressContainer, title)
	}
}
