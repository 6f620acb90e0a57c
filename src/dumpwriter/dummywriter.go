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
package dumpwriter

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/dumprule"
)

// DummyWriter writes nothing: it logs what would be dumped. Used to test a
// configuration.
type DummyWriter struct {
	protocol
	logger log.FieldLogger
	dumped []*dumprule.Action
}

func NewDummyWriter(logger log.FieldLogger) *DummyWriter {
	return &DummyWriter{logger: logger}
}

// Dumped returns the actions of the objects that would be dumped, in order.
func (w *DummyWriter) Dumped() []*dumprule.Action {
	return append([]*dumprule.Action(nil), w.dumped...)
}

func (w *DummyWriter) BeginDump(ctx context.Context) error {
	if err := w.transition("begin dump", STATE_NOT_STARTED, STATE_DUMPING); err != nil {
		return err
	}
	w.logger.Debug("start of dump")
	return nil
}

func (w *DummyWriter) EndDump(ctx context.Context) error {
	if err := w.transition("end dump", STATE_DUMPING, STATE_FINISHED); err != nil {
		return err
	}
	w.logger.Debug("end of dump")
	return nil
}

func (w *DummyWriter) DumpTable(ctx context.Context, table *dbobject.Table, action *dumprule.Action) error {
	return w.pretend("dump table", table, action)
}

func (w *DummyWriter) DumpSequence(ctx context.Context, seq *dbobject.Sequence, action *dumprule.Action) error {
	return w.pretend("dump sequence", seq, action)
}

func (w *DummyWriter) DumpMaterializedView(ctx context.Context, matview *dbobject.MaterializedView, action *dumprule.Action) error {
	return w.pretend("dump materialized view", matview, action)
}

func (w *DummyWriter) Close() error {
	return w.close()
}

func (w *DummyWriter) Discard() error {
	return w.discard()
}

func (w *DummyWriter) pretend(op string, obj dbobject.DbObject, action *dumprule.Action) error {
	if err := w.require(op, STATE_DUMPING); err != nil {
		return err
	}
	if err := validateAction(obj, action); err != nil {
		return err
	}
	w.logger.Infof("would dump %s %s", obj.Kind(), obj.Escaped())
	w.dumped = append(w.dumped, action)
	return nil
}
