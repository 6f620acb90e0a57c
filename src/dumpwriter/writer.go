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
	"errors"
	"fmt"
	"io"

	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/dumprule"
	"github.com/yugabyte/pg-seldump/src/errs"
	"github.com/yugabyte/pg-seldump/src/query"
)

// Reader is the access to the database the writers need.
type Reader interface {
	// Copy runs a "copy ... to stdout" statement streaming the data into w.
	Copy(ctx context.Context, stmt string, w io.Writer) error
	// ObjAsString renders a statement with the escaping rules of the server.
	ObjAsString(c query.Composable) (string, error)
	GetSequenceValue(ctx context.Context, seq *dbobject.Sequence) (int64, error)
}

// Writer emits a dump. Calls must follow the protocol BeginDump, any number
// of Dump*, EndDump, Close. A failed dump is ended by Discard instead of
// Close.
type Writer interface {
	BeginDump(ctx context.Context) error
	DumpTable(ctx context.Context, table *dbobject.Table, action *dumprule.Action) error
	DumpSequence(ctx context.Context, seq *dbobject.Sequence, action *dumprule.Action) error
	DumpMaterializedView(ctx context.Context, matview *dbobject.MaterializedView, action *dumprule.Action) error
	EndDump(ctx context.Context) error
	Close() error
	Discard() error
}

// discarder is an output which can be dropped instead of completed.
type discarder interface {
	Discard() error
}

// Dump calls the method of w dumping the kind of obj.
func Dump(ctx context.Context, w Writer, obj dbobject.DbObject, action *dumprule.Action) error {
	switch o := obj.(type) {
	case *dbobject.Table:
		return w.DumpTable(ctx, o, action)
	case *dbobject.Sequence:
		return w.DumpSequence(ctx, o, action)
	case *dbobject.MaterializedView:
		return w.DumpMaterializedView(ctx, o, action)
	default:
		return errs.NewDumpError("don't know how to dump objects of kind %s", obj.Kind())
	}
}

// ErrInvalidState is wrapped by the errors returned when a writer is used
// out of protocol.
var ErrInvalidState = errors.New("invalid dump writer state")

type State int

const (
	STATE_NOT_STARTED State = iota
	STATE_DUMPING
	STATE_FINISHED
	STATE_CLOSED
)

func (s State) String() string {
	switch s {
	case STATE_NOT_STARTED:
		return "not started"
	case STATE_DUMPING:
		return "dumping"
	case STATE_FINISHED:
		return "finished"
	case STATE_CLOSED:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// protocol tracks the state shared by the writers.
type protocol struct {
	state State
}

func (p *protocol) State() State {
	return p.state
}

func (p *protocol) require(op string, expected State) error {
	if p.state != expected {
		return fmt.Errorf("%w: can't %s: the dump is %s", ErrInvalidState, op, p.state)
	}
	return nil
}

func (p *protocol) transition(op string, from State, to State) error {
	if err := p.require(op, from); err != nil {
		return err
	}
	p.state = to
	return nil
}

// close moves to STATE_CLOSED. Closing an unfinished dump is reported, after
// the move, so the sink still gets released.
func (p *protocol) close() error {
	prev := p.state
	if prev == STATE_CLOSED {
		return fmt.Errorf("%w: can't close: the dump is already closed", ErrInvalidState)
	}
	p.state = STATE_CLOSED
	if prev == STATE_DUMPING {
		return fmt.Errorf("%w: closed while dumping", ErrInvalidState)
	}
	return nil
}

// discard moves to STATE_CLOSED from any state but STATE_CLOSED.
func (p *protocol) discard() error {
	if p.state == STATE_CLOSED {
		return fmt.Errorf("%w: can't discard: the dump is already closed", ErrInvalidState)
	}
	p.state = STATE_CLOSED
	return nil
}

func validateAction(obj dbobject.DbObject, action *dumprule.Action) error {
	if action == nil || action.Obj != obj {
		return fmt.Errorf("the action doesn't belong to %s %s", obj.Kind(), obj)
	}
	return nil
}
