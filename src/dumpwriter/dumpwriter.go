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
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/pg-seldump/src/constants"
	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/dumprule"
	"github.com/yugabyte/pg-seldump/src/errs"
	"github.com/yugabyte/pg-seldump/src/query"
)

const TIMESTAMP_FORMAT = "2006-01-02 15:04:05.000000"

// DumpWriter writes a restorable SQL script. The size of the data of every
// table is reported if the output is seekable.
type DumpWriter struct {
	protocol
	out       io.Writer
	reader    Reader
	logger    log.FieldLogger
	now       func() time.Time
	startTime time.Time

	tableCount int
	dataSize   int64
}

func NewDumpWriter(out io.Writer, reader Reader, logger log.FieldLogger) *DumpWriter {
	return &DumpWriter{
		out:    out,
		reader: reader,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the source of the timestamps written in the dump.
func (w *DumpWriter) SetClock(now func() time.Time) {
	w.now = now
}

// Stats returns the number of tables written and the size of their data.
// The size only counts measurable copies.
func (w *DumpWriter) Stats() (int, int64) {
	return w.tableCount, w.dataSize
}

func (w *DumpWriter) BeginDump(ctx context.Context) error {
	if err := w.transition("begin dump", STATE_NOT_STARTED, STATE_DUMPING); err != nil {
		return err
	}
	w.startTime = w.now().UTC()
	return w.writef("-- PostgreSQL data dump generated by %s %s\n-- %s\n\n"+
		"-- Data dump started at %sZ\n\n"+
		"set session authorization default;\n",
		constants.PRODUCT_NAME, constants.VERSION, constants.PROJECT_URL,
		w.startTime.Format(TIMESTAMP_FORMAT))
}

func (w *DumpWriter) EndDump(ctx context.Context) error {
	if err := w.transition("end dump", STATE_DUMPING, STATE_FINISHED); err != nil {
		return err
	}
	now := w.now().UTC()
	return w.writef("\n\nanalyze;\n\n"+
		"-- Data dump finished at %sZ (%s)\n\n"+
		"-- vim: set filetype=:\n",
		now.Format(TIMESTAMP_FORMAT), PrettyDuration(now.Sub(w.startTime)))
}

func (w *DumpWriter) DumpTable(ctx context.Context, table *dbobject.Table, action *dumprule.Action) error {
	if err := w.require("dump table", STATE_DUMPING); err != nil {
		return err
	}
	if err := validateAction(table, action); err != nil {
		return err
	}
	w.logger.Infof("writing %s %s", table.Kind(), table.Escaped())

	importStmt := action.ImportStatement()
	copyStmt, err := action.CopyStatement()
	if err != nil {
		return fmt.Errorf("building the copy statement of %s: %w", table, err)
	}
	if importStmt == nil || copyStmt == nil {
		return fmt.Errorf("no copy statement for %s %s", table.Kind(), table)
	}
	stmt, err := w.reader.ObjAsString(copyStmt)
	if err != nil {
		return err
	}

	if err = w.writef("\nalter table %s disable trigger all;\n", table.Escaped()); err != nil {
		return err
	}
	if err = w.write(importStmt); err != nil {
		return err
	}

	startPos, seekable := w.tell()
	w.logger.Debugf("exporting using: %s", stmt)
	if err = w.reader.Copy(ctx, stmt, w.out); err != nil {
		return errs.NewCopyError(table.Escaped(), err)
	}
	if err = w.writef("\\.\n"); err != nil {
		return err
	}
	size := int64(-1)
	if seekable {
		if endPos, ok := w.tell(); ok {
			size = endPos - startPos
		}
	}
	w.tableCount++

	if err = w.writef("\nalter table %s enable trigger all;\n\n", table.Escaped()); err != nil {
		return err
	}
	if size < 0 {
		return nil
	}
	w.dataSize += size
	pretty := ""
	if size >= constants.PRETTY_SIZE_THRESHOLD {
		pretty = fmt.Sprintf(" (%s)", PrettySize(size))
	}
	return w.writef("-- %d bytes written for table %s%s\n\n", size, table.Escaped(), pretty)
}

func (w *DumpWriter) DumpSequence(ctx context.Context, seq *dbobject.Sequence, action *dumprule.Action) error {
	if err := w.require("dump sequence", STATE_DUMPING); err != nil {
		return err
	}
	if err := validateAction(seq, action); err != nil {
		return err
	}
	w.logger.Infof("writing %s %s", seq.Kind(), seq.Escaped())

	// The name is escaped as identifier, then as string, to be cast to regclass.
	name, err := w.reader.ObjAsString(query.Ident(seq.Schema(), seq.Name()))
	if err != nil {
		return err
	}
	val, err := w.reader.GetSequenceValue(ctx, seq)
	if err != nil {
		return fmt.Errorf("reading the value of sequence %s: %w", seq, err)
	}
	return w.write(query.SQL("\nselect pg_catalog.setval({}, {}, true);\n\n").Format(
		query.Lit(name), query.Lit(val)))
}

func (w *DumpWriter) DumpMaterializedView(ctx context.Context, matview *dbobject.MaterializedView, action *dumprule.Action) error {
	if err := w.require("dump materialized view", STATE_DUMPING); err != nil {
		return err
	}
	if err := validateAction(matview, action); err != nil {
		return err
	}
	w.logger.Infof("writing %s %s", matview.Kind(), matview.Escaped())

	stmt := action.ImportStatement()
	if stmt == nil {
		return fmt.Errorf("no import statement for %s %s", matview.Kind(), matview)
	}
	return w.write(stmt)
}

// Close releases the output, unless it is the process stdout.
func (w *DumpWriter) Close() error {
	if w.state == STATE_CLOSED {
		return w.close()
	}
	stateErr := w.close()
	var closeErr error
	if c, ok := w.out.(io.Closer); ok && w.out != io.Writer(os.Stdout) {
		closeErr = c.Close()
	}
	return errors.Join(stateErr, closeErr)
}

// Discard ends a failed dump. Outputs which support it are dropped, so no
// partial dump is published; the others are released as by Close.
func (w *DumpWriter) Discard() error {
	if err := w.discard(); err != nil {
		return err
	}
	w.logger.Debugf("discarding the dump output")
	if d, ok := w.out.(discarder); ok {
		return d.Discard()
	}
	if c, ok := w.out.(io.Closer); ok && w.out != io.Writer(os.Stdout) {
		return c.Close()
	}
	return nil
}

func (w *DumpWriter) write(c query.Composable) error {
	s, err := w.reader.ObjAsString(c)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w.out, s)
	return err
}

func (w *DumpWriter) writef(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(w.out, format, args...)
	return err
}

// tell returns the current position of the output, if it can be known.
func (w *DumpWriter) tell() (int64, bool) {
	seeker, ok := w.out.(io.Seeker)
	if !ok {
		return 0, false
	}
	pos, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	return pos, true
}
