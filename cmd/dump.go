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
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/datastore"
	"github.com/yugabyte/pg-seldump/src/dumper"
	"github.com/yugabyte/pg-seldump/src/dumpwriter"
	"github.com/yugabyte/pg-seldump/src/pbreporter"
	"github.com/yugabyte/pg-seldump/src/srcdb"
)

func dumpDatabase(ctx context.Context, configFiles []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.StandardLogger()
	start := time.Now()

	// Rules are checked before touching the database or the output.
	var rulesFiles []*config.RulesFile
	for _, path := range configFiles {
		f, err := config.LoadRulesFile(path)
		if err != nil {
			return err
		}
		rulesFiles = append(rulesFiles, f)
	}

	source := srcdb.NewPostgreSQL(dsn, schemas, logger)
	log.Infof("connecting to %s", srcdb.RedactDSN(dsn))
	if err := source.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to the database: %w", err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.Warnf("closing the database connection: %s", err)
		}
	}()

	writer, err := newWriter(ctx, source, logger)
	if err != nil {
		return err
	}
	completed := false
	defer func() {
		if completed {
			return
		}
		// A failed dump is not left behind in the output.
		if err := writer.Discard(); err != nil {
			log.Warnf("discarding the output: %s", err)
		}
	}()

	d := dumper.New(writer, logger)
	for _, f := range rulesFiles {
		if err := d.AddConfig(f); err != nil {
			return err
		}
	}
	log.Infof("loaded %d rules from %d files", len(d.Rules()), len(rulesFiles))

	if err := source.LoadSchema(ctx, d.DB()); err != nil {
		return err
	}
	log.Infof("found %s dumpable objects in the database", humanize.Comma(int64(d.DB().Len())))

	var progress *mpb.Progress
	if !disablePb {
		progress = mpb.NewWithContext(ctx, mpb.WithOutput(os.Stderr))
	}
	reporter := pbreporter.NewDumpPB(progress, "Dumping", disablePb)
	d.SetProgressReporter(reporter)
	err = d.PerformDump(ctx)
	if progress != nil {
		if !reporter.IsComplete() {
			reporter.SetTotalObjectCount(-1, true)
		}
		progress.Wait()
	}
	if err != nil {
		return err
	}
	completed = true
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing the output: %w", err)
	}

	printSummary(writer, time.Since(start))
	return nil
}

func newWriter(ctx context.Context, source *srcdb.PostgreSQL, logger log.FieldLogger) (dumpwriter.Writer, error) {
	if testMode {
		log.Info("test mode: nothing will be written")
		return dumpwriter.NewDummyWriter(logger), nil
	}
	out, err := datastore.OpenOutput(ctx, outFile)
	if err != nil {
		return nil, fmt.Errorf("opening the output %s: %w", outFile, err)
	}
	if !datastore.IsSeekable(out) {
		log.Debugf("output %s is not seekable: the size of the tables won't be reported", outFile)
	}
	return dumpwriter.NewDumpWriter(out, source, logger), nil
}

func printSummary(writer dumpwriter.Writer, elapsed time.Duration) {
	var summary string
	switch w := writer.(type) {
	case *dumpwriter.DumpWriter:
		tables, size := w.Stats()
		summary = fmt.Sprintf("dumped %s tables", humanize.Comma(int64(tables)))
		if size > 0 {
			summary += fmt.Sprintf(" (%s of data)", humanize.IBytes(uint64(size)))
		}
	case *dumpwriter.DummyWriter:
		summary = fmt.Sprintf("would dump %s objects", humanize.Comma(int64(len(w.Dumped()))))
	}
	summary += fmt.Sprintf(" in %s", dumpwriter.PrettyDuration(elapsed))
	log.Info(summary)
	if !quiet {
		fmt.Fprintln(summaryOutput, color.GreenString(summary))
	}
}

// The dump itself may be on stdout.
var summaryOutput io.Writer = os.Stderr
