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
package dumper

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/dumprule"
	"github.com/yugabyte/pg-seldump/src/dumpwriter"
	"github.com/yugabyte/pg-seldump/src/errs"
	"github.com/yugabyte/pg-seldump/src/pbreporter"
	"github.com/yugabyte/pg-seldump/src/query"
	"github.com/yugabyte/pg-seldump/src/query/queryparser"
)

// Dumper decides what to do with every object of the database and drives the
// writer to emit it.
type Dumper struct {
	db       *dbobject.Database
	writer   dumpwriter.Writer
	rules    *dumprule.RuleSet
	actions  map[uint32]*dumprule.Action
	progress pbreporter.DumpProgressReporter
	logger   log.FieldLogger
}

func New(writer dumpwriter.Writer, logger log.FieldLogger) *Dumper {
	return &Dumper{
		db:       dbobject.NewDatabase(),
		writer:   writer,
		rules:    dumprule.NewRuleSet(logger),
		progress: pbreporter.NewDumpPB(nil, "", true),
		logger:   logger,
	}
}

// DB is the catalog the reader loads the objects into.
func (d *Dumper) DB() *dbobject.Database {
	return d.db
}

func (d *Dumper) Rules() []*dumprule.Rule {
	return d.rules.Rules()
}

func (d *Dumper) SetProgressReporter(progress pbreporter.DumpProgressReporter) {
	d.progress = progress
}

func (d *Dumper) Clear() {
	d.db.Clear()
	d.rules.Clear()
	d.actions = nil
}

// AddConfig adds the rules of a configuration file. Nothing is added if any
// rule is invalid.
func (d *Dumper) AddConfig(f *config.RulesFile) error {
	rules, err := dumprule.NewRuleSet(d.logger).AddConfig(f)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if err = validateSnippets(rule); err != nil {
			return err
		}
	}
	d.rules.Add(rules...)
	d.logger.Debugf("added %d rules from %s", len(rules), f.Filename)
	return nil
}

func (d *Dumper) AddRule(rule *dumprule.Rule) error {
	if err := validateSnippets(rule); err != nil {
		return err
	}
	d.rules.Add(rule)
	return nil
}

// validateSnippets checks that the SQL merged in the dump statements parses.
func validateSnippets(rule *dumprule.Rule) error {
	if filter := rule.Filter(); filter != "" {
		if err := queryparser.ValidateCondition(filter); err != nil {
			return errs.NewConfigError(rule.Filename(), rule.Line(), "bad filter '%s': %s", filter, err)
		}
	}
	replace := rule.Replace()
	cols := lo.Keys(replace)
	slices.Sort(cols)
	for _, col := range cols {
		if err := queryparser.ValidateExpression(replace[col]); err != nil {
			return errs.NewConfigError(rule.Filename(), rule.Line(),
				"bad replace expression for column %s: %s", col, err)
		}
	}
	return nil
}

// Action returns the planned action of the object with the given oid, nil if
// the dump is not planned or the object is unknown.
func (d *Dumper) Action(oid uint32) *dumprule.Action {
	return d.actions[oid]
}

func (d *Dumper) PerformDump(ctx context.Context) error {
	if err := d.PlanDump(); err != nil {
		return err
	}
	return d.ApplyActions(ctx)
}

// PlanDump associates an action to every object of the database, including
// the objects needed by the dumped ones. All the objects which cannot be
// dumped are reported together.
func (d *Dumper) PlanDump() error {
	d.actions = make(map[uint32]*dumprule.Action, d.db.Len())
	objs := d.db.Objects()

	for _, obj := range objs {
		if _, ok := d.actions[obj.OID()]; ok {
			return errs.NewDumpError("oid %d is duplicate", obj.OID())
		}
		d.actions[obj.OID()] = d.rules.ResolveAction(obj)
	}

	// Find the tables not mentioned whose data is needed to satisfy fkeys.
	for _, obj := range objs {
		if table, ok := obj.(*dbobject.Table); ok && d.actions[obj.OID()].Action == dumprule.ACTION_DUMP {
			d.addReferredTables(table, mapset.NewThreadUnsafeSet[uint32]())
		}
	}

	// Find the sequences not mentioned that some dumped table depends on.
	for _, obj := range objs {
		seq, ok := obj.(*dbobject.Sequence)
		if !ok || d.actions[obj.OID()].Action != dumprule.ACTION_UNKNOWN {
			continue
		}
		if action := d.sequenceDependencyAction(seq); action != nil {
			d.actions[obj.OID()] = action
		}
	}

	for _, obj := range objs {
		action := d.actions[obj.OID()]
		if table, ok := obj.(*dbobject.Table); ok && action.Action == dumprule.ACTION_DEP {
			action.Query = d.dependencyQuery(table, action)
		}
	}

	var problems []string
	for _, obj := range objs {
		action := d.actions[obj.OID()]
		if action.Err != nil {
			d.logger.Errorf("cannot dump %s %s: %s", obj.Kind(), obj, action.Err)
			problems = append(problems, fmt.Sprintf("%s %s: %s", obj.Kind(), obj, action.Err))
		}
	}
	if len(problems) > 0 {
		return errs.NewPlanError(problems)
	}
	return nil
}

func (d *Dumper) addReferredTables(table *dbobject.Table, seen mapset.Set[uint32]) {
	d.logger.Debugf("exploring %s foreign keys", table)
	if !seen.Add(table.OID()) {
		return
	}

	for _, fkey := range table.ForeignKeys() {
		if fkey.IsSelfReferencing() {
			d.logger.Warnf("not dealing with self-referencing fkey %s now", fkey.Name)
			continue
		}

		d.logger.Debugf("found fkey %s", fkey.Name)
		faction := d.actions[fkey.FTableOID]
		if faction == nil {
			continue
		}
		if faction.Action != dumprule.ACTION_UNKNOWN && faction.Action != dumprule.ACTION_DEP {
			// skip, dump, error: no need to navigate it
			continue
		}

		faction.Action = dumprule.ACTION_DEP
		if !lo.Contains(faction.ReferencedBy, fkey) {
			faction.ReferencedBy = append(faction.ReferencedBy, fkey)
		}
		if ftable, ok := faction.Obj.(*dbobject.Table); ok {
			d.addReferredTables(ftable, seen)
		}
	}
}

func (d *Dumper) sequenceDependencyAction(seq *dbobject.Sequence) *dumprule.Action {
	for _, user := range d.db.TablesUsingSequence(seq.OID()) {
		ta := d.actions[user.Table.OID()]
		if ta == nil || (ta.Action != dumprule.ACTION_DUMP && ta.Action != dumprule.ACTION_DEP) {
			continue
		}
		if ta.IsExcluded(user.Column.Name) {
			d.logger.Debugf("%s %s depends on %s.%s which is not dumped",
				seq.Kind(), seq, user.Table, user.Column)
			continue
		}
		if ta.IsReplaced(user.Column.Name) {
			d.logger.Debugf("%s %s depends on %s.%s which is replaced",
				seq.Kind(), seq, user.Table, user.Column)
			continue
		}
		d.logger.Debugf("%s %s is needed by matched %s %s",
			seq.Kind(), seq, user.Table.Kind(), user.Table)
		return dumprule.NewActionOfType(seq, dumprule.ACTION_DEP)
	}
	return nil
}

// dependencyQuery selects the rows of table referred by the rows dumped from
// the tables referencing it.
func (d *Dumper) dependencyQuery(table *dbobject.Table, action *dumprule.Action) *query.Select {
	cols := lo.Map(table.Columns(), func(col *dbobject.Column, _ int) query.Composable {
		return query.Ident(col.Name)
	})
	return &query.Select{
		From:    &query.FromEntry{Source: table, Alias: tableAlias(0)},
		Columns: cols,
		Where:   d.referrersPredicate(action, 0, mapset.NewThreadUnsafeSet(table.OID())),
	}
}

// referrersPredicate is true for the rows of the table of action, aliased at
// depth, referred by some row dumped from its referrers. path holds the
// tables being navigated, to stop on loops.
func (d *Dumper) referrersPredicate(action *dumprule.Action, depth int, path mapset.Set[uint32]) query.Predicate {
	var conds []query.Predicate
	for _, fkey := range action.ReferencedBy {
		if path.Contains(fkey.TableOID) {
			d.logger.Debugf("fkey %s leads to a loop: not following it", fkey.Name)
			continue
		}
		raction := d.actions[fkey.TableOID]
		if raction == nil {
			continue
		}
		rtable, ok := raction.Obj.(*dbobject.Table)
		if !ok {
			continue
		}

		alias := tableAlias(depth + 1)
		var where query.Predicate = &query.FkeyJoin{Fkey: fkey, From: alias, To: tableAlias(depth)}
		switch raction.Action {
		case dumprule.ACTION_DUMP:
			if raction.Filter != "" {
				where = &query.And{Conds: []query.Predicate{where, &query.RawPredicate{String: raction.Filter}}}
			}
		case dumprule.ACTION_DEP:
			subpath := path.Clone()
			subpath.Add(fkey.TableOID)
			where = &query.And{Conds: []query.Predicate{where, d.referrersPredicate(raction, depth+1, subpath)}}
		default:
			continue
		}

		conds = append(conds, &query.Exists{Query: &query.Select{
			From:    &query.FromEntry{Source: rtable, Alias: alias},
			Columns: []query.Composable{query.SQL("1")},
			Where:   where,
		}})
	}

	switch len(conds) {
	case 0:
		return query.False
	case 1:
		return conds[0]
	default:
		return &query.Or{Conds: conds}
	}
}

func tableAlias(depth int) string {
	return fmt.Sprintf("t%d", depth)
}

// ApplyActions writes the planned objects. Materialized views are refreshed
// after all the data is restored.
func (d *Dumper) ApplyActions(ctx context.Context) error {
	if d.actions == nil {
		return errs.NewDumpError("the dump was not planned")
	}

	var objs, matviews []dbobject.DbObject
	for _, obj := range d.db.Objects() {
		if obj.Kind() == dbobject.KIND_MATVIEW {
			matviews = append(matviews, obj)
		} else {
			objs = append(objs, obj)
		}
	}
	objs = append(objs, matviews...)

	toWrite := lo.CountBy(objs, func(obj dbobject.DbObject) bool {
		a := d.actions[obj.OID()]
		return a.Action == dumprule.ACTION_DUMP || a.Action == dumprule.ACTION_DEP
	})
	d.progress.SetTotalObjectCount(int64(toWrite), false)

	if err := d.writer.BeginDump(ctx); err != nil {
		return err
	}

	var written int64
	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return err
		}
		action := d.actions[obj.OID()]
		switch action.Action {
		case dumprule.ACTION_UNKNOWN:
			d.logger.Debugf("%s %s doesn't match any rule: skipping", obj.Kind(), obj)
			continue
		case dumprule.ACTION_SKIP:
			d.logger.Debugf("skipping %s %s", obj.Kind(), obj)
			continue
		case dumprule.ACTION_ERROR:
			return errs.NewDumpError("cannot dump %s %s: %s", obj.Kind(), obj, action.Err)
		}

		if err := dumpwriter.Dump(ctx, d.writer, obj, action); err != nil {
			return err
		}
		written++
		d.progress.SetDumpedObjectCount(written)
	}

	if err := d.writer.EndDump(ctx); err != nil {
		return err
	}
	d.progress.SetTotalObjectCount(-1, true)
	d.logger.Infof("dumped %s objects", humanize.Comma(written))
	return nil
}
