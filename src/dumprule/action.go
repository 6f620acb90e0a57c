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
package dumprule

import (
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"

	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/errs"
	"github.com/yugabyte/pg-seldump/src/query"
)

// Action is what the dump will do with one object.
type Action struct {
	Obj    dbobject.DbObject
	Action ActionType
	// Rule is the rule the action comes from, nil if the action was not
	// configured.
	Rule      *Rule
	NoColumns []string
	Replace   map[string]string
	Filter    string

	// ReferencedBy lists the foreign keys of dumped tables pointing to a
	// dependency table.
	ReferencedBy []*dbobject.ForeignKey
	// Query selects the rows of a dependency table.
	Query *query.Select

	// Err is set if the object can't be dumped.
	Err error
}

func NewActionOfType(obj dbobject.DbObject, action ActionType) *Action {
	return &Action{
		Obj:     obj,
		Action:  action,
		Replace: map[string]string{},
	}
}

// NewAction applies rule to obj.
func NewAction(obj dbobject.DbObject, rule *Rule) *Action {
	a := &Action{
		Obj:       obj,
		Action:    rule.Action(),
		Rule:      rule,
		NoColumns: rule.NoColumns(),
		Replace:   rule.Replace(),
		Filter:    rule.Filter(),
	}
	switch a.Action {
	case ACTION_ERROR:
		a.Err = fmt.Errorf("dumping is forbidden by the rule at %s", rule.Pos())
	case ACTION_DUMP:
		if table, ok := obj.(*dbobject.Table); ok {
			a.Err = a.validateColumns(table)
		}
	}
	return a
}

func (a *Action) validateColumns(table *dbobject.Table) error {
	var unknown []string
	for _, name := range a.NoColumns {
		if table.Column(name) == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return errs.NewUnknownColumnsErr(table.Escaped(), "no_columns", unknown)
	}

	for name := range a.Replace {
		if table.Column(name) == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return errs.NewUnknownColumnsErr(table.Escaped(), "replace", unknown)
	}

	if len(a.DumpedColumns()) == 0 {
		return fmt.Errorf("the table %s would be dumped with no column", table.Escaped())
	}
	return nil
}

// DumpedColumns returns the columns of a table which are not excluded by
// no_columns, in table order.
func (a *Action) DumpedColumns() []*dbobject.Column {
	table, ok := a.Obj.(*dbobject.Table)
	if !ok {
		return nil
	}
	return lo.Filter(table.Columns(), func(col *dbobject.Column, _ int) bool {
		return !lo.Contains(a.NoColumns, col.Name)
	})
}

func (a *Action) IsReplaced(column string) bool {
	_, ok := a.Replace[column]
	return ok
}

func (a *Action) IsExcluded(column string) bool {
	return lo.Contains(a.NoColumns, column)
}

// ImportStatement is the preamble written before the data of the object:
// the copy header of a table or the refresh of a materialized view. It is nil
// for the other objects.
func (a *Action) ImportStatement() query.Composable {
	switch obj := a.Obj.(type) {
	case *dbobject.Table:
		return query.SQL("\ncopy {} ({}) from stdin;\n").Format(
			query.Ident(obj.Schema(), obj.Name()), a.columnList())
	case *dbobject.MaterializedView:
		return query.SQL("\nrefresh materialized view {};\n").Format(
			query.Ident(obj.Schema(), obj.Name()))
	default:
		return nil
	}
}

// CopyStatement is the statement streaming the rows of a table. It is nil for
// the other objects.
func (a *Action) CopyStatement() (query.Composable, error) {
	table, ok := a.Obj.(*dbobject.Table)
	if !ok {
		return nil, nil
	}
	ident := query.Ident(table.Schema(), table.Name())

	if a.Action == ACTION_DEP {
		if a.Query == nil {
			return nil, fmt.Errorf("the dependency table %s has no query", table)
		}
		sel, err := query.ToSQL(a.Query)
		if err != nil {
			return nil, err
		}
		return query.SQL("copy ({}) to stdout").Format(sel), nil
	}

	if !table.IsPartitioned() && len(a.NoColumns) == 0 && len(a.Replace) == 0 && a.Filter == "" {
		return query.SQL("copy {} ({}) to stdout").Format(ident, a.columnList()), nil
	}

	var attrs []query.Composable
	for _, col := range a.DumpedColumns() {
		if expr, ok := a.Replace[col.Name]; ok {
			attrs = append(attrs, query.SQL("({}) as {}").Format(query.Snippet(expr), query.Ident(col.Name)))
		} else {
			attrs = append(attrs, query.Ident(col.Name))
		}
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("the table %s has no column to dump", table)
	}
	var where query.Composable = query.SQL("")
	if a.Filter != "" {
		where = query.SQL(" where {}").Format(query.Snippet(a.Filter))
	}
	return query.SQL("copy (select {} from {}{}) to stdout").Format(
		query.SQL(", ").Join(attrs...), ident, where), nil
}

func (a *Action) columnList() query.Composable {
	cols := lo.Map(a.DumpedColumns(), func(col *dbobject.Column, _ int) query.Composable {
		return query.Ident(col.Name)
	})
	return query.SQL(", ").Join(cols...)
}

func (a *Action) String() string {
	return fmt.Sprintf("%s %s %s", a.Action, a.Obj.Kind(), a.Obj)
}
