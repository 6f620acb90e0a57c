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
package query

import (
	"fmt"

	"github.com/yugabyte/pg-seldump/src/dbobject"
)

// Node is an element of a query tree. ToSQL renders it.
type Node interface {
	queryNode()
}

// Predicate is a Node usable in a where clause.
type Predicate interface {
	Node
	predicate()
}

type Select struct {
	From    *FromEntry
	Columns []Composable
	// Where is optional.
	Where Predicate
}

type FromEntry struct {
	Source *dbobject.Table
	Alias  string
}

type Exists struct {
	Query *Select
}

// FkeyJoin matches the referring columns of Fkey, read from the relation
// aliased From, with the referenced columns read from the relation aliased To.
type FkeyJoin struct {
	Fkey *dbobject.ForeignKey
	From string
	To   string
}

type And struct {
	Conds []Predicate
}

type Or struct {
	Conds []Predicate
}

// RawPredicate is a condition coming from the configuration, merged verbatim.
type RawPredicate struct {
	String string
}

func (*Select) queryNode()       {}
func (*FromEntry) queryNode()    {}
func (*Exists) queryNode()       {}
func (*FkeyJoin) queryNode()     {}
func (*And) queryNode()          {}
func (*Or) queryNode()           {}
func (*RawPredicate) queryNode() {}

func (*Exists) predicate()       {}
func (*FkeyJoin) predicate()     {}
func (*And) predicate()          {}
func (*Or) predicate()           {}
func (*RawPredicate) predicate() {}

// False is the predicate of a dependency nothing refers to.
var False = &RawPredicate{String: "false"}

// ToSQL converts a query tree into a statement.
func ToSQL(node Node) (Composable, error) {
	switch n := node.(type) {
	case *Select:
		return selectToSQL(n)
	case *FromEntry:
		if n.Source == nil {
			return nil, fmt.Errorf("from entry without source")
		}
		var rv Composable = Ident(n.Source.Schema(), n.Source.Name())
		if n.Alias != "" {
			rv = SQL("{} as {}").Format(rv, Ident(n.Alias))
		}
		return rv, nil
	case *Exists:
		sub, err := ToSQL(n.Query)
		if err != nil {
			return nil, err
		}
		return SQL("exists (\n{}\n)").Format(sub), nil
	case *FkeyJoin:
		return fkeyJoinToSQL(n)
	case *And:
		return joinPredicates(n.Conds, " and ")
	case *Or:
		return joinPredicates(n.Conds, " or ")
	case *RawPredicate:
		return SQL("(" + string(Snippet(n.String)) + ")"), nil
	default:
		return nil, fmt.Errorf("can't convert %T to sql", node)
	}
}

func selectToSQL(sel *Select) (Composable, error) {
	if len(sel.Columns) == 0 {
		return nil, fmt.Errorf("select without columns")
	}
	if sel.From == nil {
		return nil, fmt.Errorf("select without from")
	}
	from, err := ToSQL(sel.From)
	if err != nil {
		return nil, err
	}
	parts := []Composable{SQL("select"), SQL(", ").Join(sel.Columns...), SQL("\nfrom"), from}
	if sel.Where != nil {
		where, err := ToSQL(sel.Where)
		if err != nil {
			return nil, err
		}
		parts = append(parts, SQL("\nwhere"), where)
	}
	return SQL(" ").Join(parts...), nil
}

func fkeyJoinToSQL(join *FkeyJoin) (Composable, error) {
	fkey := join.Fkey
	if len(fkey.TableCols) == 0 || len(fkey.TableCols) != len(fkey.FTableCols) {
		return nil, fmt.Errorf("the foreign key %s has mismatching columns", fkey.Name)
	}
	var lhs, rhs []Composable
	for i := range fkey.TableCols {
		lhs = append(lhs, Ident(join.From, fkey.TableCols[i]))
		rhs = append(rhs, Ident(join.To, fkey.FTableCols[i]))
	}
	return SQL("(({}) = ({}))").Format(SQL(", ").Join(lhs...), SQL(", ").Join(rhs...)), nil
}

func joinPredicates(conds []Predicate, sep string) (Composable, error) {
	if len(conds) == 0 {
		return nil, fmt.Errorf("empty boolean expression")
	}
	var parts []Composable
	for _, cond := range conds {
		part, err := ToSQL(cond)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return SQL("({})").Format(SQL(sep).Join(parts...)), nil
}
