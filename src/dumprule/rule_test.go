//go:build unit

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
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/errs"
)

func ruleConfig(values map[string]interface{}) *config.RuleConfig {
	return &config.RuleConfig{Filename: "rules.yaml", Line: 3, Values: values}
}

func newRule(t *testing.T, values map[string]interface{}) *Rule {
	logger, _ := logtest.NewNullLogger()
	rule, err := NewRuleFromConfig(ruleConfig(values), logger)
	require.NoError(t, err)
	return rule
}

func newTable(oid uint32, schema, name string, cols ...string) *dbobject.Table {
	table := dbobject.NewTable(dbobject.KIND_TABLE, dbobject.ObjectInfo{OID: oid, Schema: schema, Name: name})
	for _, col := range cols {
		if err := table.AddColumn(dbobject.NewColumn(col, "text")); err != nil {
			panic(err)
		}
	}
	return table
}

func TestRuleConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
		msg    string
	}{
		{"name and names", map[string]interface{}{"name": "a", "names": []interface{}{"b"}},
			"can't specify both 'name' and 'names'"},
		{"schema and schemas", map[string]interface{}{"schema": "a", "schemas": "b.*"},
			"can't specify both 'schema' and 'schemas'"},
		{"kind and kinds", map[string]interface{}{"kind": "table", "kinds": []interface{}{"sequence"}},
			"can't specify both 'kind' and 'kinds'"},
		{"skip and action", map[string]interface{}{"skip": true, "action": "dump"},
			"can't specify both 'skip' and 'action'"},
		{"name not string", map[string]interface{}{"name": 10}, "'name' should be a string"},
		{"schema not string", map[string]interface{}{"schema": []interface{}{"a"}}, "'schema' should be a string"},
		{"names bad type", map[string]interface{}{"names": []interface{}{"a", 1}},
			"'names' should be a list of strings or a regular expression"},
		{"schemas bad type", map[string]interface{}{"schemas": 42},
			"'schemas' should be a list of strings or a regular expression"},
		{"names bad regexp", map[string]interface{}{"names": "foo("}, "'names' is not a valid regular expression"},
		{"schemas bad regexp", map[string]interface{}{"schemas": "a)(b"}, "'schemas' is not a valid regular expression"},
		{"bad kind", map[string]interface{}{"kind": "view"},
			"bad 'kind': 'view'; accepted values are: materialized view, partitioned table, sequence, table"},
		{"bad kind in kinds", map[string]interface{}{"kinds": []interface{}{"table", "index"}}, "bad 'kind': 'index'"},
		{"kinds not list", map[string]interface{}{"kinds": "table"}, "'kinds' must be a list of strings"},
		{"bad action", map[string]interface{}{"action": "copy"},
			"bad 'action': 'copy'; accepted values are dump, skip, error"},
		{"dep action", map[string]interface{}{"action": "dep"}, "bad 'action': 'dep'"},
		{"no_columns not list", map[string]interface{}{"no_columns": "a"}, "'no_columns' must be a list of strings"},
		{"replace not dict", map[string]interface{}{"replace": []interface{}{"a"}}, "'replace' must be a dictionary of strings"},
		{"replace bad value", map[string]interface{}{"replace": map[string]interface{}{"a": 1}},
			"'replace' must be a dictionary of strings"},
		{"filter not string", map[string]interface{}{"filter": true}, "'filter' must be a string"},
		{"adjust_score not number", map[string]interface{}{"adjust_score": "high"}, "'adjust_score' must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := logtest.NewNullLogger()
			_, err := NewRuleFromConfig(ruleConfig(tt.values), logger)
			require.Error(t, err)
			var cfgErr *errs.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, cfgErr.Error(), tt.msg)
			assert.Contains(t, cfgErr.Error(), ", at rules.yaml:3")
			assert.Equal(t, 3, cfgErr.Line())
		})
	}
}

func TestRuleUnknownOptions(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	rule, err := NewRuleFromConfig(ruleConfig(map[string]interface{}{
		"name":    "orders",
		"nmae":    "typo",
		"comment": "x",
	}), logger)
	require.NoError(t, err)
	assert.NotNil(t, rule)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, log.WarnLevel, entry.Level)
	assert.Equal(t, "unknown config option(s): comment, nmae, at rules.yaml:3", entry.Message)
}

func TestRuleOptions(t *testing.T) {
	assert := assert.New(t)

	rule := newRule(t, map[string]interface{}{
		"schema":     "app",
		"kinds":      []interface{}{"table", "sequence"},
		"action":     "SKIP",
		"no_columns": []interface{}{"a", "b"},
		"replace":    map[string]interface{}{"email": "'x'"},
		"filter":     "id > 10",
	})
	assert.Equal(ACTION_SKIP, rule.Action())
	assert.Equal([]dbobject.Kind{dbobject.KIND_SEQUENCE, dbobject.KIND_TABLE}, rule.Kinds())
	assert.Equal([]string{"a", "b"}, rule.NoColumns())
	assert.Equal(map[string]string{"email": "'x'"}, rule.Replace())
	assert.Equal("id > 10", rule.Filter())
	assert.Equal("rules.yaml:3", rule.Pos())
	assert.IsType(Unconstrained{}, rule.Names())
	assert.IsType(ExactSet{}, rule.Schemas())

	assert.Equal(ACTION_DUMP, newRule(t, map[string]interface{}{}).Action())
	assert.Equal(ACTION_SKIP, newRule(t, map[string]interface{}{"skip": true}).Action())
	assert.Equal(ACTION_SKIP, newRule(t, map[string]interface{}{"skip": 1}).Action())
	assert.Equal(ACTION_DUMP, newRule(t, map[string]interface{}{"skip": false}).Action())
	assert.Equal(ACTION_DUMP, newRule(t, map[string]interface{}{"skip": nil}).Action())
	assert.Equal(ACTION_ERROR, newRule(t, map[string]interface{}{"action": "Error"}).Action())

	assert.IsType(Pattern{}, newRule(t, map[string]interface{}{"names": "foo_.*"}).Names())
	assert.IsType(Unconstrained{}, newRule(t, map[string]interface{}{"names": []interface{}{}}).Names())
}

func TestRuleScore(t *testing.T) {
	tests := []struct {
		values map[string]interface{}
		score  float64
	}{
		{map[string]interface{}{}, 0},
		{map[string]interface{}{"name": "a"}, 1000},
		{map[string]interface{}{"names": []interface{}{"a", "b"}}, 1000},
		{map[string]interface{}{"names": "a.*"}, 500},
		{map[string]interface{}{"schema": "s"}, 100},
		{map[string]interface{}{"schemas": "s.*"}, 50},
		{map[string]interface{}{"kind": "table"}, 10},
		{map[string]interface{}{"kinds": []interface{}{}}, 0},
		{map[string]interface{}{"name": "a", "schema": "s", "kind": "table"}, 1110},
		{map[string]interface{}{"names": "a", "schemas": "s", "kinds": []interface{}{"table"}}, 560},
		{map[string]interface{}{"name": "a", "adjust_score": -1500}, -500},
		{map[string]interface{}{"kind": "table", "adjust_score": 2.5}, 12.5},
	}
	for _, tt := range tests {
		rule := newRule(t, tt.values)
		assert.Equal(t, tt.score, rule.Score(), "rule %v", tt.values)
	}
}

func TestRuleMatch(t *testing.T) {
	orders := newTable(1, "public", "orders", "id")
	seq := dbobject.NewSequence(dbobject.ObjectInfo{OID: 2, Schema: "public", Name: "orders_id_seq"})
	appUsers := newTable(3, "app", "users", "id")

	tests := []struct {
		name   string
		values map[string]interface{}
		obj    dbobject.DbObject
		match  bool
	}{
		{"empty rule", map[string]interface{}{}, orders, true},
		{"exact name", map[string]interface{}{"name": "orders"}, orders, true},
		{"exact name miss", map[string]interface{}{"name": "order"}, orders, false},
		{"name set", map[string]interface{}{"names": []interface{}{"users", "orders"}}, orders, true},
		{"pattern is a prefix match", map[string]interface{}{"names": "order"}, orders, true},
		{"pattern anchored at start", map[string]interface{}{"names": "rders"}, orders, false},
		{"pattern full", map[string]interface{}{"names": "orders$"}, seq, false},
		{"verbose pattern", map[string]interface{}{"names": "orders  # the table\n  _id_seq"}, seq, true},
		{"alternation is anchored", map[string]interface{}{"names": "x|orders"}, orders, true},
		{"alternation miss", map[string]interface{}{"names": "x|rders"}, orders, false},
		{"schema", map[string]interface{}{"schema": "app"}, appUsers, true},
		{"schema miss", map[string]interface{}{"schema": "app"}, orders, false},
		{"schema pattern", map[string]interface{}{"schemas": "pub"}, orders, true},
		{"kind", map[string]interface{}{"kind": "sequence"}, seq, true},
		{"kind miss", map[string]interface{}{"kind": "sequence"}, orders, false},
		{"all selectors", map[string]interface{}{"name": "users", "schema": "app", "kind": "table"}, appUsers, true},
		{"one selector fails", map[string]interface{}{"name": "users", "schema": "app", "kind": "sequence"}, appUsers, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, newRule(t, tt.values).Match(tt.obj))
		})
	}
}

func TestRuleSetResolve(t *testing.T) {
	assert := assert.New(t)
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	rs := NewRuleSet(logger)
	skipTables := newRule(t, map[string]interface{}{"kind": "table", "action": "skip"})
	dumpOrders := newRule(t, map[string]interface{}{"name": "orders", "action": "dump"})
	rs.Add(skipTables, dumpOrders)

	orders := newTable(1, "public", "orders", "id")
	items := newTable(2, "public", "items", "id")
	seq := dbobject.NewSequence(dbobject.ObjectInfo{OID: 3, Schema: "public", Name: "orders_id_seq"})

	assert.Same(dumpOrders, rs.Resolve(orders))
	assert.Same(skipTables, rs.Resolve(items))
	assert.Nil(rs.Resolve(seq))
	assert.Equal([]*Rule{skipTables, dumpOrders}, rs.Matching(orders))

	// equal scores: the first declared rule wins
	first := newRule(t, map[string]interface{}{"schema": "public", "action": "error"})
	second := newRule(t, map[string]interface{}{"schema": "public", "action": "dump"})
	rs2 := NewRuleSet(logger)
	rs2.Add(first, second)
	hook.Reset()
	assert.Same(first, rs2.Resolve(seq))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(log.DebugLevel, hook.LastEntry().Level)

	assert.Equal(2, rs.Len())
	rs.Clear()
	assert.Equal(0, rs.Len())
}

func TestRuleSetAddConfig(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	rs := NewRuleSet(logger)

	f, err := config.ParseRules("a.yaml", []byte("db_objects:\n  - name: a\n  - kind: bogus\n"))
	require.NoError(t, err)
	_, err = rs.AddConfig(f)
	assert.ErrorContains(t, err, "at a.yaml:3")
	assert.Equal(t, 0, rs.Len())

	f, err = config.ParseRules("b.yaml", []byte("db_objects:\n  - name: a\n  - schema: b\n"))
	require.NoError(t, err)
	rules, err := rs.AddConfig(f)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
	assert.Equal(t, rules, rs.Rules())
}

func TestResolveAction(t *testing.T) {
	assert := assert.New(t)
	logger, _ := logtest.NewNullLogger()
	rs := NewRuleSet(logger)
	rs.Add(newRule(t, map[string]interface{}{"schema": "public"}))

	plain := newTable(1, "public", "t", "id")
	assert.Equal(ACTION_DUMP, rs.ResolveAction(plain).Action)

	cond := "where id > 0"
	extTable := dbobject.NewTable(dbobject.KIND_TABLE, dbobject.ObjectInfo{
		OID: 2, Schema: "public", Name: "ext_conf", Extension: "myext", ExtCondition: &cond})
	assert.Equal(ACTION_DUMP, rs.ResolveAction(extTable).Action)

	extInternal := dbobject.NewTable(dbobject.KIND_TABLE, dbobject.ObjectInfo{
		OID: 3, Schema: "public", Name: "ext_internal", Extension: "myext"})
	a := rs.ResolveAction(extInternal)
	assert.Equal(ACTION_SKIP, a.Action)
	assert.Nil(a.Rule)

	other := newTable(4, "other", "t", "id")
	assert.Equal(ACTION_UNKNOWN, rs.ResolveAction(other).Action)
}
