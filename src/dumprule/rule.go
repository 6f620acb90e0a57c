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
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/errs"
)

type ActionType string

const (
	ACTION_DUMP  ActionType = "dump"
	ACTION_SKIP  ActionType = "skip"
	ACTION_ERROR ActionType = "error"
	// ACTION_DEP marks an object dumped because a dumped object needs it.
	// It can't be configured.
	ACTION_DEP ActionType = "dep"
	// ACTION_UNKNOWN is the action of an object no rule matches.
	ACTION_UNKNOWN ActionType = "unknown"
)

// Actions accepted by the 'action' option.
var CONFIGURABLE_ACTIONS = []ActionType{ACTION_DUMP, ACTION_SKIP, ACTION_ERROR}

// Score contributions of the selectors.
const (
	SCORE_NAMES           = 1000
	SCORE_NAMES_PATTERN   = 500
	SCORE_SCHEMAS         = 100
	SCORE_SCHEMAS_PATTERN = 50
	SCORE_KINDS           = 10
)

var knownOptions = mapset.NewThreadUnsafeSet(
	"name", "names", "schema", "schemas", "kind", "kinds",
	"action", "skip", "no_columns", "replace", "filter", "adjust_score",
)

// Rule selects a set of database objects and tells what to do with them.
type Rule struct {
	names       Matcher
	schemas     Matcher
	kinds       mapset.Set[dbobject.Kind]
	adjustScore float64
	score       float64

	action    ActionType
	noColumns []string
	replace   map[string]string
	filter    string

	filename string
	line     int
}

// NewRuleFromConfig validates a db_objects entry and builds its rule. Options
// the rule doesn't know about are reported to logger and ignored.
func NewRuleFromConfig(cfg *config.RuleConfig, logger log.FieldLogger) (*Rule, error) {
	rv := &Rule{
		names:    Unconstrained{},
		schemas:  Unconstrained{},
		kinds:    mapset.NewThreadUnsafeSet[dbobject.Kind](),
		action:   ACTION_DUMP,
		replace:  map[string]string{},
		filename: cfg.Filename,
		line:     cfg.Line,
	}
	fail := func(format string, args ...interface{}) error {
		return errs.NewConfigError(cfg.Filename, cfg.Line, format, args...)
	}
	values := cfg.Values

	var err error
	rv.names, err = parseSelector(cfg, "name", "names", fail)
	if err != nil {
		return nil, err
	}
	rv.schemas, err = parseSelector(cfg, "schema", "schemas", fail)
	if err != nil {
		return nil, err
	}

	if cfg.Has("kind") && cfg.Has("kinds") {
		return nil, fail("can't specify both 'kind' and 'kinds'")
	}
	if cfg.Has("kind") {
		k, err := parseKind(values["kind"], fail)
		if err != nil {
			return nil, err
		}
		rv.kinds.Add(k)
	}
	if cfg.Has("kinds") {
		kinds, ok := values["kinds"].([]interface{})
		if !ok {
			return nil, fail("'kinds' must be a list of strings")
		}
		for _, v := range kinds {
			k, err := parseKind(v, fail)
			if err != nil {
				return nil, err
			}
			rv.kinds.Add(k)
		}
	}

	if cfg.Has("action") {
		action := ActionType(strings.ToLower(fmt.Sprint(values["action"])))
		if !lo.Contains(CONFIGURABLE_ACTIONS, action) {
			accepted := lo.Map(CONFIGURABLE_ACTIONS, func(a ActionType, _ int) string { return string(a) })
			return nil, fail("bad 'action': '%v'; accepted values are %s",
				values["action"], strings.Join(accepted, ", "))
		}
		rv.action = action
	}
	if cfg.Has("skip") {
		if cfg.Has("action") {
			return nil, fail("can't specify both 'skip' and 'action'")
		}
		if truthy(values["skip"]) {
			rv.action = ACTION_SKIP
		} else {
			rv.action = ACTION_DUMP
		}
	}

	if cfg.Has("no_columns") {
		cols, ok := stringList(values["no_columns"])
		if !ok {
			return nil, fail("'no_columns' must be a list of strings")
		}
		rv.noColumns = cols
	}

	if cfg.Has("replace") {
		replace, ok := stringMap(values["replace"])
		if !ok {
			return nil, fail("'replace' must be a dictionary of strings")
		}
		rv.replace = replace
	}

	if cfg.Has("filter") {
		filter, ok := values["filter"].(string)
		if !ok {
			return nil, fail("'filter' must be a string")
		}
		rv.filter = filter
	}

	if cfg.Has("adjust_score") {
		score, ok := number(values["adjust_score"])
		if !ok {
			return nil, fail("'adjust_score' must be a number")
		}
		rv.adjustScore = score
	}

	unknown := mapset.NewThreadUnsafeSetFromMapKeys(values).Difference(knownOptions).ToSlice()
	if len(unknown) > 0 {
		slices.Sort(unknown)
		logger.Warnf("unknown config option(s): %s, at %s", strings.Join(unknown, ", "), cfg.Pos())
	}

	rv.score = rv.computeScore()
	return rv, nil
}

// parseSelector reads the exclusive pair of options selecting on one
// dimension, e.g. 'name' and 'names'.
func parseSelector(cfg *config.RuleConfig, single string, plural string,
	fail func(string, ...interface{}) error) (Matcher, error) {

	if cfg.Has(single) && cfg.Has(plural) {
		return nil, fail("can't specify both '%s' and '%s'", single, plural)
	}
	if cfg.Has(single) {
		s, ok := cfg.Values[single].(string)
		if !ok {
			return nil, fail("'%s' should be a string", single)
		}
		return NewExactSet(s), nil
	}
	if !cfg.Has(plural) {
		return Unconstrained{}, nil
	}

	v := cfg.Values[plural]
	if expr, ok := v.(string); ok {
		p, err := NewPattern(expr)
		if err != nil {
			return nil, fail("'%s' is not a valid regular expression: %s", plural, err)
		}
		return p, nil
	}
	list, ok := stringList(v)
	if !ok {
		return nil, fail("'%s' should be a list of strings or a regular expression", plural)
	}
	if len(list) == 0 {
		return Unconstrained{}, nil
	}
	return NewExactSet(list...), nil
}

func parseKind(v interface{}, fail func(string, ...interface{}) error) (dbobject.Kind, error) {
	s, ok := v.(string)
	if !ok || !dbobject.Kind(s).IsDumpable() {
		return "", fail("bad 'kind': '%v'; accepted values are: %s",
			v, strings.Join(dbobject.DumpableKinds(), ", "))
	}
	return dbobject.Kind(s), nil
}

func (r *Rule) computeScore() float64 {
	score := r.adjustScore
	score += matcherScore(r.names, SCORE_NAMES, SCORE_NAMES_PATTERN)
	score += matcherScore(r.schemas, SCORE_SCHEMAS, SCORE_SCHEMAS_PATTERN)
	if r.kinds.Cardinality() > 0 {
		score += SCORE_KINDS
	}
	return score
}

// Match tells whether obj satisfies every selector of the rule.
func (r *Rule) Match(obj dbobject.DbObject) bool {
	if !r.names.Match(obj.Name()) {
		return false
	}
	if !r.schemas.Match(obj.Schema()) {
		return false
	}
	if r.kinds.Cardinality() > 0 && !r.kinds.Contains(obj.Kind()) {
		return false
	}
	return true
}

// Score is the strength of the rule: among the rules matching an object the
// one with the highest score wins.
func (r *Rule) Score() float64 {
	return r.score
}

func (r *Rule) AdjustScore() float64 {
	return r.adjustScore
}

func (r *Rule) Names() Matcher {
	return r.names
}

func (r *Rule) Schemas() Matcher {
	return r.schemas
}

// Kinds returns the kinds the rule is restricted to, sorted; empty if any.
func (r *Rule) Kinds() []dbobject.Kind {
	kinds := r.kinds.ToSlice()
	slices.Sort(kinds)
	return kinds
}

func (r *Rule) Action() ActionType {
	return r.action
}

func (r *Rule) NoColumns() []string {
	return append([]string(nil), r.noColumns...)
}

func (r *Rule) Replace() map[string]string {
	rv := make(map[string]string, len(r.replace))
	for k, v := range r.replace {
		rv[k] = v
	}
	return rv
}

// Filter returns the row filter, "" if rows are not filtered.
func (r *Rule) Filter() string {
	return r.filter
}

func (r *Rule) Filename() string {
	return r.filename
}

func (r *Rule) Line() int {
	return r.line
}

// Pos returns the position the rule was read from as "file:line".
func (r *Rule) Pos() string {
	return errs.FormatPos(r.filename, r.line)
}

func (r *Rule) String() string {
	return fmt.Sprintf("rule at %s", r.Pos())
}

func stringList(v interface{}) ([]string, bool) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	rv := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		rv = append(rv, s)
	}
	return rv, true
}

func stringMap(v interface{}) (map[string]string, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	rv := make(map[string]string, len(m))
	for k, item := range m {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		rv[k] = s
	}
	return rv, true
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// truthy follows the YAML reading of a flag: false, null, zero and empty
// values are false.
func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return true
}
