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
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/pg-seldump/src/config"
	"github.com/yugabyte/pg-seldump/src/dbobject"
)

// RuleSet holds the configured rules in declaration order.
type RuleSet struct {
	rules  []*Rule
	logger log.FieldLogger
}

func NewRuleSet(logger log.FieldLogger) *RuleSet {
	return &RuleSet{logger: logger}
}

func (rs *RuleSet) Add(rules ...*Rule) {
	rs.rules = append(rs.rules, rules...)
}

// AddConfig builds and appends the rules of a parsed file. Nothing is added
// if any entry is invalid.
func (rs *RuleSet) AddConfig(f *config.RulesFile) ([]*Rule, error) {
	var rules []*Rule
	for _, cfg := range f.Rules {
		rule, err := NewRuleFromConfig(cfg, rs.logger)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	rs.Add(rules...)
	return rules, nil
}

func (rs *RuleSet) Rules() []*Rule {
	return append([]*Rule(nil), rs.rules...)
}

func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

func (rs *RuleSet) Clear() {
	rs.rules = nil
}

// Matching returns the rules matching obj, in declaration order.
func (rs *RuleSet) Matching(obj dbobject.DbObject) []*Rule {
	var rv []*Rule
	for _, rule := range rs.rules {
		if rule.Match(obj) {
			rv = append(rv, rule)
		}
	}
	return rv
}

// Resolve returns the matching rule with the highest score, nil if no rule
// matches. On equal scores the rule declared first wins.
func (rs *RuleSet) Resolve(obj dbobject.DbObject) *Rule {
	var best *Rule
	for _, rule := range rs.Matching(obj) {
		switch {
		case best == nil || rule.score > best.score:
			best = rule
		case rule.score == best.score:
			rs.logger.Debugf("%s %s matches more than one rule with score %v: at %s and %s; using the first",
				obj.Kind(), obj, best.score, best.Pos(), rule.Pos())
		}
	}
	return best
}

// ResolveAction decides what to do with obj.
//
// Objects belonging to an extension are skipped unless the extension
// configured a dump condition for them. Objects matching no rule get the
// ACTION_UNKNOWN action: they are only dumped if a dumped object depends on
// them.
func (rs *RuleSet) ResolveAction(obj dbobject.DbObject) *Action {
	if obj.Extension() != "" && obj.ExtCondition() == nil {
		rs.logger.Debugf("%s %s in extension %s has no dump condition: skipping",
			obj.Kind(), obj, obj.Extension())
		return NewActionOfType(obj, ACTION_SKIP)
	}
	rule := rs.Resolve(obj)
	if rule == nil {
		return NewActionOfType(obj, ACTION_UNKNOWN)
	}
	return NewAction(obj, rule)
}
