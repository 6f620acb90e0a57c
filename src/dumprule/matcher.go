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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dlclark/regexp2"
)

// Matcher constrains one dimension (name or schema) of a rule. It is one of
// Unconstrained, ExactSet or Pattern.
type Matcher interface {
	Match(s string) bool
	isMatcher()
}

// Unconstrained matches everything.
type Unconstrained struct{}

func (Unconstrained) Match(string) bool { return true }
func (Unconstrained) isMatcher()        {}

// ExactSet matches the strings in the set.
type ExactSet struct {
	set mapset.Set[string]
}

func NewExactSet(values ...string) ExactSet {
	return ExactSet{set: mapset.NewThreadUnsafeSet(values...)}
}

func (m ExactSet) Match(s string) bool { return m.set.Contains(s) }
func (ExactSet) isMatcher()            {}

func (m ExactSet) Values() []string {
	return m.set.ToSlice()
}

// Pattern matches the strings starting with a match of a regular expression.
// Whitespace and #-comments in the expression are ignored.
type Pattern struct {
	source string
	re     *regexp2.Regexp
}

func NewPattern(expr string) (Pattern, error) {
	// Compiled on its own first so that a broken group can't be closed by
	// the anchoring wrapper.
	if _, err := regexp2.Compile(expr, regexp2.IgnorePatternWhitespace); err != nil {
		return Pattern{}, err
	}
	re, err := regexp2.Compile(`\A(?:`+expr+"\n)", regexp2.IgnorePatternWhitespace)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{source: expr, re: re}, nil
}

func (m Pattern) Match(s string) bool {
	ok, err := m.re.MatchString(s)
	return err == nil && ok
}

func (Pattern) isMatcher() {}

func (m Pattern) String() string {
	return m.source
}

// matcherScore is the contribution of a matcher to the score of its rule.
func matcherScore(m Matcher, exact float64, pattern float64) float64 {
	switch m := m.(type) {
	case ExactSet:
		if m.set.Cardinality() > 0 {
			return exact
		}
	case Pattern:
		return pattern
	}
	return 0
}
