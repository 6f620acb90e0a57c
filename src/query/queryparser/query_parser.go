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

/*
This package checks the SQL snippets found in the rule files before they are
merged into the dump statements. We use the pg_query_go library, which embeds
the server parser, so a snippet is accepted only if PostgreSQL would parse it.
*/
package queryparser

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/pg-seldump/src/query"
)

func Parse(sql string) (*pg_query.ParseResult, error) {
	log.Debugf("parsing the query [%s]", sql)
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, err
	}
	log.Tracef("parse tree: %v\n", tree)
	return tree, nil
}

// ValidateExpression checks that expr is a single scalar expression, as used
// in a column replacement.
func ValidateExpression(expr string) error {
	return validateSnippet(expr, "select (%s) as col")
}

// ValidateCondition checks that cond is a single boolean condition, as used in
// a row filter.
func ValidateCondition(cond string) error {
	return validateSnippet(cond, "select 1 where (%s)")
}

func validateSnippet(snippet string, wrapper string) error {
	if strings.TrimSpace(snippet) == "" {
		return fmt.Errorf("empty expression")
	}
	// Checked as merged in the dump statements.
	tree, err := Parse(fmt.Sprintf(wrapper, query.Snippet(snippet)))
	if err != nil {
		return err
	}
	if len(tree.Stmts) != 1 {
		return fmt.Errorf("expected a single expression, found %d statements", len(tree.Stmts))
	}
	if tree.Stmts[0].Stmt.GetSelectStmt() == nil {
		return fmt.Errorf("not an expression")
	}
	return nil
}
