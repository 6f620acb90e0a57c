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
Package query composes SQL statements out of trusted snippets, identifiers
and literals. Identifiers and literals are only escaped when the statement is
rendered, by the Quoter of the connection the statement is meant for.
*/
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Quoter escapes names and values for a specific server.
type Quoter interface {
	QuoteIdentifier(name string) string
	QuoteLiteral(value string) string
}

// PQQuoter escapes with the PostgreSQL rules. Literals containing backslashes
// are rendered as E'' strings so they don't depend on
// standard_conforming_strings.
type PQQuoter struct{}

func (PQQuoter) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (PQQuoter) QuoteLiteral(value string) string {
	return pq.QuoteLiteral(value)
}

// Composable is a fragment of a SQL statement.
type Composable interface {
	compose(q Quoter, sb *strings.Builder) error
}

// AsString renders c into a SQL string.
func AsString(c Composable, q Quoter) (string, error) {
	var sb strings.Builder
	if err := c.compose(q, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// SQL is a snippet of trusted SQL, merged verbatim.
type SQL string

func (s SQL) compose(_ Quoter, sb *strings.Builder) error {
	sb.WriteString(string(s))
	return nil
}

// Snippet is a fragment of SQL coming from the rules. A fragment ending with
// a "--" comment is terminated by a newline, so the comment can't swallow
// the text merged after it.
func Snippet(s string) SQL {
	lastLine := s[strings.LastIndex(s, "\n")+1:]
	if strings.Contains(lastLine, "--") {
		return SQL(s + "\n")
	}
	return SQL(s)
}

// Format replaces every {} placeholder in s with the next argument. {{ and }}
// stand for literal braces.
func (s SQL) Format(args ...Composable) Composed {
	var rv Composed
	var chunk strings.Builder
	str := string(s)
	next := 0
	for i := 0; i < len(str); i++ {
		switch {
		case strings.HasPrefix(str[i:], "{{"):
			chunk.WriteByte('{')
			i++
		case strings.HasPrefix(str[i:], "}}"):
			chunk.WriteByte('}')
			i++
		case strings.HasPrefix(str[i:], "{}"):
			if next >= len(args) {
				panic(fmt.Sprintf("not enough arguments to format %q", str))
			}
			if chunk.Len() > 0 {
				rv = append(rv, SQL(chunk.String()))
				chunk.Reset()
			}
			rv = append(rv, args[next])
			next++
			i++
		default:
			chunk.WriteByte(str[i])
		}
	}
	if next != len(args) {
		panic(fmt.Sprintf("too many arguments to format %q", str))
	}
	if chunk.Len() > 0 {
		rv = append(rv, SQL(chunk.String()))
	}
	return rv
}

// Join returns the parts separated by s.
func (s SQL) Join(parts ...Composable) Composed {
	rv := make(Composed, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			rv = append(rv, s)
		}
		rv = append(rv, p)
	}
	return rv
}

// Composed is a sequence of fragments rendered one after the other.
type Composed []Composable

func (c Composed) compose(q Quoter, sb *strings.Builder) error {
	for _, part := range c {
		if err := part.compose(q, sb); err != nil {
			return err
		}
	}
	return nil
}

// Identifier is a possibly qualified name, e.g. schema, table.
type Identifier []string

func Ident(names ...string) Identifier {
	return Identifier(names)
}

func (id Identifier) compose(q Quoter, sb *strings.Builder) error {
	if len(id) == 0 {
		return fmt.Errorf("empty identifier")
	}
	for i, name := range id {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(q.QuoteIdentifier(name))
	}
	return nil
}

// Literal is a value merged into a statement.
type Literal struct {
	value interface{}
}

func Lit(value interface{}) Literal {
	return Literal{value: value}
}

func (l Literal) compose(q Quoter, sb *strings.Builder) error {
	switch v := l.value.(type) {
	case nil:
		sb.WriteString("NULL")
	case string:
		sb.WriteString(q.QuoteLiteral(v))
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int32:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case uint32:
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
	case uint64:
		sb.WriteString(strconv.FormatUint(v, 10))
	case float64:
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		return fmt.Errorf("can't render a literal of type %T", l.value)
	}
	return nil
}
