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
package sqlname

import (
	"fmt"
	"strings"
)

// identifier holds the spellings of a PostgreSQL name.
type identifier struct {
	Quoted    string
	Unquoted  string
	MinQuoted string
}

// ObjectName is a schema qualified relation name.
type ObjectName struct {
	SchemaName  string
	ObjectName  string
	Qualified   identifier
	Unqualified identifier
}

func NewIdentifier(name string) identifier {
	return identifier{
		Quoted:    quote(name),
		Unquoted:  name,
		MinQuoted: minQuote(name),
	}
}

func NewObjectName(schemaName, objectName string) (*ObjectName, error) {
	if schemaName == "" {
		return nil, fmt.Errorf("schema name of %q cannot be empty", objectName)
	}
	if objectName == "" {
		return nil, fmt.Errorf("object name in schema %q cannot be empty", schemaName)
	}
	schema := NewIdentifier(schemaName)
	obj := NewIdentifier(objectName)
	return &ObjectName{
		SchemaName:  schemaName,
		ObjectName:  objectName,
		Unqualified: obj,
		Qualified: identifier{
			Quoted:    schema.Quoted + "." + obj.Quoted,
			Unquoted:  schemaName + "." + objectName,
			MinQuoted: schema.MinQuoted + "." + obj.MinQuoted,
		},
	}, nil
}

func (o *ObjectName) String() string {
	return o.Qualified.MinQuoted
}

// EscapeIdents joins the names with dots, quoting only the names that would
// not survive the server's case folding unquoted or are keywords.
func EscapeIdents(names ...string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, minQuote(name))
	}
	return strings.Join(parts, ".")
}

func minQuote(name string) string {
	if isPlainLowercase(name) && !IsReservedKeywordPG(name) {
		return name
	}
	return quote(name)
}

func quote(name string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(name, `"`, `""`))
}

// isPlainLowercase matches ^[a-z][a-z0-9_]*$.
func isPlainLowercase(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case i > 0 && (c >= '0' && c <= '9' || c == '_'):
		default:
			return false
		}
	}
	return true
}
