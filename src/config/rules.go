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
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yugabyte/pg-seldump/src/errs"
)

const DB_OBJECTS_KEY = "db_objects"

// RuleConfig is one entry of the db_objects list, with the position it was
// read from.
type RuleConfig struct {
	Filename string
	Line     int
	Values   map[string]interface{}
}

func (rc *RuleConfig) Pos() string {
	return errs.FormatPos(rc.Filename, rc.Line)
}

// Has reports whether the entry sets key, even to null.
func (rc *RuleConfig) Has(key string) bool {
	_, ok := rc.Values[key]
	return ok
}

// RulesFile is a parsed rules document.
type RulesFile struct {
	Filename string
	Rules    []*RuleConfig
}

func LoadRulesFile(path string) (*RulesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	return ParseRules(path, data)
}

// ParseRules parses a YAML document with a top level db_objects list of
// mappings. The content of the mappings is validated when the rules are built.
func ParseRules(filename string, data []byte) (*RulesFile, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.NewConfigError(filename, yamlErrorLine(err), "error parsing the config file: %s", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	objs := mappingValue(root, DB_OBJECTS_KEY)
	if objs == nil {
		return nil, errs.NewConfigError(filename, max(root.Line, 1), "the config file should have a '%s' list", DB_OBJECTS_KEY)
	}
	if objs.Kind != yaml.SequenceNode {
		return nil, errs.NewConfigError(filename, objs.Line, "%s should be a list, got %s", DB_OBJECTS_KEY, nodeType(objs))
	}

	rv := &RulesFile{Filename: filename}
	for _, entry := range objs.Content {
		if entry.Kind != yaml.MappingNode {
			return nil, errs.NewConfigError(filename, entry.Line, "expected config dictionary, got %s", nodeType(entry))
		}
		values := make(map[string]interface{})
		if err := entry.Decode(&values); err != nil {
			return nil, errs.NewConfigError(filename, entry.Line, "bad config entry: %s", err)
		}
		rv.Rules = append(rv.Rules, &RuleConfig{
			Filename: filename,
			Line:     entry.Line,
			Values:   values,
		})
	}
	return rv, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func nodeType(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "dict"
	case yaml.SequenceNode:
		return "list"
	}
	switch node.ShortTag() {
	case "!!null":
		return "null"
	case "!!str":
		return fmt.Sprintf("str %q", node.Value)
	default:
		return strings.TrimPrefix(node.ShortTag(), "!!") + " " + node.Value
	}
}

// yamlErrorLine extracts the line from messages like "yaml: line 3: ...".
func yamlErrorLine(err error) int {
	var line int
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	if _, scanErr := fmt.Sscanf(msg, "line %d:", &line); scanErr != nil || line < 1 {
		return 1
	}
	return line
}
