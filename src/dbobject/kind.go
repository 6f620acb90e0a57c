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
package dbobject

import (
	"golang.org/x/exp/slices"
)

// Kind is the human name of a catalog relation kind, as accepted by the
// 'kind' and 'kinds' rule options.
type Kind string

const (
	KIND_TABLE          Kind = "table"
	KIND_PART_TABLE     Kind = "partitioned table"
	KIND_SEQUENCE       Kind = "sequence"
	KIND_MATVIEW        Kind = "materialized view"
	KIND_VIEW           Kind = "view"
	KIND_INDEX          Kind = "index"
	KIND_PART_INDEX     Kind = "partitioned index"
	KIND_TOAST_TABLE    Kind = "toast table"
	KIND_COMPOSITE_TYPE Kind = "composite type"
	KIND_FOREIGN_TABLE  Kind = "foreign table"
)

// pg_class.relkind codes.
var relkinds = map[string]Kind{
	"r": KIND_TABLE,
	"p": KIND_PART_TABLE,
	"S": KIND_SEQUENCE,
	"m": KIND_MATVIEW,
	"v": KIND_VIEW,
	"i": KIND_INDEX,
	"I": KIND_PART_INDEX,
	"t": KIND_TOAST_TABLE,
	"c": KIND_COMPOSITE_TYPE,
	"f": KIND_FOREIGN_TABLE,
}

var dumpableKinds = map[Kind]bool{
	KIND_TABLE:      true,
	KIND_PART_TABLE: true,
	KIND_SEQUENCE:   true,
	KIND_MATVIEW:    true,
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsDumpable() bool {
	return dumpableKinds[k]
}

// Relkind returns the pg_class.relkind code of the kind, "" if unknown.
func (k Kind) Relkind() string {
	for code, kind := range relkinds {
		if kind == k {
			return code
		}
	}
	return ""
}

func KindFromRelkind(code string) (Kind, bool) {
	k, ok := relkinds[code]
	return k, ok
}

// DumpableKinds returns the names of the kinds that can be dumped, sorted.
func DumpableKinds() []string {
	var rv []string
	for k := range dumpableKinds {
		rv = append(rv, string(k))
	}
	slices.Sort(rv)
	return rv
}

// DumpableRelkinds returns the relkind codes of the dumpable kinds, sorted.
func DumpableRelkinds() []string {
	var rv []string
	for k := range dumpableKinds {
		rv = append(rv, k.Relkind())
	}
	slices.Sort(rv)
	return rv
}
