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
	"fmt"

	"github.com/yugabyte/pg-seldump/src/utils/sqlname"
)

// DbObject is a relation read from the database catalog.
type DbObject interface {
	OID() uint32
	Schema() string
	Name() string
	Kind() Kind
	// Escaped is the schema qualified name, safe to merge into a query.
	Escaped() string
	// Extension is the name of the extension owning the object, "" if none.
	Extension() string
	// ExtCondition is the dump condition the extension configured for the
	// object, nil if it has none.
	ExtCondition() *string
	String() string
}

// ObjectInfo carries the catalog attributes common to every object.
type ObjectInfo struct {
	OID          uint32
	Schema       string
	Name         string
	Escaped      string
	Extension    string
	ExtCondition *string
}

type baseObject struct {
	info ObjectInfo
}

func newBaseObject(info ObjectInfo) baseObject {
	if info.Escaped == "" {
		info.Escaped = sqlname.EscapeIdents(info.Schema, info.Name)
	}
	return baseObject{info: info}
}

func (o *baseObject) OID() uint32           { return o.info.OID }
func (o *baseObject) Schema() string        { return o.info.Schema }
func (o *baseObject) Name() string          { return o.info.Name }
func (o *baseObject) Escaped() string       { return o.info.Escaped }
func (o *baseObject) Extension() string     { return o.info.Extension }
func (o *baseObject) ExtCondition() *string { return o.info.ExtCondition }
func (o *baseObject) String() string        { return o.info.Escaped }

// New returns the object matching kind.
func New(kind Kind, info ObjectInfo) (DbObject, error) {
	if info.Escaped == "" {
		name, err := sqlname.NewObjectName(info.Schema, info.Name)
		if err != nil {
			return nil, fmt.Errorf("invalid %s with oid %d: %w", kind, info.OID, err)
		}
		info.Escaped = name.Qualified.MinQuoted
	}
	switch kind {
	case KIND_TABLE, KIND_PART_TABLE:
		return NewTable(kind, info), nil
	case KIND_SEQUENCE:
		return NewSequence(info), nil
	case KIND_MATVIEW:
		return NewMaterializedView(info), nil
	default:
		return nil, fmt.Errorf("unknown db object kind: %s", kind)
	}
}

// Table is a regular or a partitioned table.
type Table struct {
	baseObject
	kind       Kind
	columns    []*Column
	colsByName map[string]*Column
	fkeys      []*ForeignKey
}

func NewTable(kind Kind, info ObjectInfo) *Table {
	if kind != KIND_PART_TABLE {
		kind = KIND_TABLE
	}
	return &Table{
		baseObject: newBaseObject(info),
		kind:       kind,
		colsByName: make(map[string]*Column),
	}
}

func (t *Table) Kind() Kind {
	return t.kind
}

func (t *Table) IsPartitioned() bool {
	return t.kind == KIND_PART_TABLE
}

func (t *Table) AddColumn(col *Column) error {
	if _, ok := t.colsByName[col.Name]; ok {
		return fmt.Errorf("the table %s has already a column called %s", t, col.Name)
	}
	t.columns = append(t.columns, col)
	t.colsByName[col.Name] = col
	return nil
}

// Columns returns the columns in attnum order.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

func (t *Table) Column(name string) *Column {
	return t.colsByName[name]
}

func (t *Table) AddForeignKey(fkey *ForeignKey) error {
	if fkey.TableOID != t.OID() {
		return fmt.Errorf("the foreign key %s doesn't belong to the table %s", fkey.Name, t)
	}
	for _, other := range t.fkeys {
		if other.Name == fkey.Name {
			return fmt.Errorf("the table %s has already a foreign key called %s", t, fkey.Name)
		}
	}
	t.fkeys = append(t.fkeys, fkey)
	return nil
}

// ForeignKeys returns the foreign keys defined on the table.
func (t *Table) ForeignKeys() []*ForeignKey {
	return append([]*ForeignKey(nil), t.fkeys...)
}

type Sequence struct {
	baseObject
}

func NewSequence(info ObjectInfo) *Sequence {
	return &Sequence{baseObject: newBaseObject(info)}
}

func (s *Sequence) Kind() Kind {
	return KIND_SEQUENCE
}

type MaterializedView struct {
	baseObject
}

func NewMaterializedView(info ObjectInfo) *MaterializedView {
	return &MaterializedView{baseObject: newBaseObject(info)}
}

func (m *MaterializedView) Kind() Kind {
	return KIND_MATVIEW
}

type Column struct {
	Name    string
	Type    string
	Escaped string
	// Sequences the column default draws from.
	UsedSequenceOIDs []uint32
}

func NewColumn(name, typ string) *Column {
	return &Column{
		Name:    name,
		Type:    typ,
		Escaped: sqlname.EscapeIdents(name),
	}
}

func (c *Column) String() string {
	return c.Escaped
}

func (c *Column) AddUsedSequence(seq *Sequence) error {
	if seq.OID() == 0 {
		return fmt.Errorf("the sequence %s must have an oid", seq)
	}
	c.UsedSequenceOIDs = append(c.UsedSequenceOIDs, seq.OID())
	return nil
}

// ForeignKey links TableCols of the referring table to FTableCols of the
// referenced one, position by position.
type ForeignKey struct {
	Name       string
	TableOID   uint32
	TableCols  []string
	FTableOID  uint32
	FTableCols []string
}

func (fk *ForeignKey) String() string {
	return fk.Name
}

func (fk *ForeignKey) IsSelfReferencing() bool {
	return fk.TableOID == fk.FTableOID
}
