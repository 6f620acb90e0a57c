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
)

type objectKey struct {
	schema string
	name   string
}

// SequenceUser is a table column whose default draws from a sequence.
type SequenceUser struct {
	Table  *Table
	Column *Column
}

// Database is the set of catalog objects considered for a dump, in the order
// they were added.
type Database struct {
	objects  []DbObject
	byOID    map[uint32]DbObject
	byName   map[objectKey]DbObject
	seqUsers map[uint32][]SequenceUser
}

func NewDatabase() *Database {
	db := &Database{}
	db.Clear()
	return db
}

func (db *Database) Clear() {
	db.objects = nil
	db.byOID = make(map[uint32]DbObject)
	db.byName = make(map[objectKey]DbObject)
	db.seqUsers = make(map[uint32][]SequenceUser)
}

func (db *Database) Add(obj DbObject) error {
	if obj.OID() == 0 {
		return fmt.Errorf("the object %s has no oid", obj)
	}
	if other, ok := db.byOID[obj.OID()]; ok {
		return fmt.Errorf("the oid %d is already used by %s", obj.OID(), other)
	}
	key := objectKey{obj.Schema(), obj.Name()}
	if _, ok := db.byName[key]; ok {
		return fmt.Errorf("the database has already an object called %s", obj)
	}
	db.objects = append(db.objects, obj)
	db.byOID[obj.OID()] = obj
	db.byName[key] = obj
	return nil
}

func (db *Database) Len() int {
	return len(db.objects)
}

// Objects returns every object in insertion order.
func (db *Database) Objects() []DbObject {
	return append([]DbObject(nil), db.objects...)
}

// Get returns the object with the given oid, nil if not found.
func (db *Database) Get(oid uint32) DbObject {
	return db.byOID[oid]
}

func (db *Database) GetByName(schema, name string) DbObject {
	return db.byName[objectKey{schema, name}]
}

func (db *Database) GetTable(oid uint32) (*Table, bool) {
	t, ok := db.byOID[oid].(*Table)
	return t, ok
}

// AddSequenceUser records that column of table takes its default from seq.
func (db *Database) AddSequenceUser(seq *Sequence, table *Table, column string) error {
	col := table.Column(column)
	if col == nil {
		return fmt.Errorf("the table %s has no column %s", table, column)
	}
	if err := col.AddUsedSequence(seq); err != nil {
		return err
	}
	db.seqUsers[seq.OID()] = append(db.seqUsers[seq.OID()], SequenceUser{Table: table, Column: col})
	return nil
}

func (db *Database) TablesUsingSequence(oid uint32) []SequenceUser {
	return append([]SequenceUser(nil), db.seqUsers[oid]...)
}

// AddForeignKey attaches fkey to its referring table. Both tables must be
// known.
func (db *Database) AddForeignKey(fkey *ForeignKey) error {
	table, ok := db.GetTable(fkey.TableOID)
	if !ok {
		return fmt.Errorf("no table with oid %d for foreign key %s", fkey.TableOID, fkey.Name)
	}
	if _, ok := db.GetTable(fkey.FTableOID); !ok {
		return fmt.Errorf("no table with oid %d referenced by foreign key %s", fkey.FTableOID, fkey.Name)
	}
	if len(fkey.TableCols) == 0 || len(fkey.TableCols) != len(fkey.FTableCols) {
		return fmt.Errorf("the foreign key %s has mismatching columns", fkey.Name)
	}
	return table.AddForeignKey(fkey)
}
