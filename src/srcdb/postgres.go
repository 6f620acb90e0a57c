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
package srcdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	goversion "github.com/hashicorp/go-version"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/pg-seldump/src/constants"
	"github.com/yugabyte/pg-seldump/src/dbobject"
	"github.com/yugabyte/pg-seldump/src/errs"
	"github.com/yugabyte/pg-seldump/src/query"
)

// PostgreSQL reads the catalog and the data of the source database. Every
// query runs on a single connection inside one repeatable read transaction, so
// the whole dump sees the same snapshot.
type PostgreSQL struct {
	dsn     string
	schemas []string
	quoter  query.Quoter
	logger  log.FieldLogger

	db   *sql.DB
	conn *sql.Conn
}

func NewPostgreSQL(dsn string, schemas []string, logger log.FieldLogger) *PostgreSQL {
	return &PostgreSQL{
		dsn:     dsn,
		schemas: schemas,
		quoter:  query.PQQuoter{},
		logger:  logger,
	}
}

func (pg *PostgreSQL) Connect(ctx context.Context) error {
	pg.logger.Debugf("connecting to '%s'", RedactDSN(pg.dsn))
	db, err := sql.Open("pgx", pg.dsn)
	if err != nil {
		return errs.WrapDumpError(err, "error connecting to the database")
	}
	return pg.ConnectDB(ctx, db)
}

// ConnectDB pins a connection of db and opens the snapshot on it. The
// PostgreSQL takes the ownership of db.
func (pg *PostgreSQL) ConnectDB(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return errs.WrapDumpError(err, "error connecting to the database")
	}
	pg.db, pg.conn = db, conn

	if err = pg.checkVersion(ctx); err != nil {
		pg.Close()
		return err
	}
	if _, err = conn.ExecContext(ctx, "begin transaction isolation level repeatable read read only"); err != nil {
		pg.Close()
		return errs.WrapDumpError(err, "error starting the dump transaction")
	}
	return nil
}

func (pg *PostgreSQL) checkVersion(ctx context.Context) error {
	var setting string
	if err := pg.conn.QueryRowContext(ctx, "show server_version").Scan(&setting); err != nil {
		return errs.WrapDumpError(err, "error reading the server version")
	}
	// e.g. "16.2 (Debian 16.2-1.pgdg120+2)"
	fields := strings.Fields(setting)
	if len(fields) == 0 {
		return errs.NewDumpError("empty server version")
	}
	current, err := goversion.NewVersion(fields[0])
	if err != nil {
		return errs.WrapDumpError(err, "can't parse the server version '%s'", setting)
	}
	minimum := goversion.Must(goversion.NewVersion(constants.MIN_SERVER_VERSION))
	if current.LessThan(minimum) {
		return errs.NewDumpError("server version %s not supported: at least %s is required",
			current, constants.MIN_SERVER_VERSION)
	}
	pg.logger.Infof("connected to PostgreSQL %s", current)
	return nil
}

// Close ends the snapshot transaction and releases the connection.
func (pg *PostgreSQL) Close() error {
	var err error
	if pg.conn != nil {
		// The transaction may have not been started.
		if _, rbErr := pg.conn.ExecContext(context.Background(), "rollback"); rbErr != nil {
			pg.logger.Debugf("rolling back the dump transaction: %s", rbErr)
		}
		err = pg.conn.Close()
		pg.conn = nil
	}
	if pg.db != nil {
		if dbErr := pg.db.Close(); err == nil {
			err = dbErr
		}
		pg.db = nil
	}
	return err
}

func (pg *PostgreSQL) ObjAsString(c query.Composable) (string, error) {
	return query.AsString(c, pg.quoter)
}

// Copy runs a "copy ... to stdout" statement streaming its output into w.
func (pg *PostgreSQL) Copy(ctx context.Context, stmt string, w io.Writer) error {
	if pg.conn == nil {
		return errs.NewDumpError("not connected")
	}
	return pg.conn.Raw(func(driverConn interface{}) error {
		conn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		_, err := conn.Conn().PgConn().CopyTo(ctx, w, stmt)
		return err
	})
}

func (pg *PostgreSQL) GetSequenceValue(ctx context.Context, seq *dbobject.Sequence) (int64, error) {
	if pg.conn == nil {
		return 0, errs.NewDumpError("not connected")
	}
	name, err := pg.ObjAsString(query.Ident(seq.Schema(), seq.Name()))
	if err != nil {
		return 0, err
	}
	var val int64
	if err = pg.conn.QueryRowContext(ctx, "select last_value from "+name).Scan(&val); err != nil {
		return 0, fmt.Errorf("reading the last value of %s: %w", seq, err)
	}
	return val, nil
}

// LoadSchema adds to db the dumpable objects of the database, with their
// columns, foreign keys and sequence dependencies.
func (pg *PostgreSQL) LoadSchema(ctx context.Context, db *dbobject.Database) error {
	if pg.conn == nil {
		return errs.NewDumpError("not connected")
	}
	steps := []struct {
		what string
		load func(context.Context, *dbobject.Database) error
	}{
		{"objects", pg.loadObjects},
		{"columns", pg.loadColumns},
		{"foreign keys", pg.loadForeignKeys},
		{"sequences dependencies", pg.loadSequencesDeps},
	}
	for _, step := range steps {
		pg.logger.Debugf("fetching %s", step.what)
		if err := step.load(ctx, db); err != nil {
			return errs.WrapDumpError(err, "error fetching the %s", step.what)
		}
	}
	pg.logger.Infof("loaded %d objects from the database", db.Len())
	return nil
}

// schemaFilter returns the condition restricting the schemas on the column
// expression nspname.
func (pg *PostgreSQL) schemaFilter(nspname string) string {
	if len(pg.schemas) == 0 {
		return ""
	}
	return fmt.Sprintf("and %s in (%s)", nspname, literalList(pg.schemas))
}

func literalList(values []string) string {
	quoted := lo.Map(values, func(v string, _ int) string { return pq.QuoteLiteral(v) })
	return strings.Join(quoted, ", ")
}

const FETCH_OBJECTS_QUERY = `
select
    r.oid as oid,
    s.nspname as schema,
    r.relname as name,
    r.relkind::text as kind,
    pg_catalog.format('%%I.%%I', s.nspname, r.relname) as escaped,
    e.extname as extension,
    -- extcondition[array_position(extconfig, r.oid)], without array_position
    (
        select extcondition[row_number]
        from (
            select unnest, row_number() over ()
            from (select unnest(extconfig)) t0
        ) t1
        where unnest = r.oid
    ) as extcondition
from pg_class r
join pg_namespace s on s.oid = r.relnamespace
left join pg_depend d on d.objid = r.oid and d.deptype = 'e'
left join pg_extension e on d.refobjid = e.oid
where r.relkind in (%s)
and s.nspname != 'information_schema'
and s.nspname !~ '^pg_'
%s
order by s.nspname, r.relname
`

func (pg *PostgreSQL) loadObjects(ctx context.Context, db *dbobject.Database) error {
	stmt := fmt.Sprintf(FETCH_OBJECTS_QUERY,
		literalList(dbobject.DumpableRelkinds()), pg.schemaFilter("s.nspname"))
	rows, err := pg.conn.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			info         dbobject.ObjectInfo
			relkind      string
			extension    sql.NullString
			extcondition sql.NullString
		)
		err = rows.Scan(&info.OID, &info.Schema, &info.Name, &relkind, &info.Escaped, &extension, &extcondition)
		if err != nil {
			return err
		}
		kind, ok := dbobject.KindFromRelkind(relkind)
		if !ok {
			return fmt.Errorf("unknown relkind '%s' for %s", relkind, info.Escaped)
		}
		info.Extension = extension.String
		if extcondition.Valid {
			info.ExtCondition = &extcondition.String
		}
		obj, err := dbobject.New(kind, info)
		if err != nil {
			return err
		}
		if err = db.Add(obj); err != nil {
			return err
		}
	}
	return rows.Err()
}

// attnum gives the columns order; attnum < 0 are system columns.
const FETCH_COLUMNS_QUERY = `
select
    a.attrelid as table_oid,
    a.attname as name,
    a.atttypid::regtype::text as type,
    quote_ident(a.attname) as escaped
from pg_attribute a
join pg_class r on r.oid = a.attrelid
join pg_namespace s on s.oid = r.relnamespace
where r.relkind in (%s)
and a.attnum > 0
and not a.attisdropped
and s.nspname != 'information_schema'
and s.nspname !~ '^pg_'
%s
order by a.attrelid, a.attnum
`

func (pg *PostgreSQL) loadColumns(ctx context.Context, db *dbobject.Database) error {
	relkinds := []string{dbobject.KIND_TABLE.Relkind(), dbobject.KIND_PART_TABLE.Relkind()}
	stmt := fmt.Sprintf(FETCH_COLUMNS_QUERY, literalList(relkinds), pg.schemaFilter("s.nspname"))
	rows, err := pg.conn.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableOID           uint32
			name, typ, escaped string
		)
		if err = rows.Scan(&tableOID, &name, &typ, &escaped); err != nil {
			return err
		}
		table, ok := db.GetTable(tableOID)
		if !ok {
			return fmt.Errorf("no table with oid %d for column %s found", tableOID, name)
		}
		col := dbobject.NewColumn(name, typ)
		col.Escaped = escaped
		if err = table.AddColumn(col); err != nil {
			return err
		}
	}
	return rows.Err()
}

// The column names are returned as json arrays, in the order of the key.
const FETCH_FOREIGN_KEYS_QUERY = `
select
    c.conname as name,
    c.conrelid as table_oid,
    to_json(array(
        select a.attname::text
        from generate_subscripts(c.conkey, 1) i
        join pg_attribute a on a.attrelid = c.conrelid and a.attnum = c.conkey[i]
        order by i
    ))::text as table_cols,
    c.confrelid as ftable_oid,
    to_json(array(
        select a.attname::text
        from generate_subscripts(c.confkey, 1) i
        join pg_attribute a on a.attrelid = c.confrelid and a.attnum = c.confkey[i]
        order by i
    ))::text as ftable_cols
from pg_constraint c
join pg_class r on r.oid = c.conrelid
join pg_namespace s on s.oid = r.relnamespace
where c.contype = 'f'
and s.nspname != 'information_schema'
and s.nspname !~ '^pg_'
%s
order by c.conrelid, c.conname
`

func (pg *PostgreSQL) loadForeignKeys(ctx context.Context, db *dbobject.Database) error {
	stmt := fmt.Sprintf(FETCH_FOREIGN_KEYS_QUERY, pg.schemaFilter("s.nspname"))
	rows, err := pg.conn.QueryContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fkey                  dbobject.ForeignKey
			tableCols, ftableCols string
		)
		err = rows.Scan(&fkey.Name, &fkey.TableOID, &tableCols, &fkey.FTableOID, &ftableCols)
		if err != nil {
			return err
		}
		if err = json.Unmarshal([]byte(tableCols), &fkey.TableCols); err != nil {
			return fmt.Errorf("parsing the columns of foreign key %s: %w", fkey.Name, err)
		}
		if err = json.Unmarshal([]byte(ftableCols), &fkey.FTableCols); err != nil {
			return fmt.Errorf("parsing the referenced columns of foreign key %s: %w", fkey.Name, err)
		}
		if _, ok := db.GetTable(fkey.FTableOID); !ok {
			// The referenced table is in a schema not loaded.
			pg.logger.Debugf("ignoring foreign key %s to a table not loaded", fkey.Name)
			continue
		}
		if err = db.AddForeignKey(&fkey); err != nil {
			return err
		}
	}
	return rows.Err()
}

const FETCH_SEQUENCES_DEPS_QUERY = `
select tbl.oid as table_oid, att.attname as column, seq.oid as seq_oid
from pg_depend dep
join pg_attrdef def
    on dep.classid = 'pg_attrdef'::regclass and dep.objid = def.oid
join pg_attribute att on (def.adrelid, def.adnum) = (att.attrelid, att.attnum)
join pg_class tbl on tbl.oid = att.attrelid
join pg_class seq
    on dep.refclassid = 'pg_class'::regclass
    and seq.oid = dep.refobjid
    and seq.relkind = 'S'
order by tbl.oid, att.attnum
`

func (pg *PostgreSQL) loadSequencesDeps(ctx context.Context, db *dbobject.Database) error {
	rows, err := pg.conn.QueryContext(ctx, FETCH_SEQUENCES_DEPS_QUERY)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableOID, seqOID uint32
			column           string
		)
		if err = rows.Scan(&tableOID, &column, &seqOID); err != nil {
			return err
		}
		table, ok := db.GetTable(tableOID)
		if !ok {
			continue
		}
		seq, ok := db.Get(seqOID).(*dbobject.Sequence)
		if !ok {
			pg.logger.Debugf("ignoring sequence %d used by %s: not loaded", seqOID, table)
			continue
		}
		if err = db.AddSequenceUser(seq, table, column); err != nil {
			return err
		}
	}
	return rows.Err()
}
