// Package sqlite introspects a SQLite database into a dbgraph.Database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/nibrivia/dbgraph"
)

// ErrForeignKeyCycle is returned when foreign keys reference each other in a loop
// and no global field name can be derived.
var ErrForeignKeyCycle = errors.New("sqlite: foreign key cycle")

// Introspector reads tables, primary keys and foreign keys from SQLite.
type Introspector struct {
	conn    *sql.DB
	qualify bool
}

var _ dbgraph.SchemaIntrospector = (*Introspector)(nil)

// Option configures an Introspector.
type Option func(*Introspector)

// WithQualifiedNames names global fields "table.column" instead of "column".
// Foreign-key columns still share the field of the column they reference.
func WithQualifiedNames(enabled bool) Option {
	return func(i *Introspector) {
		i.qualify = enabled
	}
}

// New creates an Introspector over an open connection.
func New(conn *sql.DB, opts ...Option) *Introspector {
	i := &Introspector{conn: conn}
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Open opens the SQLite file at path read-only.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}

	return conn, nil
}

type column struct {
	name string
	pk   int
}

type foreignKey struct {
	from  string
	table string
	to    string // empty when the reference targets the primary key implicitly
	seq   int
}

type tableInfo struct {
	name    string
	columns []column
	fks     []foreignKey
}

// IntrospectSchema implements dbgraph.SchemaIntrospector. Each SQLite table becomes
// a table whose keys are its primary-key columns.
func (i *Introspector) IntrospectSchema(ctx context.Context, db *dbgraph.Database) error {
	tables, err := i.readTables(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string]*tableInfo, len(tables))
	for _, t := range tables {
		byName[t.name] = t
	}

	for _, t := range tables {
		cols, err := i.columns(byName, t)
		if err != nil {
			return err
		}

		if err := db.AddTableColumns(t.name, cols); err != nil {
			return fmt.Errorf("sqlite: table %s: %w", t.name, err)
		}
	}

	return nil
}

// columns maps each column of t to a global field. The table's own columns claim
// their names first; foreign-key columns then take the referenced field unless
// that name is already used in t, falling back to their own name and finally to
// the qualified one.
func (i *Introspector) columns(tables map[string]*tableInfo, t *tableInfo) ([]dbgraph.Column, error) {
	fields := make([]string, len(t.columns))
	used := make(map[string]bool, len(t.columns))

	for n, c := range t.columns {
		if t.isForeignKey(c.name) {
			continue
		}

		fields[n] = i.ownName(t.name, c.name)
		used[fields[n]] = true
	}

	for n, c := range t.columns {
		if !t.isForeignKey(c.name) {
			continue
		}

		field, err := i.globalName(tables, t.name, c.name, 0)
		if err != nil {
			return nil, err
		}

		for _, candidate := range []string{field, i.ownName(t.name, c.name), t.name + "." + c.name} {
			if !used[candidate] {
				field = candidate
				break
			}
		}

		fields[n] = field
		used[field] = true
	}

	cols := make([]dbgraph.Column, len(t.columns))
	for n, c := range t.columns {
		cols[n] = dbgraph.Column{Name: c.name, Field: fields[n], Key: c.pk > 0}
	}

	return cols, nil
}

func (t *tableInfo) isForeignKey(col string) bool {
	for _, fk := range t.fks {
		if fk.from == col {
			return true
		}
	}

	return false
}

func (i *Introspector) ownName(table, col string) string {
	if i.qualify {
		return table + "." + col
	}

	return col
}

// globalName follows foreign keys to the column that owns the value.
func (i *Introspector) globalName(tables map[string]*tableInfo, table, col string, depth int) (string, error) {
	if depth > len(tables) {
		return "", fmt.Errorf("%w: at %s.%s", ErrForeignKeyCycle, table, col)
	}

	t, ok := tables[table]
	if !ok {
		return i.ownName(table, col), nil
	}

	for _, fk := range t.fks {
		if fk.from != col {
			continue
		}

		to := fk.to
		if to == "" {
			to = primaryKeyColumn(tables[fk.table], fk.seq)
		}

		if to == "" {
			break
		}

		return i.globalName(tables, fk.table, to, depth+1)
	}

	return i.ownName(table, col), nil
}

func primaryKeyColumn(t *tableInfo, seq int) string {
	if t == nil {
		return ""
	}

	for _, c := range t.columns {
		if c.pk == seq+1 {
			return c.name
		}
	}

	return ""
}

func (i *Introspector) readTables(ctx context.Context) ([]*tableInfo, error) {
	rows, err := i.conn.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tables: %w", err)
	}

	var tableNames []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, err
		}

		tableNames = append(tableNames, name)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]*tableInfo, 0, len(tableNames))

	for _, name := range tableNames {
		t := &tableInfo{name: name}

		if t.columns, err = i.readColumns(ctx, name); err != nil {
			return nil, err
		}

		if t.fks, err = i.readForeignKeys(ctx, name); err != nil {
			return nil, err
		}

		tables = append(tables, t)
	}

	return tables, nil
}

func (i *Introspector) readColumns(ctx context.Context, table string) ([]column, error) {
	rows, err := i.conn.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("sqlite: table_info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []column

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)

		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}

		cols = append(cols, column{name: name, pk: pk})
	}

	return cols, rows.Err()
}

func (i *Introspector) readForeignKeys(ctx context.Context, table string) ([]foreignKey, error) {
	rows, err := i.conn.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("sqlite: foreign_key_list %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var fks []foreignKey

	for rows.Next() {
		var (
			id, seq                   int
			refTable, from            string
			to                        sql.NullString
			onUpdate, onDelete, match string
		)

		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		fks = append(fks, foreignKey{from: from, table: refTable, to: to.String, seq: seq})
	}

	return fks, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
