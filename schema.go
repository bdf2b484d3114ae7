package dbgraph

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaFile is the YAML representation of a Database.
//
//	tables:
//	  - name: users
//	    fields: [user_id, user_first, user_last, user_email]
//	    keys: [user_id, user_email]
//	computed:
//	  - (paste user_first user_last)
//
// Field entries written as expressions are declared as computed nodes before the
// table that lists them.
type SchemaFile struct {
	Tables   []TableSchema `yaml:"tables"`
	Computed []string      `yaml:"computed,omitempty"`
}

// TableSchema describes one table. Either Fields/Keys or Columns is used.
type TableSchema struct {
	Name    string   `yaml:"name"`
	Fields  []string `yaml:"fields,omitempty"`
	Keys    []string `yaml:"keys,omitempty"`
	Columns []Column `yaml:"columns,omitempty"`
}

// ParseSchema decodes a YAML schema document.
func ParseSchema(data []byte) (*SchemaFile, error) {
	var sf SchemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}

	return &sf, nil
}

// LoadSchemaFile reads and decodes a YAML schema file.
func LoadSchemaFile(path string) (*SchemaFile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	sf, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sf, nil
}

// Apply builds the schema into db: tables in order, then the computed list.
// Each step is atomic; Apply stops at the first failing step and leaves the
// earlier ones in place.
func (sf *SchemaFile) Apply(db *Database) error {
	for _, ts := range sf.Tables {
		if err := ts.apply(db); err != nil {
			return err
		}
	}

	if _, err := db.DefineAll(sf.Computed); err != nil {
		return err
	}

	return nil
}

// apply validates the whole table, then declares its expression fields and
// finally the table itself.
func (ts *TableSchema) apply(db *Database) error {
	cols, keys, err := ts.columns()
	if err != nil {
		return db.reject(err)
	}

	if err := db.checkTable(ts.Name, cols); err != nil {
		return db.reject(err)
	}

	var exprs []string

	for _, c := range cols {
		if isExpr(c.Field) {
			exprs = append(exprs, c.Field)
		}
	}

	if _, err := db.DefineAll(exprs); err != nil {
		return err
	}

	if len(ts.Columns) > 0 {
		return db.AddTableColumns(ts.Name, cols)
	}

	return db.AddTable(ts.Name, fieldsOf(cols), keys)
}

// columns canonicalizes the table's field names into column specs.
func (ts *TableSchema) columns() ([]Column, []string, error) {
	if len(ts.Columns) > 0 {
		if len(ts.Fields) > 0 || len(ts.Keys) > 0 {
			return nil, nil, fmt.Errorf("%w: table %q: use either fields/keys or columns", ErrValidation, ts.Name)
		}

		cols := make([]Column, len(ts.Columns))
		copy(cols, ts.Columns)

		var keys []string

		for i := range cols {
			name, err := canonical(cols[i].Field)
			if err != nil {
				return nil, nil, err
			}

			cols[i].Field = name
			if cols[i].Key {
				keys = append(keys, name)
			}
		}

		return cols, keys, nil
	}

	cols := make([]Column, len(ts.Fields))

	for i, f := range ts.Fields {
		name, err := canonical(f)
		if err != nil {
			return nil, nil, err
		}

		cols[i] = Column{Field: name}
	}

	keys := make([]string, len(ts.Keys))

	for i, k := range ts.Keys {
		name, err := canonical(k)
		if err != nil {
			return nil, nil, err
		}

		keys[i] = name
	}

	if err := checkKeys(ts.Name, fieldsOf(cols), keys); err != nil {
		return nil, nil, err
	}

	return cols, keys, nil
}

func fieldsOf(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Field
	}

	return out
}

func isExpr(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "(")
}

func canonical(s string) (string, error) {
	if !isExpr(s) {
		return s, nil
	}

	return Normalize(s)
}

// Schema converts db back into its YAML representation. Computed nodes that
// belong to a table are written inline as that table's fields; the rest go to
// the computed list.
func Schema(db *Database) *SchemaFile {
	sf := &SchemaFile{}
	attached := make(map[int]bool)

	for _, t := range db.Tables() {
		ts := TableSchema{Name: t.name}

		aliased := len(t.columns) > 0

		for _, f := range t.Fields() {
			attached[f.id] = true

			if aliased {
				col := Column{Field: f.name, Key: t.IsKey(f)}
				if c := t.Column(f); c != f.name {
					col.Name = c
				}

				ts.Columns = append(ts.Columns, col)

				continue
			}

			ts.Fields = append(ts.Fields, f.name)
		}

		if !aliased {
			ts.Keys = names(t.Keys())
		}

		sf.Tables = append(sf.Tables, ts)
	}

	for _, n := range db.Fields() {
		if n.kind.IsComputed() && !attached[n.id] {
			sf.Computed = append(sf.Computed, n.name)
		}
	}

	return sf
}

// WriteSchema writes db as a YAML schema document.
func WriteSchema(w io.Writer, db *Database) (err error) {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	defer func() {
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}()

	return enc.Encode(Schema(db))
}
