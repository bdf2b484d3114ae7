package dbgraph

import "fmt"

// Column declares one column of a table.
type Column struct {
	// Name is the table-local column name. Defaults to Field.
	Name string `yaml:"name,omitempty"`

	// Field is the global field name the column maps to.
	Field string `yaml:"field"`

	// Key marks the column as part of the table's addressing key.
	Key bool `yaml:"key,omitempty"`
}

// addField appends f to the table's columns. The table becomes the parent of f.
func (t *Node) addField(f *Node, column string) error {
	if t.locked {
		return fmt.Errorf("%w: table %q is locked, cannot add field %q", ErrInvalidOperation, t.name, f.name)
	}

	t.fields = append(t.fields, f.id)
	t.g.link(t, f)

	if column != "" && column != f.name {
		if t.columns == nil {
			t.columns = make(map[int]string)
		}

		t.columns[f.id] = column
	}

	return nil
}

// addKey designates f as a key and locks the table. The key becomes a parent of the table.
func (t *Node) addKey(f *Node) {
	t.locked = true
	t.keys = append(t.keys, f.id)
	t.g.link(f, t)
}
