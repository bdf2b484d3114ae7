package dbgraph

import (
	"fmt"

	"go.uber.org/zap"
)

// Database is the registry of tables, fields and computed nodes, and the planning
// entry point. It owns every node it creates. A Database is not safe for
// concurrent use.
type Database struct {
	g      graph
	tables map[string]*Node
	fields map[string]*Node
	fns    map[string]Kind

	// optErrs collects option failures until the logger is final.
	optErrs []error
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used for build and propagation events.
func WithLogger(logger *zap.Logger) Option {
	return func(db *Database) {
		if logger != nil {
			db.g.log = logger
		}
	}
}

// WithFunc registers a function tag, see RegisterFunc. An invalid tag or kind is
// skipped and logged at warn level once New has applied every option.
func WithFunc(tag string, kind Kind) Option {
	return func(db *Database) {
		if err := db.registerFunc(tag, kind); err != nil {
			db.optErrs = append(db.optErrs, err)
		}
	}
}

// New creates an empty Database. The "union" tag is pre-registered.
func New(opts ...Option) *Database {
	db := &Database{
		g:      graph{log: zap.NewNop()},
		tables: make(map[string]*Node),
		fields: make(map[string]*Node),
		fns:    map[string]Kind{FnUnion: KindUnion},
	}

	for _, opt := range opts {
		opt(db)
	}

	for _, err := range db.optErrs {
		_ = db.reject(err)
	}

	db.optErrs = nil

	return db
}

// RegisterFunc maps a function tag to the kind of computed node it constructs.
// Unregistered tags build plain computed nodes.
func (db *Database) RegisterFunc(tag string, kind Kind) error {
	if err := db.registerFunc(tag, kind); err != nil {
		return db.reject(err)
	}

	return nil
}

func (db *Database) registerFunc(tag string, kind Kind) error {
	if tag == "" {
		return fmt.Errorf("%w: empty function tag", ErrValidation)
	}

	if !kind.IsComputed() {
		return fmt.Errorf("%w: function %q cannot construct %s nodes", ErrValidation, tag, kind)
	}

	db.fns[tag] = kind

	return nil
}

// FuncKind returns the kind of node the tag constructs.
func (db *Database) FuncKind(tag string) Kind {
	if k, ok := db.fns[tag]; ok {
		return k
	}

	return KindComputed
}

// Table returns the table with the given name.
func (db *Database) Table(name string) (*Node, bool) {
	t, ok := db.tables[name]
	return t, ok
}

// Field returns the field, computed node or union with the given name.
func (db *Database) Field(name string) (*Node, bool) {
	f, ok := db.fields[name]
	return f, ok
}

// Tables returns every table in declaration order.
func (db *Database) Tables() []*Node {
	return db.nodesOf(func(n *Node) bool { return n.kind == KindTable })
}

// Fields returns every named field node in declaration order.
func (db *Database) Fields() []*Node {
	return db.nodesOf(func(n *Node) bool { return n.kind != KindTable })
}

// Nodes returns every node in the graph in declaration order.
func (db *Database) Nodes() []*Node {
	return db.nodesOf(func(*Node) bool { return true })
}

func (db *Database) nodesOf(pred func(*Node) bool) []*Node {
	var out []*Node

	for _, n := range db.g.nodes {
		if pred(n) {
			out = append(out, n)
		}
	}

	return out
}

// AddTable declares a table whose columns are the named fields. Fields that do not
// exist yet are created; existing ones are shared, which is how a foreign key ties
// two tables together. Every key name must also appear in fieldNames.
func (db *Database) AddTable(name string, fieldNames, keyNames []string) error {
	if err := checkKeys(name, fieldNames, keyNames); err != nil {
		return db.reject(err)
	}

	cols := make([]Column, len(fieldNames))
	for i, f := range fieldNames {
		cols[i] = Column{Field: f}
	}

	return db.addTable(name, cols, keyNames)
}

// AddTableColumns declares a table from column specs. Columns may carry a local
// name that differs from the global field name. Keys follow column order.
func (db *Database) AddTableColumns(name string, cols []Column) error {
	var keys []string

	for _, c := range cols {
		if c.Key {
			keys = append(keys, c.Field)
		}
	}

	return db.addTable(name, cols, keys)
}

// checkKeys verifies that keys are unique and a subset of fields.
func checkKeys(table string, fieldNames, keyNames []string) error {
	inFields := make(map[string]bool, len(fieldNames))
	for _, f := range fieldNames {
		inFields[f] = true
	}

	seenKey := make(map[string]bool, len(keyNames))

	for _, k := range keyNames {
		if !inFields[k] {
			return fmt.Errorf("%w: table %q: key %q not in fields %v", ErrValidation, table, k, fieldNames)
		}

		if seenKey[k] {
			return fmt.Errorf("%w: table %q: duplicate key %q", ErrValidation, table, k)
		}

		seenKey[k] = true
	}

	return nil
}

// checkTable runs every check addTable makes before it creates a node.
func (db *Database) checkTable(name string, cols []Column) error {
	if name == "" {
		return fmt.Errorf("%w: empty table name", ErrValidation)
	}

	if _, ok := db.tables[name]; ok {
		return fmt.Errorf("%w: table %q already exists", ErrValidation, name)
	}

	seenField := make(map[string]bool, len(cols))
	seenColumn := make(map[string]bool, len(cols))

	for _, c := range cols {
		column := c.Name
		if column == "" {
			column = c.Field
		}

		switch {
		case c.Field == "":
			return fmt.Errorf("%w: table %q: empty field name", ErrValidation, name)
		case seenField[c.Field]:
			return fmt.Errorf("%w: table %q: duplicate field %q", ErrValidation, name, c.Field)
		case seenColumn[column]:
			return fmt.Errorf("%w: table %q: duplicate column %q", ErrValidation, name, column)
		}

		seenField[c.Field] = true
		seenColumn[column] = true
	}

	return nil
}

func (db *Database) addTable(name string, cols []Column, keys []string) error {
	if err := db.checkTable(name, cols); err != nil {
		return db.reject(err)
	}

	t := db.g.newNode(name, KindTable)
	db.tables[name] = t

	// Fields first: the table locks on its first key.
	for _, c := range cols {
		if err := t.addField(db.fieldOrCreate(c.Field), c.Name); err != nil {
			return err
		}
	}

	for _, k := range keys {
		t.addKey(db.fields[k])
	}

	db.g.log.Debug("table added",
		zap.String("table", name),
		zap.Int("fields", len(cols)),
		zap.Strings("keys", keys),
	)

	// Keeps the fixpoint when building after a plan has run.
	t.checkAvailable()

	return nil
}

func (db *Database) fieldOrCreate(name string) *Node {
	if f, ok := db.fields[name]; ok {
		return f
	}

	f := db.g.newNode(name, KindField)
	db.fields[name] = f

	return f
}

// AddComputedNode declares a node computed by fn from the named fields and returns
// its derived name, e.g. "(paste first last)". The inputs must already exist.
// Declaring the same fn over the same inputs again returns the existing node.
func (db *Database) AddComputedNode(fn string, fieldNames []string) (string, error) {
	if fn == "" {
		fn = FnDefault
	}

	if len(fieldNames) == 0 {
		return "", db.reject(fmt.Errorf("%w: computed node %q has no inputs", ErrValidation, fn))
	}

	params := make([]*Node, len(fieldNames))

	for i, name := range fieldNames {
		f, ok := db.fields[name]
		if !ok {
			return "", db.reject(fmt.Errorf("%w: field %q", ErrNotFound, name))
		}

		params[i] = f
	}

	name := ComputedName(fn, fieldNames)

	if existing, ok := db.fields[name]; ok {
		if !existing.kind.IsComputed() {
			return "", db.reject(fmt.Errorf("%w: %q is already a plain field", ErrValidation, name))
		}

		return name, nil
	}

	kind := db.FuncKind(fn)
	n := db.g.newNode(name, kind)
	n.fn = fn

	for _, p := range params {
		n.params = append(n.params, p.id)
		db.g.link(p, n)
	}

	db.fields[name] = n

	db.g.log.Debug("computed node added",
		zap.String("node", name),
		zap.Stringer("kind", kind),
	)

	n.checkAvailable()

	return name, nil
}

// GetPlanForFields marks the named fields wanted and propagates demand through the
// graph. When it returns, the wanted/needed/available flags of every node are the
// plan. Unknown names and ambiguous targets are rejected before any node changes.
func (db *Database) GetPlanForFields(targetNames []string) error {
	targets := make([]*Node, len(targetNames))

	for i, name := range targetNames {
		f, ok := db.fields[name]
		if !ok {
			return db.reject(fmt.Errorf("%w: field %q", ErrNotFound, name))
		}

		targets[i] = f
	}

	for _, t := range targets {
		if err := t.disambiguate(); err != nil {
			return db.reject(err)
		}
	}

	db.g.log.Info("planning", zap.Strings("targets", targetNames))

	for _, t := range targets {
		t.setWanted()
	}

	db.g.log.Info("plan complete",
		zap.Int("needed", len(db.nodesOf(func(n *Node) bool { return n.needed }))),
		zap.Int("available", len(db.nodesOf(func(n *Node) bool { return n.available }))),
	)

	return nil
}

func (db *Database) reject(err error) error {
	db.g.log.Warn("rejected", zap.Error(err))
	return err
}
