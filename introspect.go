package dbgraph

import "context"

// SchemaIntrospector is implemented by database backends that can declare their
// tables, keys and shared foreign-key fields on a Database.
type SchemaIntrospector interface {
	// IntrospectSchema reads the backend's schema and adds it to db.
	IntrospectSchema(ctx context.Context, db *Database) error
}
