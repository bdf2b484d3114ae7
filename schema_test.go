package dbgraph

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoYAML = `
tables:
  - name: users
    fields: [user_id, user_first, user_last, user_email]
    keys: [user_id, user_email]
  - name: lessons
    fields: [lesson_id, course_id, lesson_name]
    keys: [lesson_id]
  - name: courses
    fields: [course_id, course_name]
    keys: [course_id]
  - name: lesson_state
    fields: ["( union user_id  lesson_id )", lesson_state]
    keys: ["(union user_id lesson_id)"]
computed:
  - (paste user_first user_last)
`

func TestSchemaFile_Apply(t *testing.T) {
	t.Parallel()

	sf, err := ParseSchema([]byte(demoYAML))
	require.NoError(t, err)

	db := New()
	require.NoError(t, sf.Apply(db))

	assert.Equal(t, []string{"users", "lessons", "courses", "lesson_state"}, names(db.Tables()))

	ls, _ := db.Table("lesson_state")
	assert.Equal(t, []string{"(union user_id lesson_id)"}, names(ls.Keys()))

	union, ok := db.Field("(union user_id lesson_id)")
	require.True(t, ok)
	assert.Equal(t, KindUnion, union.Kind())

	_, ok = db.Field("(paste user_first user_last)")
	assert.True(t, ok)

	require.NoError(t, db.GetPlanForFields([]string{"lesson_state"}))
	user, _ := db.Field("user_id")
	assert.True(t, user.Needed())
}

func TestSchemaFile_ApplyRejectsBadKeys(t *testing.T) {
	t.Parallel()

	sf, err := ParseSchema([]byte(`
tables:
  - name: t
    fields: [a, "(f a)"]
    keys: [c]
`))
	require.NoError(t, err)

	db := New()
	require.ErrorIs(t, sf.Apply(db), ErrValidation)
	assert.Empty(t, db.Nodes())
}

func TestSchemaFile_Columns(t *testing.T) {
	t.Parallel()

	sf, err := ParseSchema([]byte(`
tables:
  - name: enrollments
    columns:
      - {name: id, field: enrollment_id, key: true}
      - {name: student, field: user_id}
`))
	require.NoError(t, err)

	db := New()
	require.NoError(t, sf.Apply(db))

	tbl, _ := db.Table("enrollments")
	user, _ := db.Field("user_id")
	assert.Equal(t, "student", tbl.Column(user))

	mixed, err := ParseSchema([]byte(`
tables:
  - name: x
    fields: [a]
    columns: [{field: b}]
`))
	require.NoError(t, err)
	require.ErrorIs(t, mixed.Apply(New()), ErrValidation)
}

func TestWriteSchema_RoundTrip(t *testing.T) {
	t.Parallel()

	db := New()
	require.NoError(t, mustParse(t, demoYAML).Apply(db))
	require.NoError(t, db.AddTableColumns("enrollments", []Column{
		{Name: "id", Field: "enrollment_id", Key: true},
		{Name: "student", Field: "user_id"},
	}))

	path := filepath.Join(t.TempDir(), "schema.yaml")

	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, db))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := LoadSchemaFile(path)
	require.NoError(t, err)

	again := New()
	require.NoError(t, loaded.Apply(again))

	if diff := cmp.Diff(Schema(db), Schema(again)); diff != "" {
		t.Errorf("schema changed after round trip (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"(paste user_first user_last)"}, Schema(again).Computed)
}

func TestLoadSchemaFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadSchemaFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables: {"), 0o644))

	_, err = LoadSchemaFile(path)
	require.Error(t, err)
}

func mustParse(t *testing.T, doc string) *SchemaFile {
	t.Helper()

	sf, err := ParseSchema([]byte(doc))
	require.NoError(t, err)

	return sf
}

func TestSchemaFile_RejectedTableDeclaresNothing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"existing table", `
tables:
  - name: users
    fields: ["(paste user_first user_email)", extra]
`},
		{"empty name", `
tables:
  - name: ""
    fields: ["(paste user_first user_email)"]
`},
		{"duplicate field", `
tables:
  - name: other
    fields: ["(paste user_first user_email)", "( paste user_first  user_email )"]
`},
		{"duplicate column", `
tables:
  - name: other
    columns:
      - {name: x, field: "(paste user_first user_email)"}
      - {name: x, field: user_id}
`},
		{"duplicate key", `
tables:
  - name: other
    fields: ["(paste user_first user_email)", user_id]
    keys: [user_id, user_id]
`},
		{"second expression unknown", `
tables:
  - name: other
    fields: ["(paste user_first user_email)", "(paste missing)"]
`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := New()
			require.NoError(t, mustParse(t, demoYAML).Apply(db))

			before := len(db.Nodes())

			require.Error(t, mustParse(t, tt.doc).Apply(db))
			assert.Len(t, db.Nodes(), before)

			_, ok := db.Field("(paste user_first user_email)")
			assert.False(t, ok)
		})
	}
}

func TestSchemaFile_ComputedListIsAtomic(t *testing.T) {
	t.Parallel()

	db := New()
	require.NoError(t, mustParse(t, demoYAML).Apply(db))

	before := len(db.Nodes())

	err := mustParse(t, `
tables: []
computed:
  - (upper user_last)
  - (upper missing)
`).Apply(db)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, db.Nodes(), before)
}
