package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nibrivia/dbgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoSchema = `
tables:
  - name: lessons
    fields: [lesson_id, course_id, lesson_name]
    keys: [lesson_id]
  - name: courses
    fields: [course_id, course_name]
    keys: [course_id]
  - name: lesson_state
    fields: ["(union course_id lesson_id)", lesson_state]
    keys: ["(union course_id lesson_id)"]
computed:
  - (upper lesson_name)
`

func newDemo(t *testing.T) *dbgraph.Database {
	t.Helper()

	sf, err := dbgraph.ParseSchema([]byte(demoSchema))
	require.NoError(t, err)

	db := dbgraph.New()
	require.NoError(t, sf.Apply(db))

	return db
}

func TestBuildPlan(t *testing.T) {
	t.Parallel()

	db := newDemo(t)
	require.NoError(t, db.GetPlanForFields([]string{"course_name"}))

	p := BuildPlan(db)

	assert.Equal(t, []string{"course_name"}, p.Targets)
	require.Len(t, p.Tables, 3)

	needed := State{Needed: true, Available: true}
	want := TableBlock{
		Name:  "courses",
		State: needed,
		Fields: []FieldRow{
			{Column: "course_id", GlobalName: "course_id", Key: true, State: needed},
			{Column: "course_name", GlobalName: "course_name", State: State{true, true, true}},
		},
	}

	if diff := cmp.Diff(want, p.Tables[1]); diff != "" {
		t.Errorf("courses block mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, State{}, p.Tables[0].State)

	ls := p.Tables[2].Fields[0]
	assert.True(t, ls.Key)
	assert.True(t, ls.Computed)

	require.Len(t, p.Detached, 1)
	assert.Equal(t, NodeRow{
		Name:   "(upper lesson_name)",
		Kind:   "computed",
		Fn:     "upper",
		Params: []string{"lesson_name"},
	}, p.Detached[0])

	assert.Equal(t, Counts{Nodes: 10, Wanted: 1, Needed: 3, Available: 3}, p.Counts)
}

func TestBuildExport(t *testing.T) {
	t.Parallel()

	db := newDemo(t)
	require.NoError(t, db.AddTableColumns("enrollments", []dbgraph.Column{
		{Name: "id", Field: "enrollment_id", Key: true},
		{Name: "lesson", Field: "lesson_id"},
	}))

	e := BuildExport(db)

	want := []ExportRow{
		{"lessons", "lesson_id", "lesson_id", true, false},
		{"lessons", "course_id", "course_id", false, false},
		{"lessons", "lesson_name", "lesson_name", false, false},
		{"courses", "course_id", "course_id", true, false},
		{"courses", "course_name", "course_name", false, false},
		{"lesson_state", "(union course_id lesson_id)", "(union course_id lesson_id)", true, true},
		{"lesson_state", "lesson_state", "lesson_state", false, false},
		{"enrollments", "id", "enrollment_id", true, false},
		{"enrollments", "lesson", "lesson_id", false, false},
	}

	if diff := cmp.Diff(want, e.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, e.Detached, 1)
	assert.Equal(t, "(upper lesson_name)", e.Detached[0].Name)

	assert.Equal(t, []string{"courses", "course_id", "course_id", "true", "false"}, e.Rows[3].Record())
}

func TestState_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wanted", State{true, true, true}.Label())
	assert.Equal(t, "needed", State{false, true, true}.Label())
	assert.Equal(t, "available", State{false, false, true}.Label())
	assert.Equal(t, "-", State{}.Label())
}
