package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/nibrivia/dbgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// run executes the CLI with an empty config so the caller's environment does not leak in.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfg := filepath.Join(t.TempDir(), ".dbgraph.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("color: never\n"), 0o644))

	var buf bytes.Buffer

	app := newApp()
	app.Writer = &buf

	err := app.Run(context.Background(), append([]string{"dbgraph", "--config", cfg}, args...))

	return buf.String(), err
}

func writeSchema(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "school.yaml"), []byte(`
tables:
  - name: lessons
    fields: [lesson_id, course_id, lesson_name]
    keys: [lesson_id]
  - name: courses
    fields: [course_id, course_name]
    keys: [course_id]
`), 0o644))

	return dir
}

func TestDemo(t *testing.T) {
	t.Parallel()

	out, err := run(t, "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "courses needed\n")
	assert.Contains(t, out, "users -\n")
	assert.Contains(t, out, "ƒ (paste user_first user_last)")
	assert.Contains(t, out, "1 wanted, 3 needed")
}

func TestDemo_Expression(t *testing.T) {
	t.Parallel()

	out, err := run(t, "demo", "--want", "(initials user_first user_last)")
	require.NoError(t, err)
	assert.Contains(t, out, "ƒ (initials user_first user_last)  wanted")
}

func TestDemo_Schema(t *testing.T) {
	t.Parallel()

	out, err := run(t, "demo", "--schema")
	require.NoError(t, err)
	assert.Contains(t, out, "name: lesson_state")
	assert.Contains(t, out, "- (paste user_first user_last)")
}

func TestPlan(t *testing.T) {
	t.Parallel()

	out, err := run(t, "plan", "--want", "course_name", "--format", "csv", writeSchema(t))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	assert.Contains(t, records, []string{"courses", "course_name", "course_name", "true", "true", "true"})
	assert.Contains(t, records, []string{"lessons", "", "", "false", "false", "false"})
}

func TestPlan_Errors(t *testing.T) {
	t.Parallel()

	_, err := run(t, "plan", writeSchema(t))
	require.Error(t, err)

	_, err = run(t, "plan", "--want", "course_name")
	require.ErrorIs(t, err, ErrNoSchema)

	_, err = run(t, "plan", "--want", "course_id", writeSchema(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disambiguation required")
}

func TestPlan_RejectedWantsDeclareNothing(t *testing.T) {
	t.Parallel()

	db, err := demoDatabase(&session{cfg: &dbgraph.Config{}, logger: zap.NewNop()})
	require.NoError(t, err)

	before := len(db.Nodes())

	err = plan(db, []string{"(initials user_first user_last)", "missing"})
	require.ErrorIs(t, err, dbgraph.ErrNotFound)
	assert.Len(t, db.Nodes(), before)

	_, ok := db.Field("(initials user_first user_last)")
	assert.False(t, ok)
}

func TestExport(t *testing.T) {
	t.Parallel()

	detached := filepath.Join(t.TempDir(), "computed.csv")

	out, err := run(t, "export", "--detached", detached, writeSchema(t))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewBufferString(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"courses", "course_id", "course_id", "true", "false"}, records[4])

	data, err := os.ReadFile(detached)
	require.NoError(t, err)
	assert.Equal(t, "global_name,kind,fn,params\n", string(data))
}

func TestInspect_NoDatabase(t *testing.T) {
	t.Parallel()

	_, err := run(t, "inspect")
	require.ErrorIs(t, err, ErrNoSQLitePath)
}
