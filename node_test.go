package dbgraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNode_Traversal(t *testing.T) {
	t.Parallel()

	db := New()
	require.NoError(t, db.AddTable("t", []string{"a", "b"}, []string{"a"}))

	tbl, _ := db.Table("t")
	a, _ := db.Field("a")
	b, _ := db.Field("b")

	tests := []struct {
		name string
		got  []*Node
		want []string
	}{
		{"table descendants", tbl.Descendants(), []string{"a", "t", "b"}},
		{"key descendants", a.Descendants(), []string{"t", "a", "b"}},
		{"field ancestors", b.Ancestors(), []string{"t", "a"}},
		{"table ancestors", tbl.Ancestors(), []string{"a", "t"}},
		{"leaf descendants", b.Descendants(), []string{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.want, names(tt.got)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNode_TraversalIsFresh(t *testing.T) {
	t.Parallel()

	db := New()
	buildDemo(t, db)

	users, _ := db.Table("users")

	first := users.Descendants()
	second := users.Descendants()

	if diff := cmp.Diff(names(first), names(second)); diff != "" {
		t.Errorf("second walk differs (-first +second):\n%s", diff)
	}

	// The demo has a table and a field both named lesson_state, so nodes are
	// compared by identity rather than by name.
	seen := make(map[*Node]bool)
	for _, n := range first {
		require.False(t, seen[n], "%s %s visited twice", n.Kind(), n.Name())
		seen[n] = true
	}

	paste, _ := db.Field("(paste user_first user_last)")
	stateField, _ := db.Field("lesson_state")
	stateTable, _ := db.Table("lesson_state")
	courses, _ := db.Table("courses")

	require.True(t, seen[paste])
	require.True(t, seen[stateField])
	require.True(t, seen[stateTable])
	require.False(t, seen[courses])
}

func TestEdgeSet(t *testing.T) {
	t.Parallel()

	var s edgeSet

	require.True(t, s.add(3))
	require.True(t, s.add(1))
	require.False(t, s.add(3))
	require.True(t, s.contains(1))
	require.False(t, s.contains(2))
	require.Equal(t, 2, s.len())
	require.Equal(t, []int{3, 1}, s.ids)
}
