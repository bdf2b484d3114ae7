package dbgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_LockedAfterKey(t *testing.T) {
	t.Parallel()

	db := New()
	require.NoError(t, db.AddTable("t", []string{"a", "b"}, nil))

	tbl, _ := db.Table("t")
	assert.False(t, tbl.Locked())

	a, _ := db.Field("a")
	tbl.addKey(a)
	assert.True(t, tbl.Locked())

	c := db.fieldOrCreate("c")
	err := tbl.addField(c, "")
	require.ErrorIs(t, err, ErrInvalidOperation)

	assert.Equal(t, []string{"a", "b"}, names(tbl.Fields()))
	assert.Empty(t, c.Parents())
	assert.Equal(t, []string{"a"}, names(tbl.Parents()))
}

func TestTable_ColumnAlias(t *testing.T) {
	t.Parallel()

	db := New()
	require.NoError(t, db.AddTable("t", nil, nil))

	tbl, _ := db.Table("t")
	f := db.fieldOrCreate("user_id")

	require.NoError(t, tbl.addField(f, "user_id"))
	assert.Empty(t, tbl.columns, "an alias equal to the field name is not stored")
	assert.Equal(t, "user_id", tbl.Column(f))
}
