package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketguard/internal/fanout"
)

func TestTableFor(t *testing.T) {
	table, err := tableFor(fanout.KindUser)
	require.NoError(t, err)
	assert.Equal(t, "users", table)

	table, err = tableFor(fanout.KindPro)
	require.NoError(t, err)
	assert.Equal(t, "pros", table)

	_, err = tableFor("admin")
	assert.Error(t, err)
}

func TestExists_UnknownKindSkipsQuery(t *testing.T) {
	v := NewValidator(nil)
	ok, err := v.Exists(context.Background(), fanout.Identity{Kind: "admin", ID: "x"})
	require.Error(t, err)
	assert.False(t, ok)
}
