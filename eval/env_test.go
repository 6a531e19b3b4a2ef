package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvBindAndLookup(t *testing.T) {
	env := NewEnv()
	env.Bind("x", int64(1))

	v, err := env.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestEnvLookupUnbound(t *testing.T) {
	env := NewEnv()
	_, err := env.Lookup("ghost")

	var unbound *UnboundVariableError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "ghost", unbound.Name)
}

func TestEnvChildShadowing(t *testing.T) {
	parent := NewEnv()
	parent.Bind("x", "outer")
	parent.Bind("y", "shared")

	child := parent.Child()
	child.Bind("x", "inner")

	// Child sees its own binding plus the parent chain.
	v, err := child.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, "inner", v)

	v, err = child.Lookup("y")
	require.NoError(t, err)
	assert.Equal(t, "shared", v)

	// Shadowing does not destroy the outer binding.
	v, err = parent.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, "outer", v)
}

func TestEnvSiblingIsolation(t *testing.T) {
	parent := NewEnv()

	a := parent.Child()
	b := parent.Child()
	a.Bind("local", 1)

	_, err := b.Lookup("local")
	assert.Error(t, err)

	_, err = parent.Lookup("local")
	assert.Error(t, err)
}
