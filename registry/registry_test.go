package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRegistryRegisterGetRemove(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, r.Count())
	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	_, ok = r.Get("a")
	assert.False(t, ok)
}

func TestBaseRegistryRejectsEmptyAndDuplicate(t *testing.T) {
	r := NewBaseRegistry[int]()
	assert.Error(t, r.Register("", 1))
	require.NoError(t, r.Register("a", 1))
	err := r.Register("a", 2)
	require.Error(t, err)
	var dupErr *DuplicateError
	assert.ErrorAs(t, err, &dupErr)
}

func TestBaseRegistryListAndClear(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))
	assert.ElementsMatch(t, []string{"a", "b"}, r.List())
	r.Clear()
	assert.Equal(t, 0, r.Count())
}
