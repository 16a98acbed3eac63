package modelrt

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListBuilderAppendsInOrder(t *testing.T) {
	var b ListBuilder[string]
	assert.False(t, b.IsSet())

	b.Add("user")
	b.Add("default", "admin")

	require.True(t, b.IsSet())
	l := b.Build()
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"user", "default", "admin"}, l.Slice())
	assert.Equal(t, "default", l.At(1))
}

func TestListIsolatedFromBuilder(t *testing.T) {
	var b ListBuilder[int]
	b.Add(1, 2)
	l := b.Build()

	b.Add(3)
	assert.Equal(t, 2, l.Len())

	s := l.Slice()
	s[0] = 99
	assert.Equal(t, 1, l.At(0))

	src := []int{7, 8}
	l2 := NewList(src...)
	src[0] = 0
	assert.Equal(t, 7, l2.At(0))
}

func TestListToBuilderIsSet(t *testing.T) {
	var empty List[string]
	b := empty.ToBuilder()
	assert.True(t, b.IsSet())
	assert.Equal(t, 0, b.Len())

	b2 := NewList("a").ToBuilder()
	b2.Add("b")
	assert.Equal(t, []string{"a", "b"}, slices.Collect(b2.Build().Values()))
}

func TestListJSON(t *testing.T) {
	var empty List[int]
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	data, err = json.Marshal(NewList("x", "y"))
	require.NoError(t, err)
	assert.JSONEq(t, `["x","y"]`, string(data))

	var l List[string]
	require.NoError(t, json.Unmarshal([]byte(`["a","b","c"]`), &l))
	assert.Equal(t, []string{"a", "b", "c"}, l.Slice())

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &l))
}

func TestListAll(t *testing.T) {
	l := NewList("a", "b")
	var idx []int
	var vals []string
	for i, v := range l.All() {
		idx = append(idx, i)
		vals = append(vals, v)
	}
	assert.Equal(t, []int{0, 1}, idx)
	assert.Equal(t, []string{"a", "b"}, vals)
}

func TestListBuildPtr(t *testing.T) {
	var b ListBuilder[string]
	assert.Nil(t, b.BuildPtr())

	b.Add()
	p := b.BuildPtr()
	require.NotNil(t, p)
	assert.Equal(t, 0, p.Len())

	nilBuilder := ToListBuilder[string](nil)
	assert.False(t, nilBuilder.IsSet())
	seeded := ToListBuilder(p)
	assert.True(t, seeded.IsSet())
}
