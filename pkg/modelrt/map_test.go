package modelrt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapBuilderKeepsInsertionOrder(t *testing.T) {
	var b MapBuilder[string, int]
	assert.False(t, b.IsSet())

	b.Put("zeta", 1)
	b.Put("alpha", 2)
	b.Put("zeta", 3)

	m := b.Build()
	assert.Equal(t, []string{"zeta", "alpha"}, m.Keys())
	v, ok := m.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMapIsolatedFromBuilder(t *testing.T) {
	var b MapBuilder[string, int]
	b.Put("a", 1)
	m := b.Build()

	b.Put("a", 5)
	b.Put("b", 2)

	assert.Equal(t, 1, m.Len())
	v, _ := m.Get("a")
	assert.Equal(t, 1, v)
}

func TestMapJSONPreservesOrder(t *testing.T) {
	var b MapBuilder[string, int]
	b.Put("math", 90)
	b.Put("art", 75)

	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	assert.Equal(t, `{"math":90,"art":75}`, string(data))

	var decoded Map[string, int]
	require.NoError(t, json.Unmarshal([]byte(`{"b":2,"a":1}`), &decoded))
	assert.Equal(t, []string{"b", "a"}, decoded.Keys())
}

func TestMapJSONNonStringKeys(t *testing.T) {
	var b MapBuilder[int, bool]
	b.Put(2, true)
	b.Put(10, false)

	data, err := json.Marshal(b.Build())
	require.NoError(t, err)
	assert.Equal(t, `{"2":true,"10":false}`, string(data))

	var decoded Map[int, bool]
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []int{2, 10}, decoded.Keys())

	assert.Error(t, json.Unmarshal([]byte(`{"x":true}`), &decoded))
}

func TestMapJSONNull(t *testing.T) {
	var b MapBuilder[string, string]
	b.Put("k", "v")
	m := b.Build()
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, 0, m.Len())

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &m))
}

func TestMapPutAll(t *testing.T) {
	var src MapBuilder[string, int]
	src.Put("a", 1)
	src.Put("b", 2)

	var dst MapBuilder[string, int]
	dst.Put("c", 3)
	dst.PutAll(src.Build())
	assert.Equal(t, []string{"c", "a", "b"}, dst.Build().Keys())
}

func TestMapBuildPtr(t *testing.T) {
	var b MapBuilder[string, int]
	assert.Nil(t, b.BuildPtr())
	nilBuilder := ToMapBuilder[string, int](nil)
	assert.False(t, nilBuilder.IsSet())

	b.Put("a", 1)
	p := b.BuildPtr()
	require.NotNil(t, p)
	seeded := ToMapBuilder(p)
	assert.True(t, seeded.IsSet())
	assert.Equal(t, 1, seeded.Len())
}
