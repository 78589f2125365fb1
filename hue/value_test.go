package hue

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValue_PreservesOrderAndNumbers(t *testing.T) {
	v, err := decodeValue([]byte(`{"z":1,"a":[1.5,{"y":null,"b":"s"}],"m":false}`))
	require.NoError(t, err)

	obj := v.(*Object)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	z, _ := obj.Get("z")
	assert.Equal(t, json.Number("1"), z)

	inner, ok := Lookup(v, "a", 1)
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, inner.(*Object).Keys())

	y, ok := Lookup(v, "a", 1, "y")
	require.True(t, ok)
	assert.Nil(t, y)
}

func TestDecodeValue_Invalid(t *testing.T) {
	for _, body := range []string{``, `{`, `{"a":1}x`, `[1,]`, `nope`} {
		_, err := decodeValue([]byte(body))
		assert.Error(t, err, "body %q", body)
	}
}

func TestLookup_Misses(t *testing.T) {
	v, err := decodeValue([]byte(`[{"success":{"username":"u"}}]`))
	require.NoError(t, err)

	_, ok := Lookup(v, 1)
	assert.False(t, ok)
	_, ok = Lookup(v, "success")
	assert.False(t, ok)
	_, ok = Lookup(v, 0, "error")
	assert.False(t, ok)
	_, ok = Lookup(v, 0, "success", "username", "deeper")
	assert.False(t, ok)
}

func TestObject_SetKeepsFirstPosition(t *testing.T) {
	obj := NewObject()
	obj.Set("a", 1)
	obj.Set("b", 2)
	obj.Set("a", 3)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"b":2}`, string(data))
	assert.Equal(t, map[string]any{"a": 3, "b": 2}, obj.Map())
}

func TestResponse_Decode(t *testing.T) {
	resp := &Response{Raw: []byte(`{"name":"Hue color lamp 1","state":{"on":true,"bri":254}}`)}

	var light struct {
		Name  string `json:"name"`
		State struct {
			On  bool `json:"on"`
			Bri int  `json:"bri"`
		} `json:"state"`
	}
	require.NoError(t, resp.Decode(&light))
	assert.Equal(t, "Hue color lamp 1", light.Name)
	assert.True(t, light.State.On)
	assert.Equal(t, 254, light.State.Bri)
}

func TestEncodable(t *testing.T) {
	seq2 := func(yield func(string, int) bool) {
		if !yield("a", 1) {
			return
		}
		yield("b", 2)
	}
	var nilSeq func(func(int) bool)

	assert.Equal(t, []any{[]any{"a", 1}, []any{"b", 2}}, encodable(seq2))
	assert.Nil(t, encodable(nilSeq))
	assert.Equal(t, 5, encodable(5))
	assert.Equal(t, []int{1}, encodable([]int{1}))
	assert.Equal(t, []byte("ab"), encodable([]byte("ab")))
}

func TestEncodable_Nested(t *testing.T) {
	obj := NewObject()
	obj.Set("xy", slices.Values([]float64{0.5}))
	obj.Set("bri", 10)

	ch := make(chan int, 1)
	ch <- 7
	close(ch)

	got := encodable(map[string]any{
		"obj":  obj,
		"list": []any{ch, "x"},
	})

	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{[]any{7}, "x"}, m["list"])

	converted, ok := m["obj"].(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"xy", "bri"}, converted.Keys())
	xy, _ := converted.Get("xy")
	assert.Equal(t, []any{0.5}, xy)

	var sendOnly chan<- int = make(chan int)
	assert.Equal(t, sendOnly, encodable(sendOnly))
}
