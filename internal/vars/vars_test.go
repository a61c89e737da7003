package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_String(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
	}{
		{"String", StringValue("hello"), "hello"},
		{"Empty String", StringValue(""), ""},
		{"Integer Number", NumberValue(42), "42"},
		{"Negative Number", NumberValue(-7), "-7"},
		{"Fractional Number", NumberValue(1.5), "1.5"},
		{"Zero", NumberValue(0), "0"},
		{"Bool True", BoolValue(true), "true"},
		{"Bool False", BoolValue(false), "false"},
		{"Object", StructuredValue(map[string]interface{}{"a": float64(1), "b": "x"}), `{"a":1,"b":"x"}`},
		{"Array", StructuredValue([]interface{}{float64(1), float64(2), float64(3)}), `[1,2,3]`},
		{"Nested", StructuredValue(map[string]interface{}{"user": map[string]interface{}{"id": float64(42)}}), `{"user":{"id":42}}`},
		{"Null", StructuredValue(nil), "null"},
		{"Zero Value", Value{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.String())
		})
	}
}

func TestFromDecoded(t *testing.T) {
	assert.Equal(t, KindString, FromDecoded("s").Kind())
	assert.Equal(t, KindNumber, FromDecoded(float64(3)).Kind())
	assert.Equal(t, KindBool, FromDecoded(true).Kind())
	assert.Equal(t, KindStructured, FromDecoded(map[string]interface{}{}).Kind())
	assert.Equal(t, KindStructured, FromDecoded([]interface{}{}).Kind())
	assert.Equal(t, KindStructured, FromDecoded(nil).Kind())
}

func TestEnvironment_SetGet(t *testing.T) {
	e := NewEnvironment()
	e.SetString("key1", "value1")
	e.Set("key2", NumberValue(2))
	val, ok := e.Get("key1"); assert.True(t, ok); assert.Equal(t, "value1", val.String())
	val, ok = e.Get("key2"); assert.True(t, ok); assert.Equal(t, "2", val.String())
	_, ok = e.Get("nonexistent"); assert.False(t, ok)
	e.SetString("key1", "new_value1"); val, _ = e.Get("key1"); assert.Equal(t, "new_value1", val.String())
}

func TestEnvironment_Clear(t *testing.T) {
	e := NewEnvironment(); e.SetString("a", "1"); e.SetString("b", "2")
	assert.Equal(t, 2, e.Len())
	e.Clear()
	assert.Equal(t, 0, e.Len())
	_, ok := e.Get("a"); assert.False(t, ok)
}

func TestEnvironment_Snapshot(t *testing.T) {
	e := NewEnvironment(); e.SetString("k1", "v1"); e.SetString("k2", "v2")
	all := e.Snapshot()
	assert.Len(t, all, 2)
	all["k3"] = StringValue("v3")
	_, ok := e.Get("k3"); assert.False(t, ok, "Modification to Snapshot result should not affect the environment")
	eEmpty := NewEnvironment(); assert.NotNil(t, eEmpty.Snapshot()); assert.Empty(t, eEmpty.Snapshot())
}

func TestEnvironment_Reset(t *testing.T) {
	e := NewEnvironment(); e.SetString("seed", "value")
	snap := e.Snapshot()
	e.SetString("extracted", "42"); e.SetString("seed", "dirty")
	e.Reset(snap)
	assert.Equal(t, 1, e.Len())
	val, ok := e.Get("seed"); assert.True(t, ok); assert.Equal(t, "value", val.String())
	_, ok = e.Get("extracted"); assert.False(t, ok)
}

func TestEnvironment_MergeStrings(t *testing.T) {
	e := NewEnvironment(); e.SetString("a", "1"); e.SetString("b", "2")
	e.MergeStrings(map[string]string{"b": "new_b", "c": "3", "": "skipped"})
	assert.Equal(t, 3, e.Len())
	val, _ := e.Get("b"); assert.Equal(t, "new_b", val.String())
	val, _ = e.Get("c"); assert.Equal(t, "3", val.String())
	e.MergeStrings(nil)
	assert.Equal(t, 3, e.Len())
}
