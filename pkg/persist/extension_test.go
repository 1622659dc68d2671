package persist

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type lure struct {
	Color string `json:"color"`
	Depth int    `json:"depth"`
}

func TestExtensionsNativePath(t *testing.T) {
	x := NewExtensions()
	x.Set(ExtDurability, 7)
	x.Set("Lure", lure{Color: "red", Depth: 2})

	assert.Equal(t, 7, Get[int](x, ExtDurability))
	assert.Equal(t, lure{Color: "red", Depth: 2}, Get[lure](x, "Lure"))

	v, ok := x.Value(ExtDurability)
	require.True(t, ok)
	assert.True(t, v.IsNative())
}

func TestExtensionsNativeOtherType(t *testing.T) {
	x := NewExtensions()
	x.Set(ExtCount, int64(3))
	x.Set("Weight", 2.5)

	assert.Equal(t, 3, Get[int](x, ExtCount))
	assert.Equal(t, float32(2.5), Get[float32](x, "Weight"))
}

func TestExtensionsRawPath(t *testing.T) {
	rec := NewItem("fishing_rod_basic")
	rec.SetExtension(ExtDurability, 7)
	rec.SetExtension("Lure", lure{Color: "blue", Depth: 5})

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded PersistentItem
	require.NoError(t, json.Unmarshal(data, &decoded))

	v, ok := decoded.Extensions.Value(ExtDurability)
	require.True(t, ok)
	assert.False(t, v.IsNative())

	assert.Equal(t, 7, Get[int](decoded.Extensions, ExtDurability))
	assert.Equal(t, lure{Color: "blue", Depth: 5}, Get[lure](decoded.Extensions, "Lure"))

	// 反复读取结果一致
	assert.Equal(t, 7, Get[int](decoded.Extensions, ExtDurability))
}

func TestExtensionsDecodeFailure(t *testing.T) {
	env, logs, m := testEnv(t)
	rec := NewItem("fishing_rod_basic")
	env.Bind(rec)
	rec.Ext().SetRaw(ExtDurability, json.RawMessage(`"worn out"`))

	assert.Equal(t, 0, Get[int](rec.Extensions, ExtDurability))

	failures := logs.FilterMessage("extension decode failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	fields := failures[0].ContextMap()
	assert.Equal(t, ExtDurability, fields["key"])
	assert.Equal(t, "json:string", fields["type"])
	assert.Equal(t, "int", fields["want"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.decodeFailures.WithLabelValues(ExtDurability)))

	_, ok := TryGet[int](rec.Extensions, ExtDurability)
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("extension decode failed").Len())
}

func TestExtensionsNativeDecodeFailure(t *testing.T) {
	env, logs, _ := testEnv(t)
	rec := NewItem("apple")
	env.Bind(rec)
	rec.SetExtension("Lure", lure{Color: "red"})

	assert.Equal(t, 0, Get[int](rec.Extensions, "Lure"))
	failures := logs.FilterMessage("extension decode failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "persist.lure", failures[0].ContextMap()["type"])
}

func TestExtensionsTryGet(t *testing.T) {
	x := NewExtensions()
	x.Set("A", 1)

	v, ok := TryGet[int](x, "B")
	assert.False(t, ok)
	assert.Zero(t, v)

	v, ok = TryGet[int](x, "A")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Zero(t, Get[int](x, "B"))
}

func TestExtensionsOrder(t *testing.T) {
	x := NewExtensions()
	x.Set("c", 1)
	x.Set("a", 2)
	x.Set("b", 3)
	x.Set("a", 4)

	assert.Equal(t, []string{"c", "a", "b"}, x.Keys())
	assert.Equal(t, 3, x.Len())

	data, err := json.Marshal(x)
	require.NoError(t, err)
	assert.Equal(t, `{"c":1,"a":4,"b":3}`, string(data))

	var decoded Extensions
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"y":{"n":[1,2]},"x":null}`), &decoded))
	assert.Equal(t, []string{"z", "y", "x"}, decoded.Keys())
	raw, ok := decoded.Raw("y")
	require.True(t, ok)
	assert.JSONEq(t, `{"n":[1,2]}`, string(raw))

	x.Delete("a")
	x.Delete("missing")
	assert.Equal(t, []string{"c", "b"}, x.Keys())
	assert.False(t, x.Has("a"))
	assert.True(t, x.Has("b"))
}

func TestExtensionsNil(t *testing.T) {
	var x *Extensions
	assert.Zero(t, Get[int](x, "a"))
	_, ok := TryGet[string](x, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, x.Len())
	assert.Nil(t, x.Keys())
	assert.False(t, x.Has("a"))
	x.Delete("a")
}

func TestExtensionsUnmarshal(t *testing.T) {
	var x Extensions
	require.NoError(t, json.Unmarshal([]byte(`null`), &x))
	assert.Equal(t, 0, x.Len())

	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &x))

	var rec PersistentItem
	require.NoError(t, json.Unmarshal([]byte(`{"item_id":"apple","extension_data":null}`), &rec))
	assert.Nil(t, rec.Extensions)
	assert.Zero(t, Get[int](rec.Extensions, ExtCount))
	assert.Equal(t, 1, Count(&rec))
}
