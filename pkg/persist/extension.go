package persist

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-persist/pkg/logger"
)

// Value 扩展字段值：本次会话写入的原生值，或从存档读出的原始 JSON
type Value struct {
	native    any
	hasNative bool
	raw       json.RawMessage
}

// NativeValue 包装原生值
func NativeValue(v any) Value {
	return Value{native: v, hasNative: true}
}

// RawValue 包装原始 JSON，首次按类型读取时才解码
func RawValue(raw json.RawMessage) Value {
	return Value{raw: append(json.RawMessage(nil), raw...)}
}

// IsNative 是否为原生值
func (v Value) IsNative() bool {
	return v.hasNative
}

// Encoded 返回值的 JSON 形式
func (v Value) Encoded() (json.RawMessage, error) {
	if v.hasNative {
		return json.Marshal(v.native)
	}
	if len(v.raw) == 0 {
		return json.RawMessage("null"), nil
	}
	return v.raw, nil
}

// typeName 日志中展示的运行时类型
func (v Value) typeName() string {
	if v.hasNative {
		return fmt.Sprintf("%T", v.native)
	}
	raw := bytes.TrimSpace(v.raw)
	if len(raw) == 0 {
		return "json:null"
	}
	switch raw[0] {
	case '{':
		return "json:object"
	case '[':
		return "json:array"
	case '"':
		return "json:string"
	case 't', 'f':
		return "json:bool"
	case 'n':
		return "json:null"
	default:
		return "json:number"
	}
}

// Extensions 按插入顺序保存的扩展字段
// 不加锁，同一记录只允许单个写者
type Extensions struct {
	keys    []string
	values  map[string]Value
	logger  logger.Logger
	metrics *Metrics
}

// NewExtensions 创建空扩展字段集合
func NewExtensions() *Extensions {
	return &Extensions{values: make(map[string]Value)}
}

func (x *Extensions) bind(l logger.Logger, m *Metrics) {
	x.logger = l
	x.metrics = m
}

func (x *Extensions) log() logger.Logger {
	if x.logger == nil {
		return logger.NewNoop()
	}
	return x.logger
}

func (x *Extensions) put(key string, v Value) {
	if x.values == nil {
		x.values = make(map[string]Value)
	}
	if _, ok := x.values[key]; !ok {
		x.keys = append(x.keys, key)
	}
	x.values[key] = v
}

// Set 写入原生值，已存在的键保持原位置
func (x *Extensions) Set(key string, v any) {
	x.put(key, NativeValue(v))
}

// SetRaw 写入原始 JSON
func (x *Extensions) SetRaw(key string, raw json.RawMessage) {
	x.put(key, RawValue(raw))
}

// Value 返回键对应的值
func (x *Extensions) Value(key string) (Value, bool) {
	if x == nil {
		return Value{}, false
	}
	v, ok := x.values[key]
	return v, ok
}

// Raw 返回键对应值的 JSON 形式
func (x *Extensions) Raw(key string) (json.RawMessage, bool) {
	v, ok := x.Value(key)
	if !ok {
		return nil, false
	}
	raw, err := v.Encoded()
	if err != nil {
		x.log().Error("extension encode failed", "key", key, "type", v.typeName(), "error", err)
		return nil, false
	}
	return raw, true
}

// Has 是否存在键
func (x *Extensions) Has(key string) bool {
	_, ok := x.Value(key)
	return ok
}

// Delete 删除键
func (x *Extensions) Delete(key string) {
	if x == nil {
		return
	}
	if _, ok := x.values[key]; !ok {
		return
	}
	delete(x.values, key)
	for i, k := range x.keys {
		if k == key {
			x.keys = append(x.keys[:i], x.keys[i+1:]...)
			break
		}
	}
}

// Keys 按插入顺序返回全部键
func (x *Extensions) Keys() []string {
	if x == nil {
		return nil
	}
	return append([]string(nil), x.keys...)
}

// Len 键数量
func (x *Extensions) Len() int {
	if x == nil {
		return 0
	}
	return len(x.keys)
}

// Get 按类型 T 读取扩展字段
// 原生值类型恰为 T 时直接返回；否则经 JSON 解码。解码失败记录错误日志并返回零值
func Get[T any](x *Extensions, key string) T {
	out, err := decode[T](x, key)
	if err != nil && !errors.Is(err, errMissingKey) {
		v, _ := x.Value(key)
		var want T
		x.log().Error("extension decode failed",
			"key", key,
			"type", v.typeName(),
			"want", fmt.Sprintf("%T", want),
			"error", err,
		)
		x.metrics.decodeFailed(key)
	}
	return out
}

// TryGet 与 Get 相同的读取规则，键不存在或解码失败时返回 false
func TryGet[T any](x *Extensions, key string) (T, bool) {
	out, err := decode[T](x, key)
	if err != nil {
		return out, false
	}
	return out, true
}

var errMissingKey = errors.New("missing key")

func decode[T any](x *Extensions, key string) (T, error) {
	var zero T
	v, ok := x.Value(key)
	if !ok {
		return zero, errMissingKey
	}
	if v.hasNative {
		if t, ok := v.native.(T); ok {
			return t, nil
		}
	}
	raw, err := v.Encoded()
	if err != nil {
		return zero, errors.Mark(errors.Wrapf(err, "encode %q", key), ErrDecodeFailure)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, errors.Mark(errors.Wrapf(err, "decode %q", key), ErrDecodeFailure)
	}
	return out, nil
}

// MarshalJSON 按插入顺序输出 JSON 对象
func (x *Extensions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range x.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		raw, err := x.values[key].Encoded()
		if err != nil {
			return nil, errors.Wrapf(err, "extension %q", key)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalBinary msgpack 等二进制格式下以有序 JSON 对象保存
func (x *Extensions) MarshalBinary() ([]byte, error) {
	return x.MarshalJSON()
}

// UnmarshalBinary 读取 MarshalBinary 的输出
func (x *Extensions) UnmarshalBinary(data []byte) error {
	return x.UnmarshalJSON(data)
}

// UnmarshalJSON 读取 JSON 对象，保留文档中的键顺序，值以原始形式保存
func (x *Extensions) UnmarshalJSON(data []byte) error {
	x.keys = nil
	x.values = make(map[string]Value)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Newf("extension_data: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Newf("extension_data: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "extension_data: key %q", key)
		}
		x.put(key, Value{raw: raw})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
