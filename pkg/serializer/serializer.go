package serializer

import (
	"encoding/json"
	"fmt"
)

// Serializer 序列化器接口
// persist 的文档编码与 Clone 往返、savestore 的信封编码都通过它完成
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
	// ContentType 内容类型（写入信封与日志）
	ContentType() string
}

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// JSON JSON 序列化器
type JSON struct {
	// Indent 非空时输出带缩进的 JSON（savetool inspect 使用）
	Indent string
}

// NewJSON 创建紧凑 JSON 序列化器
func NewJSON() *JSON {
	return &JSON{}
}

func (s *JSON) Serialize(v any) ([]byte, error) {
	if s.Indent != "" {
		return json.MarshalIndent(v, "", s.Indent)
	}
	return json.Marshal(v)
}

func (s *JSON) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (s *JSON) ContentType() string {
	return ContentTypeJSON
}

// Msgpack msgpack 序列化器
type Msgpack struct{}

// NewMsgpack 创建 msgpack 序列化器
func NewMsgpack() *Msgpack {
	return &Msgpack{}
}

func (s *Msgpack) Serialize(v any) ([]byte, error) {
	return Encode(v)
}

func (s *Msgpack) Deserialize(data []byte, v any) error {
	return Decode(data, v)
}

func (s *Msgpack) ContentType() string {
	return ContentTypeMsgpack
}

// ByContentType 根据内容类型返回序列化器
func ByContentType(contentType string) (Serializer, error) {
	switch contentType {
	case ContentTypeJSON, "json":
		return NewJSON(), nil
	case ContentTypeMsgpack, "msgpack":
		return NewMsgpack(), nil
	default:
		return nil, fmt.Errorf("serializer: unsupported content type %q", contentType)
	}
}
