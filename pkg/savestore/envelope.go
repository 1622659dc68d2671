// Package savestore 存档二进制信封与可选的存储后端
package savestore

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-persist/pkg/checksum"
	"github.com/lk2023060901/xdooria-persist/pkg/compress"
	"github.com/lk2023060901/xdooria-persist/pkg/serializer"
)

const (
	// Magic 信封标识
	Magic = "XDSV"
	// EnvelopeVersion 当前信封格式版本
	EnvelopeVersion = 1
)

// Kind 信封中的文档类型
type Kind string

const (
	KindPlayer Kind = "player"
	KindWorld  Kind = "world"
)

// Envelope 存档信封，msgpack 编码
// Payload 为压缩后的文档，Sum 针对压缩后的字节计算
type Envelope struct {
	Magic       string        `codec:"magic"`
	Version     int           `codec:"version"`
	Kind        Kind          `codec:"kind"`
	ContentType string        `codec:"content_type"`
	Compression compress.Type `codec:"compression"`
	Checksum    checksum.Type `codec:"checksum"`
	Sum         uint64        `codec:"sum"`
	RawSize     int           `codec:"raw_size"`
	Payload     []byte        `codec:"payload"`
}

// Packer 按固定的压缩与校验算法打包文档
type Packer struct {
	compressor compress.Compressor
	hasher     checksum.Hasher
}

// NewPacker 创建打包器
func NewPacker(ct compress.Type, cs checksum.Type) (*Packer, error) {
	c, err := compress.New(ct)
	if err != nil {
		return nil, errors.Mark(err, ErrInvalidConfig)
	}
	h, err := checksum.New(cs)
	if err != nil {
		return nil, errors.Mark(err, ErrInvalidConfig)
	}
	return &Packer{compressor: c, hasher: h}, nil
}

// Compression 压缩算法
func (p *Packer) Compression() compress.Type {
	return p.compressor.Type()
}

// Pack 压缩文档并封装为信封
func (p *Packer) Pack(kind Kind, contentType string, doc []byte) ([]byte, error) {
	payload, err := p.compressor.Compress(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "compress %s document", kind)
	}
	env := &Envelope{
		Magic:       Magic,
		Version:     EnvelopeVersion,
		Kind:        kind,
		ContentType: contentType,
		Compression: p.compressor.Type(),
		Checksum:    p.hasher.Type(),
		Sum:         p.hasher.Sum(payload),
		RawSize:     len(doc),
		Payload:     payload,
	}
	return serializer.Encode(env)
}

// OpenEnvelope 解码信封头，不校验也不解压负载
func OpenEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := serializer.Decode(data, env); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode envelope"), ErrBadMagic)
	}
	if env.Magic != Magic {
		return nil, errors.Wrapf(ErrBadMagic, "got %q", env.Magic)
	}
	if env.Version > EnvelopeVersion || env.Version < 1 {
		return nil, errors.Wrapf(ErrUnsupportedEnvelope, "version %d", env.Version)
	}
	return env, nil
}

// Unpack 解码信封，先校验再解压，返回信封头与原始文档
func Unpack(data []byte) (*Envelope, []byte, error) {
	env, err := OpenEnvelope(data)
	if err != nil {
		return nil, nil, err
	}
	h, err := checksum.New(env.Checksum)
	if err != nil {
		return nil, nil, errors.Wrap(ErrUnsupportedEnvelope, err.Error())
	}
	if !h.Verify(env.Payload, env.Sum) {
		return nil, nil, errors.Wrapf(ErrChecksumMismatch, "%s document, %s", env.Kind, env.Checksum)
	}
	c, err := compress.New(env.Compression)
	if err != nil {
		return nil, nil, errors.Wrap(ErrUnsupportedEnvelope, err.Error())
	}
	doc, err := c.Decompress(env.Payload)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "decompress %s document", env.Kind)
	}
	if env.RawSize > 0 && len(doc) != env.RawSize {
		return nil, nil, errors.Wrapf(ErrChecksumMismatch, "size %d, want %d", len(doc), env.RawSize)
	}
	return env, doc, nil
}

// Repack 用新的打包器重新封装已有信封
func Repack(data []byte, p *Packer) ([]byte, error) {
	env, doc, err := Unpack(data)
	if err != nil {
		return nil, err
	}
	return p.Pack(env.Kind, env.ContentType, doc)
}
