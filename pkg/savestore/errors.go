package savestore

import "github.com/cockroachdb/errors"

var (
	// ErrNotFound 存储中不存在该键
	ErrNotFound = errors.New("savestore: not found")
	// ErrBadMagic 数据不是存档信封
	ErrBadMagic = errors.New("savestore: bad envelope magic")
	// ErrUnsupportedEnvelope 信封版本高于当前支持的版本
	ErrUnsupportedEnvelope = errors.New("savestore: unsupported envelope version")
	// ErrChecksumMismatch 负载校验和不匹配
	ErrChecksumMismatch = errors.New("savestore: checksum mismatch")
	// ErrKindMismatch 信封中的文档类型与请求不符
	ErrKindMismatch = errors.New("savestore: document kind mismatch")
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("savestore: invalid config")
)
