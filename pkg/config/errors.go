package config

import "github.com/cockroachdb/errors"

// 配置加载错误，调用方用 errors.Is 判断
var (
	ErrConfigFileNotFound  = errors.New("config: file not found")
	ErrInvalidConfigFormat = errors.New("config: malformed content")
	ErrKeyNotFound         = errors.New("config: key not set")
	ErrValidationFailed    = errors.New("config: validation failed")
	ErrNilConfig           = errors.New("config: nil target")
)
