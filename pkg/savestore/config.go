package savestore

import (
	"time"

	"github.com/lk2023060901/xdooria-persist/pkg/checksum"
	"github.com/lk2023060901/xdooria-persist/pkg/compress"
)

// Config 存档存储配置
type Config struct {
	// Backend 存储后端：redis 或 postgres
	Backend     string         `mapstructure:"backend" validate:"required,oneof=redis postgres"`
	Compression compress.Type  `mapstructure:"compression" validate:"omitempty,oneof=none snappy zstd lz4"`
	Checksum    checksum.Type  `mapstructure:"checksum" validate:"omitempty,oneof=none crc32 crc32c xxhash"`
	KeyPrefix   string         `mapstructure:"key_prefix"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig Redis 后端配置，多个地址时使用集群模式
type RedisConfig struct {
	Addrs        []string      `mapstructure:"addrs"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0,lte=15"`
	TTL          time.Duration `mapstructure:"ttl"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PostgresConfig Postgres 后端配置
type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	Table        string        `mapstructure:"table"`
	MaxConns     int32         `mapstructure:"max_conns" validate:"gte=0"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// DefaultConfig 默认配置：本地 Redis，zstd 压缩，xxhash 校验
func DefaultConfig() *Config {
	return &Config{
		Backend:     "redis",
		Compression: compress.TypeZstd,
		Checksum:    checksum.TypeXXHash,
		KeyPrefix:   "xdooria:save:",
		Redis: RedisConfig{
			Addrs:        []string{"localhost:6379"},
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			Table:        "save_blobs",
			MaxConns:     10,
			QueryTimeout: 5 * time.Second,
		},
	}
}
