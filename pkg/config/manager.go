package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix 环境变量前缀，XDOORIA_STORE_BACKEND -> store.backend
const DefaultEnvPrefix = "XDOORIA"

// Manager 配置管理器接口
type Manager interface {
	// LoadFile 加载配置文件（YAML、JSON、TOML 由扩展名决定）
	LoadFile(path string) error
	// BindEnv 绑定环境变量
	BindEnv(prefix string)
	// Unmarshal 解析整个配置到结构体
	Unmarshal(v any) error
	// UnmarshalKey 解析指定路径的配置，如 "store.redis"
	UnmarshalKey(key string, v any) error
	GetString(key string) string
	IsSet(key string) bool
	AllSettings() map[string]any
}

// manager 基于 viper 的实现
type manager struct {
	v  *viper.Viper
	mu sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager(opts ...Option) Manager {
	m := &manager{v: viper.New()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigFileNotFound, path, err)
	}
	return nil
}

func (m *manager) BindEnv(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prefix != "" {
		m.v.SetEnvPrefix(prefix)
	}
	m.v.AutomaticEnv()
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (m *manager) Unmarshal(v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.v.Unmarshal(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return nil
}

func (m *manager) UnmarshalKey(key string, v any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.v.IsSet(key) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err := m.v.UnmarshalKey(key, v); err != nil {
		return fmt.Errorf("failed to unmarshal key %s: %w", key, err)
	}
	return nil
}

func (m *manager) GetString(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.GetString(key)
}

func (m *manager) IsSet(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.IsSet(key)
}

func (m *manager) AllSettings() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v.AllSettings()
}

// Load 按 默认值 < 配置文件 < 环境变量 的优先级加载配置并校验
// target 需为结构体指针，validate tag 由 Validator 检查
func Load(path string, target any, opts ...Option) error {
	if target == nil {
		return ErrNilConfig
	}

	mgr := NewManager(opts...)
	mgr.BindEnv(DefaultEnvPrefix)
	if err := mgr.LoadFile(path); err != nil {
		return err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return err
	}
	return NewValidator().Validate(target)
}
