package config

import "github.com/spf13/viper"

// Option 配置选项函数
type Option func(*manager)

// WithDefaults 设置默认配置值，key 使用点分路径
func WithDefaults(defaults map[string]any) Option {
	return func(m *manager) {
		for key, value := range defaults {
			m.v.SetDefault(key, value)
		}
	}
}

// WithConfigType 强制配置文件类型（文件无扩展名时使用）
func WithConfigType(configType string) Option {
	return func(m *manager) {
		m.v.SetConfigType(configType)
	}
}

// WithViper 使用外部 viper 实例（命令行 flag 已绑定时）
func WithViper(v *viper.Viper) Option {
	return func(m *manager) {
		m.v = v
	}
}
