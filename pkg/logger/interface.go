package logger

import "context"

// Leveled 按等级输出 key-value 结构化日志
type Leveled interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Contextual 带 ctx 的变体，ctx 已取消时附带 ctx_err 字段
type Contextual interface {
	InfoContext(ctx context.Context, msg string, keysAndValues ...interface{})
	WarnContext(ctx context.Context, msg string, keysAndValues ...interface{})
	ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{})
}

// Logger 各模块依赖的日志接口，由调用方显式注入
type Logger interface {
	Leveled
	Contextual

	// Named 派生具名 logger，名称以点号级联，如 persist.capture
	Named(name string) Logger
	WithFields(keysAndValues ...interface{}) Logger
	Sync() error
}
