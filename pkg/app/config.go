package app

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lk2023060901/xdooria-persist/pkg/config"
)

// ConfigEnv 未显式指定 --config 时读取的环境变量
const ConfigEnv = "XDOORIA_CONFIG"

// RegisterFlags 在 fs 上注册 -c/--config 与 --log.path
func RegisterFlags(fs *pflag.FlagSet) {
	if fs.Lookup("config") == nil {
		fs.StringP("config", "c", defaultConfigPath(), "path to config file")
	}
	if fs.Lookup("log.path") == nil {
		fs.String("log.path", "", "override log output path")
	}
}

// LoadConfig 按 默认值 < 配置文件 < 环境变量 < 命令行 的优先级加载配置
// fs 必须已经 Parse，返回最终使用的配置文件路径
func LoadConfig(fs *pflag.FlagSet, target any, opts ...config.Option) (string, error) {
	if target == nil {
		return "", config.ErrNilConfig
	}
	RegisterFlags(fs)

	path, _ := fs.GetString("config")
	if !fs.Changed("config") {
		if env := os.Getenv(ConfigEnv); env != "" {
			path = env
		}
	}
	if _, err := os.Stat(path); err != nil {
		return path, errors.Wrapf(config.ErrConfigFileNotFound, "%s", path)
	}

	v := viper.New()
	v.SetEnvPrefix(config.DefaultEnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if fs.Changed("log.path") {
		logPath, _ := fs.GetString("log.path")
		v.Set("log.output_path", logPath)
		v.Set("log.enable_file", true)
	}

	mgr := config.NewManager(append([]config.Option{config.WithViper(v)}, opts...)...)
	if err := mgr.LoadFile(path); err != nil {
		return path, err
	}
	if err := mgr.Unmarshal(target); err != nil {
		return path, err
	}
	if err := config.NewValidator().Validate(target); err != nil {
		return path, err
	}

	if out := v.GetString("log.output_path"); out != "" {
		_ = os.MkdirAll(filepath.Dir(out), 0o755)
	}
	return path, nil
}

func defaultConfigPath() string {
	dir, err := ExecDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "config.yaml")
}

// ExecDir 可执行文件所在目录（解析符号链接）
func ExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}
