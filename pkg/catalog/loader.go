package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/lk2023060901/xdooria-persist/pkg/logger"
)

// Config 目录配置
type Config struct {
	// DataDir 目录 JSON 文件所在目录，每个文件是一个条目数组
	DataDir string `mapstructure:"data_dir" validate:"required"`
	// HotReload 监听目录变化并重新加载
	HotReload bool `mapstructure:"hot_reload"`
}

// Load 按配置加载目录表
func Load(cfg *Config, l logger.Logger) (*Table, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog: config is required")
	}
	entries, err := LoadDir(cfg.DataDir, l)
	if err != nil {
		return nil, err
	}
	return NewTable(entries...), nil
}

// LoadDir 读取目录下全部 *.json 文件，按文件名顺序解码条目
func LoadDir(dataDir string, l logger.Logger) ([]*Entry, error) {
	if l == nil {
		l = logger.NewNoop()
	}

	files, err := filepath.Glob(filepath.Join(dataDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("catalog: glob %s: %w", dataDir, err)
	}
	if len(files) == 0 {
		if _, statErr := os.Stat(dataDir); statErr != nil {
			return nil, fmt.Errorf("catalog: stat data dir %s: %w", dataDir, statErr)
		}
		l.Warn("catalog data dir has no json files", "path", dataDir)
		return nil, nil
	}
	sort.Strings(files)

	var (
		entries []*Entry
		seen    = make(map[string]string)
	)
	for _, path := range files {
		rows, err := readRows(path)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			e, err := decodeEntry(row)
			if err != nil {
				return nil, fmt.Errorf("catalog: %s row %d: %w", filepath.Base(path), i, err)
			}
			if prev, dup := seen[e.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate id %q in %s (first defined in %s)",
					e.ID, filepath.Base(path), prev)
			}
			seen[e.ID] = filepath.Base(path)
			entries = append(entries, e)
		}
		l.Debug("catalog file loaded", "path", path, "rows", len(rows))
	}

	l.Info("catalog loaded", "dir", dataDir, "files", len(files), "entries", len(entries))
	return entries, nil
}

func readRows(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal %s: %w", path, err)
	}
	return rows, nil
}

func decodeEntry(row map[string]interface{}) (*Entry, error) {
	var e Entry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &e,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(row); err != nil {
		return nil, err
	}

	e.ID = strings.TrimSpace(e.ID)
	if e.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if e.Kind == "" {
		e.Kind = KindItem
	}
	if e.MaxStack <= 0 {
		e.MaxStack = 1
	}
	return &e, nil
}
