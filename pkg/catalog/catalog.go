// Package catalog 静态内容目录：物品 ID 到编辑期定义的只读映射
package catalog

import (
	"sort"
	"sync/atomic"
)

// Kind 目录条目类别
type Kind string

const (
	KindItem      Kind = "item"
	KindTool      Kind = "tool"
	KindFish      Kind = "fish"
	KindFurniture Kind = "furniture"
	KindWallpaper Kind = "wallpaper"
	KindFloor     Kind = "floor"
)

// IsTool 是否可生成手持工具
func (k Kind) IsTool() bool {
	return k == KindTool
}

// Entry 目录条目
type Entry struct {
	ID          string `mapstructure:"id" json:"id"`
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
	Icon        string `mapstructure:"icon" json:"icon"`
	Kind        Kind   `mapstructure:"kind" json:"kind"`
	// MaxStack 最大堆叠数，未配置时为 1
	MaxStack int `mapstructure:"max_stack" json:"max_stack"`
	// Prefab 实例化使用的预制体路径
	Prefab        string `mapstructure:"prefab" json:"prefab"`
	MaxDurability int    `mapstructure:"max_durability" json:"max_durability"`
}

// Catalog 目录查询接口
type Catalog interface {
	Resolve(id string) (*Entry, bool)
}

// Table 内存目录表，热更新时整体替换，读取无锁
type Table struct {
	entries atomic.Pointer[map[string]*Entry]
}

var _ Catalog = (*Table)(nil)

// NewTable 创建目录表
func NewTable(entries ...*Entry) *Table {
	t := &Table{}
	t.Replace(entries)
	return t
}

// Resolve 按 ID 查询条目
func (t *Table) Resolve(id string) (*Entry, bool) {
	if t == nil {
		return nil, false
	}
	m := t.entries.Load()
	if m == nil {
		return nil, false
	}
	e, ok := (*m)[id]
	return e, ok
}

// Replace 原子替换全部条目，后出现的同 ID 条目覆盖先出现的
func (t *Table) Replace(entries []*Entry) {
	m := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		m[e.ID] = e
	}
	t.entries.Store(&m)
}

// Len 条目数
func (t *Table) Len() int {
	m := t.entries.Load()
	if m == nil {
		return 0
	}
	return len(*m)
}

// IDs 按字典序返回全部 ID
func (t *Table) IDs() []string {
	m := t.entries.Load()
	if m == nil {
		return nil
	}
	ids := make([]string, 0, len(*m))
	for id := range *m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
