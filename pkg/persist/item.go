package persist

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-persist/pkg/serializer"
)

// 常用扩展字段键
const (
	ExtDurability = "Durability"
	ExtCount      = "Count"
)

// PersistentItem 物品实例的持久化记录
type PersistentItem struct {
	// ItemID 目录键，只在构造过程中短暂为空
	ItemID string `json:"item_id"`
	// PackageIdent 来自外部内容包时的包标识
	PackageIdent *string     `json:"package_ident,omitempty"`
	Extensions   *Extensions `json:"extension_data"`
}

// NewItem 创建记录
func NewItem(itemID string) *PersistentItem {
	return &PersistentItem{ItemID: itemID, Extensions: NewExtensions()}
}

// IsPackage 是否来自外部内容包
func (p *PersistentItem) IsPackage() bool {
	return p.PackageIdent != nil
}

// Ext 返回扩展字段集合，必要时创建
func (p *PersistentItem) Ext() *Extensions {
	if p.Extensions == nil {
		p.Extensions = NewExtensions()
	}
	return p.Extensions
}

// SetExtension 写入扩展字段
func (p *PersistentItem) SetExtension(key string, v any) *PersistentItem {
	p.Ext().Set(key, v)
	return p
}

// Name 目录名称，未命中时为空字符串
func (p *PersistentItem) Name(env *Env) string {
	if entry, ok := env.Resolve(p.ItemID); ok {
		return entry.Name
	}
	return ""
}

// Description 目录描述，未命中时为空字符串
func (p *PersistentItem) Description(env *Env) string {
	if entry, ok := env.Resolve(p.ItemID); ok {
		return entry.Description
	}
	return ""
}

// Icon 目录图标，未命中时为空字符串
func (p *PersistentItem) Icon(env *Env) string {
	if entry, ok := env.Resolve(p.ItemID); ok {
		return entry.Icon
	}
	return ""
}

// MaxStack 最大堆叠数，未命中时为 1
func (p *PersistentItem) MaxStack(env *Env) int {
	if entry, ok := env.Resolve(p.ItemID); ok && entry.MaxStack > 0 {
		return entry.MaxStack
	}
	return 1
}

var storageSerializer serializer.Serializer = serializer.NewJSON()

// Clone 通过存储格式往返得到深拷贝，保留扩展字段的 logger 绑定
func (p *PersistentItem) Clone() (*PersistentItem, error) {
	data, err := storageSerializer.Serialize(p)
	if err != nil {
		return nil, errors.Wrapf(err, "clone %q: encode", p.ItemID)
	}
	out := &PersistentItem{}
	if err := storageSerializer.Deserialize(data, out); err != nil {
		return nil, errors.Wrapf(err, "clone %q: decode", p.ItemID)
	}
	if p.Extensions != nil {
		out.Ext().bind(p.Extensions.logger, p.Extensions.metrics)
	}
	return out, nil
}
