package persist

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-persist/pkg/logger"
)

// Capturer 将运行时实体转换为持久化记录
type Capturer struct {
	env    *Env
	logger logger.Logger
}

// NewCapturer 创建 Capturer
func NewCapturer(env *Env) *Capturer {
	env = env.orDefault()
	return &Capturer{
		env:    env,
		logger: env.logger.Named("persist.capture"),
	}
}

// Create 捕获单个实体
//
// 依次应用：世界物品引用、手持工具引用（仅在 ItemID 未设置时）、世界物体保存回调、
// 通用持久化组件的保存委托、实体自身的 OnSave。若存在节点链接，
// 调用 OnNodeSave 后以链接的记录整体替换结果。
func (c *Capturer) Create(e Entity) (*PersistentItem, error) {
	rec, err := c.create(e)
	c.env.metrics.captured(err)
	return rec, err
}

func (c *Capturer) create(e Entity) (*PersistentItem, error) {
	if e == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "capture: nil entity")
	}
	if !e.Valid() {
		return nil, errors.Wrap(ErrInvalidArgument, "capture: entity is no longer valid")
	}

	rec := NewItem("")
	c.env.Bind(rec)

	f := e.Facets()
	if f.WorldItem != nil {
		rec.ItemID = f.WorldItem.CatalogRef()
	}
	if f.Carriable != nil && rec.ItemID == "" {
		rec.ItemID = f.Carriable.CatalogRef()
	}
	if f.WorldObject != nil && f.WorldObject.OnSave != nil {
		f.WorldObject.OnSave(rec)
	}
	if f.Persistent != nil && f.Persistent.Save != nil {
		f.Persistent.Save(rec)
	}
	if f.ExplicitPersistent != nil {
		f.ExplicitPersistent.OnSave(rec)
	}

	if c.env.links != nil {
		if link := c.env.links.Link(e); link != nil {
			link.OnNodeSave()
			if linked := link.Persistence(); linked != nil {
				rec = linked
				c.env.Bind(rec)
			} else {
				c.logger.Warn("node link returned no record, keeping captured record", "item_id", rec.ItemID)
			}
		}
	}

	if rec.ItemID == "" {
		c.logger.Error("captured record has no item id", "extensions", rec.Ext().Keys())
	}
	return rec, nil
}

// CaptureAll 依次捕获多个实体，单个失败不影响其余实体
// 返回的切片与输入等长，失败位置为 nil
func (c *Capturer) CaptureAll(entities []Entity) ([]*PersistentItem, error) {
	out := make([]*PersistentItem, len(entities))
	var errs []error
	for i, e := range entities {
		rec, err := c.Create(e)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "entity %d", i))
			continue
		}
		out[i] = rec
	}
	if len(errs) > 0 {
		c.logger.Warn("capture cycle had failures", "failed", len(errs), "total", len(entities))
	}
	return out, errors.Join(errs...)
}
