package persist

import (
	"github.com/cockroachdb/errors"
)

// SpawnCarriable 根据记录生成手持工具实体
// 条目不是工具时返回 ErrInvalidKind，且不调用任何工厂
func (p *PersistentItem) SpawnCarriable(env *Env) (Entity, error) {
	env = env.orDefault()

	entry, ok := env.Resolve(p.ItemID)
	if !ok {
		err := errors.Mark(errors.Wrapf(ErrCatalogMiss, "spawn %q", p.ItemID), ErrInvalidKind)
		env.metrics.spawned("unknown", err)
		return nil, err
	}
	kind := string(entry.Kind)
	if !entry.Kind.IsTool() {
		err := errors.Wrapf(ErrInvalidKind, "spawn %q: kind %s is not a tool", p.ItemID, entry.Kind)
		env.metrics.spawned(kind, err)
		return nil, err
	}
	if env.tools == nil {
		err := errors.Wrap(ErrInvalidArgument, "spawn: no tool factory configured")
		env.metrics.spawned(kind, err)
		return nil, err
	}

	e, err := env.tools.SpawnTool(entry)
	if err == nil && (e == nil || !e.Valid()) {
		err = errors.Wrapf(ErrInvalidArgument, "spawn %q: factory returned no live entity", p.ItemID)
	}
	if err != nil {
		env.metrics.spawned(kind, err)
		return nil, errors.Wrapf(err, "spawn %q", p.ItemID)
	}

	f := e.Facets()
	if f.Carriable != nil {
		if d, ok := TryGet[int](p.Extensions, ExtDurability); ok {
			f.Carriable.SetDurability(d)
		}
	}
	env.Bind(p)
	applyLoadHooks(f, p)

	env.metrics.spawned(kind, nil)
	env.logger.Debug("carriable spawned", "item_id", p.ItemID)
	return e, nil
}

// RestorePlacement 实例化网格放置记录的预制体并加载其物品记录
func RestorePlacement(env *Env, p *WorldItemPlacement) (Entity, error) {
	if p == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "restore: nil placement")
	}
	return restorePrefab(env, p.PrefabPath, p.ItemID, p.Item)
}

// RestoreObject 实例化自由摆放物体的预制体并加载其物品记录
func RestoreObject(env *Env, o *WorldObjectPlacement) (Entity, error) {
	if o == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "restore: nil object")
	}
	return restorePrefab(env, o.PrefabPath, o.ItemID, o.Item)
}

func restorePrefab(env *Env, prefab, itemID string, rec *PersistentItem) (Entity, error) {
	env = env.orDefault()
	if env.prefabs == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "restore: no prefab factory configured")
	}
	if prefab == "" {
		if entry, ok := env.Resolve(itemID); ok {
			prefab = entry.Prefab
		}
	}
	if prefab == "" {
		return nil, errors.Wrapf(ErrInvalidArgument, "restore %q: no prefab path", itemID)
	}

	e, err := env.prefabs.Instantiate(prefab)
	if err == nil && (e == nil || !e.Valid()) {
		err = errors.Wrapf(ErrInvalidArgument, "restore %q: prefab %s produced no live entity", itemID, prefab)
	}
	if err != nil {
		env.metrics.spawned("placement", err)
		return nil, errors.Wrapf(err, "restore %q", itemID)
	}

	if rec == nil {
		rec = NewItem(itemID)
	}
	env.Bind(rec)
	applyLoadHooks(e.Facets(), rec)

	env.metrics.spawned("placement", nil)
	return e, nil
}
