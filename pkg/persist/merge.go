package persist

// MergeRule 某类物品的堆叠合并规则
// 调用 Merge 前必须先由 CanMerge 确认
type MergeRule interface {
	CanMerge(env *Env, dst, src *PersistentItem) bool
	Merge(env *Env, dst, src *PersistentItem)
}

// CanMergeWith 是否可与 other 合并，未注册规则时为 true
func (p *PersistentItem) CanMergeWith(env *Env, other *PersistentItem) bool {
	if other == nil {
		return false
	}
	env = env.orDefault()
	rule := env.mergeRule(p.ItemID)
	if rule == nil {
		return true
	}
	return rule.CanMerge(env, p, other)
}

// MergeWith 把 other 合并进 p，未注册规则时不做任何事
func (p *PersistentItem) MergeWith(env *Env, other *PersistentItem) {
	if other == nil {
		return
	}
	env = env.orDefault()
	if rule := env.mergeRule(p.ItemID); rule != nil {
		rule.Merge(env, p, other)
	}
}

// StackRule 按 Count 扩展字段堆叠，上限为目录的最大堆叠数
// 超出上限的部分留在 src 中
type StackRule struct{}

// Count 数量，未设置时为 1
func Count(p *PersistentItem) int {
	if n, ok := TryGet[int](p.Extensions, ExtCount); ok {
		return n
	}
	return 1
}

func (StackRule) CanMerge(env *Env, dst, src *PersistentItem) bool {
	if dst.ItemID != src.ItemID {
		return false
	}
	return Count(dst) < dst.MaxStack(env)
}

func (StackRule) Merge(env *Env, dst, src *PersistentItem) {
	limit := dst.MaxStack(env)
	total := Count(dst) + Count(src)
	if total > limit {
		dst.SetExtension(ExtCount, limit)
		src.SetExtension(ExtCount, total-limit)
		return
	}
	dst.SetExtension(ExtCount, total)
	src.SetExtension(ExtCount, 0)
}

// DurabilityRule 耐久不同的同种工具不可合并，合并本身不改变状态
type DurabilityRule struct{}

func (DurabilityRule) CanMerge(_ *Env, dst, src *PersistentItem) bool {
	if dst.ItemID != src.ItemID {
		return false
	}
	a, aok := TryGet[int](dst.Extensions, ExtDurability)
	b, bok := TryGet[int](src.Extensions, ExtDurability)
	return aok == bok && a == b
}

func (DurabilityRule) Merge(*Env, *PersistentItem, *PersistentItem) {}
