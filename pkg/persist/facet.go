package persist

import "github.com/lk2023060901/xdooria-persist/pkg/catalog"

// Entity 运行时实体，由宿主的实体/组件系统实现
type Entity interface {
	// Valid 实体是否仍然存活
	Valid() bool
	// Facets 返回实体暴露的持久化相关能力，未暴露的字段保持为 nil
	Facets() Facets
}

// Facets 实体能力集合，Capture 按固定顺序检查
type Facets struct {
	WorldItem          WorldItemFacet
	Carriable          CarriableFacet
	WorldObject        *WorldObjectFacet
	Persistent         *PersistentFacet
	ExplicitPersistent ExplicitPersistent
}

// WorldItemFacet 放置在世界网格上的物品
type WorldItemFacet interface {
	CatalogRef() string
}

// CarriableFacet 可手持的工具
type CarriableFacet interface {
	CatalogRef() string
	Durability() int
	SetDurability(d int)
}

// WorldObjectFacet 自由摆放的世界物体
type WorldObjectFacet struct {
	OnSave func(rec *PersistentItem)
}

// PersistentFacet 通用持久化组件，保存/加载委托均可为空
type PersistentFacet struct {
	Save func(rec *PersistentItem)
	Load func(rec *PersistentItem)
}

// ExplicitPersistent 实体自身实现的保存/加载钩子，优先级高于 PersistentFacet
type ExplicitPersistent interface {
	OnSave(rec *PersistentItem)
	OnLoad(rec *PersistentItem)
}

// NodeLink 场景节点链接，链接存在时其记录是权威结果
type NodeLink interface {
	OnNodeSave()
	Persistence() *PersistentItem
}

// NodeLinkResolver 查询实体对应的节点链接，没有时返回 nil
type NodeLinkResolver interface {
	Link(e Entity) NodeLink
}

// NodeLinkResolverFunc 函数适配器
type NodeLinkResolverFunc func(e Entity) NodeLink

func (f NodeLinkResolverFunc) Link(e Entity) NodeLink {
	return f(e)
}

// ToolFactory 根据目录条目生成手持工具实体
type ToolFactory interface {
	SpawnTool(entry *catalog.Entry) (Entity, error)
}

// ToolFactoryFunc 函数适配器
type ToolFactoryFunc func(entry *catalog.Entry) (Entity, error)

func (f ToolFactoryFunc) SpawnTool(entry *catalog.Entry) (Entity, error) {
	return f(entry)
}

// PrefabFactory 根据预制体路径实例化实体
type PrefabFactory interface {
	Instantiate(prefab string) (Entity, error)
}

// PrefabFactoryFunc 函数适配器
type PrefabFactoryFunc func(prefab string) (Entity, error)

func (f PrefabFactoryFunc) Instantiate(prefab string) (Entity, error) {
	return f(prefab)
}

// applyLoadHooks 先调用通用组件的加载委托，再调用实体自身的 OnLoad
func applyLoadHooks(f Facets, rec *PersistentItem) {
	if f.Persistent != nil && f.Persistent.Load != nil {
		f.Persistent.Load(rec)
	}
	if f.ExplicitPersistent != nil {
		f.ExplicitPersistent.OnLoad(rec)
	}
}
