package persist

import (
	"github.com/lk2023060901/xdooria-persist/pkg/catalog"
	"github.com/lk2023060901/xdooria-persist/pkg/logger"
)

// Env 捕获、恢复与扩展字段解码所需的全部依赖
// 由调用方构造并显式传入，模块内不持有任何全局注册表
type Env struct {
	logger    logger.Logger
	extLogger logger.Logger
	catalog   catalog.Catalog
	links     NodeLinkResolver
	tools     ToolFactory
	prefabs   PrefabFactory
	packages  *PackageResolver
	metrics   *Metrics

	kindRules map[catalog.Kind]MergeRule
	itemRules map[string]MergeRule
}

// Option Env 配置项
type Option func(*Env)

// WithLogger 设置 logger
func WithLogger(l logger.Logger) Option {
	return func(e *Env) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCatalog 设置内容目录
func WithCatalog(c catalog.Catalog) Option {
	return func(e *Env) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *Metrics) Option {
	return func(e *Env) {
		e.metrics = m
	}
}

// WithNodeLinks 设置节点链接解析器
func WithNodeLinks(r NodeLinkResolver) Option {
	return func(e *Env) {
		e.links = r
	}
}

// WithToolFactory 设置工具工厂
func WithToolFactory(f ToolFactory) Option {
	return func(e *Env) {
		e.tools = f
	}
}

// WithPrefabFactory 设置预制体工厂
func WithPrefabFactory(f PrefabFactory) Option {
	return func(e *Env) {
		e.prefabs = f
	}
}

// WithPackages 设置内容包解析器
func WithPackages(r *PackageResolver) Option {
	return func(e *Env) {
		e.packages = r
	}
}

// WithMergeRule 为某一类别注册合并规则
func WithMergeRule(kind catalog.Kind, rule MergeRule) Option {
	return func(e *Env) {
		e.kindRules[kind] = rule
	}
}

// WithItemMergeRule 为单个物品注册合并规则，优先于类别规则
func WithItemMergeRule(itemID string, rule MergeRule) Option {
	return func(e *Env) {
		e.itemRules[itemID] = rule
	}
}

// NewEnv 创建 Env，未设置的依赖使用空实现
func NewEnv(opts ...Option) *Env {
	e := &Env{
		logger:    logger.NewNoop(),
		catalog:   catalog.NewTable(),
		kindRules: make(map[catalog.Kind]MergeRule),
		itemRules: make(map[string]MergeRule),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.extLogger = e.logger.Named("persist.ext")
	return e
}

var defaultEnv = NewEnv()

func (e *Env) orDefault() *Env {
	if e == nil {
		return defaultEnv
	}
	return e
}

// Logger 返回 logger
func (e *Env) Logger() logger.Logger {
	return e.orDefault().logger
}

// Catalog 返回内容目录
func (e *Env) Catalog() catalog.Catalog {
	return e.orDefault().catalog
}

// Metrics 返回指标，可能为 nil
func (e *Env) Metrics() *Metrics {
	return e.orDefault().metrics
}

// Bind 将记录的扩展字段绑定到本 Env 的 logger 与指标
func (e *Env) Bind(rec *PersistentItem) {
	if rec == nil {
		return
	}
	e = e.orDefault()
	rec.Ext().bind(e.extLogger, e.metrics)
}

// Resolve 查询目录条目，未命中时记录错误日志并计数
func (e *Env) Resolve(itemID string) (*catalog.Entry, bool) {
	e = e.orDefault()
	entry, ok := e.catalog.Resolve(itemID)
	if !ok || entry == nil {
		e.logger.Error("catalog lookup failed", "item_id", itemID, "error", ErrCatalogMiss)
		e.metrics.catalogMissed()
		return nil, false
	}
	return entry, true
}

// mergeRule 物品规则优先，其次按目录类别
func (e *Env) mergeRule(itemID string) MergeRule {
	if rule, ok := e.itemRules[itemID]; ok {
		return rule
	}
	if len(e.kindRules) == 0 {
		return nil
	}
	entry, ok := e.catalog.Resolve(itemID)
	if !ok || entry == nil {
		return nil
	}
	return e.kindRules[entry.Kind]
}
