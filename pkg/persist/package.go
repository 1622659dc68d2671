package persist

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/xdooria-persist/pkg/logger"
)

// Package 外部内容包元数据
type Package struct {
	Ident   string   `json:"ident"`
	Title   string   `json:"title"`
	Author  string   `json:"author"`
	Version string   `json:"version"`
	Items   []string `json:"items"`
}

// PackageFetcher 拉取内容包元数据，可能阻塞
type PackageFetcher interface {
	FetchPackage(ctx context.Context, ident string) (*Package, error)
}

// PackageFetcherFunc 函数适配器
type PackageFetcherFunc func(ctx context.Context, ident string) (*Package, error)

func (f PackageFetcherFunc) FetchPackage(ctx context.Context, ident string) (*Package, error) {
	return f(ctx, ident)
}

// PackageCacheConfig 内容包缓存配置
type PackageCacheConfig struct {
	Size int           `mapstructure:"size" validate:"gte=0"`
	TTL  time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// DefaultPackageCacheConfig 默认缓存 256 个包，10 分钟过期
func DefaultPackageCacheConfig() PackageCacheConfig {
	return PackageCacheConfig{Size: 256, TTL: 10 * time.Minute}
}

// PackageResolver 带缓存的内容包解析器
// 同一 ident 的并发请求只触发一次拉取
type PackageResolver struct {
	fetcher PackageFetcher
	group   singleflight.Group
	cache   *expirable.LRU[string, *Package]
	logger  logger.Logger
	metrics *Metrics
}

// NewPackageResolver 创建解析器
func NewPackageResolver(fetcher PackageFetcher, cfg PackageCacheConfig, l logger.Logger, m *Metrics) *PackageResolver {
	if l == nil {
		l = logger.NewNoop()
	}
	return &PackageResolver{
		fetcher: fetcher,
		cache:   expirable.NewLRU[string, *Package](cfg.Size, nil, cfg.TTL),
		logger:  l.Named("persist.package"),
		metrics: m,
	}
}

// Resolve 查询内容包，ctx 取消时立即返回，进行中的拉取继续为其他等待者服务
func (r *PackageResolver) Resolve(ctx context.Context, ident string) (*Package, error) {
	if pkg, ok := r.cache.Get(ident); ok {
		r.metrics.packageLookup(true)
		return pkg, nil
	}
	r.metrics.packageLookup(false)

	ch := r.group.DoChan(ident, func() (interface{}, error) {
		pkg, err := r.fetcher.FetchPackage(context.WithoutCancel(ctx), ident)
		if err != nil {
			return nil, err
		}
		if pkg == nil {
			return nil, errors.Newf("package %q: fetcher returned nothing", ident)
		}
		r.cache.Add(ident, pkg)
		return pkg, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			r.logger.WarnContext(ctx, "package fetch failed", "ident", ident, "error", res.Err)
			return nil, errors.Wrapf(res.Err, "package %q", ident)
		}
		return res.Val.(*Package), nil
	}
}

// Purge 清空缓存
func (r *PackageResolver) Purge() {
	r.cache.Purge()
}

// GetPackage 查询物品所属的内容包
func (p *PersistentItem) GetPackage(ctx context.Context, env *Env) (*Package, error) {
	if !p.IsPackage() {
		return nil, errors.Wrapf(ErrNotPackage, "item %q", p.ItemID)
	}
	env = env.orDefault()
	if env.packages == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "no package resolver configured")
	}
	return env.packages.Resolve(ctx, *p.PackageIdent)
}
