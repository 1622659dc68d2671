package persist

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lk2023060901/xdooria-persist/pkg/catalog"
	"github.com/lk2023060901/xdooria-persist/pkg/logger"
)

func testCatalog() *catalog.Table {
	return catalog.NewTable(
		&catalog.Entry{ID: "fishing_rod_basic", Name: "Basic Fishing Rod", Kind: catalog.KindTool, MaxStack: 1, MaxDurability: 100, Prefab: "tools/rod_basic"},
		&catalog.Entry{ID: "shovel", Name: "Shovel", Kind: catalog.KindTool, MaxStack: 1},
		&catalog.Entry{ID: "apple", Name: "Apple", Description: "Crunchy.", Icon: "icons/apple.png", Kind: catalog.KindItem, MaxStack: 10},
		&catalog.Entry{ID: "bass", Name: "Sea Bass", Kind: catalog.KindFish, MaxStack: 5},
		&catalog.Entry{ID: "armchair", Name: "Armchair", Kind: catalog.KindFurniture, MaxStack: 1, Prefab: "furniture/armchair"},
	)
}

// testEnv 带观测 logger 与独立指标注册表的 Env
func testEnv(t *testing.T, opts ...Option) (*Env, *observer.ObservedLogs, *Metrics) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	m, err := NewMetrics(prometheus.NewRegistry(), "test")
	require.NoError(t, err)

	base := []Option{
		WithLogger(logger.NewWithCore(core)),
		WithCatalog(testCatalog()),
		WithMetrics(m),
	}
	return NewEnv(append(base, opts...)...), logs, m
}

type fakeEntity struct {
	valid  bool
	facets Facets
}

func (f *fakeEntity) Valid() bool    { return f.valid }
func (f *fakeEntity) Facets() Facets { return f.facets }

type worldItemRef string

func (r worldItemRef) CatalogRef() string { return string(r) }

type fakeCarriable struct {
	ref        string
	durability int
}

func (c *fakeCarriable) CatalogRef() string  { return c.ref }
func (c *fakeCarriable) Durability() int     { return c.durability }
func (c *fakeCarriable) SetDurability(d int) { c.durability = d }

// recordingHook 记录调用顺序的 ExplicitPersistent
type recordingHook struct {
	calls  *[]string
	onSave func(rec *PersistentItem)
	onLoad func(rec *PersistentItem)
}

func (h *recordingHook) OnSave(rec *PersistentItem) {
	*h.calls = append(*h.calls, "explicit.save")
	if h.onSave != nil {
		h.onSave(rec)
	}
}

func (h *recordingHook) OnLoad(rec *PersistentItem) {
	*h.calls = append(*h.calls, "explicit.load")
	if h.onLoad != nil {
		h.onLoad(rec)
	}
}

type stubLink struct {
	saved bool
	rec   *PersistentItem
}

func (l *stubLink) OnNodeSave()                  { l.saved = true }
func (l *stubLink) Persistence() *PersistentItem { return l.rec }

func strPtr(s string) *string { return &s }
