package savestore

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-persist/pkg/checksum"
	"github.com/lk2023060901/xdooria-persist/pkg/compress"
	"github.com/lk2023060901/xdooria-persist/pkg/persist"
	"github.com/lk2023060901/xdooria-persist/pkg/serializer"
)

func newTestStore(t *testing.T) (*Store, *fakeRedis) {
	t.Helper()
	packer, err := NewPacker(compress.TypeZstd, checksum.TypeXXHash)
	require.NoError(t, err)
	fake := newFakeRedis()
	codec := persist.NewCodec(nil, persist.WithClock(func() time.Time {
		return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	}))
	return New(newRedisBackend(fake, 0), codec, packer, WithKeyPrefix("test:")), fake
}

func TestStorePlayer(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	doc := persist.NewPlayerSaveDocument("Isabelle", 3)
	doc.Clovers = 100
	doc.Equip(persist.EquipTool, persist.NewItem("fishing_rod_basic").SetExtension(persist.ExtDurability, 7))
	_, err := doc.SetSlot(2, persist.NewItem("apple").SetExtension(persist.ExtCount, 4))
	require.NoError(t, err)

	require.NoError(t, s.SavePlayer(ctx, doc))
	assert.Contains(t, fake.data, "test:player:"+doc.PlayerID.String())

	loaded, err := s.LoadPlayer(ctx, doc.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), loaded.Clovers)
	assert.Equal(t, 7, persist.Get[int](loaded.Equipped(persist.EquipTool).Extensions, persist.ExtDurability))
	assert.Equal(t, 4, persist.Count(loaded.Slot(2)))

	require.NoError(t, s.DeletePlayer(ctx, doc.PlayerID))
	_, err = s.LoadPlayer(ctx, doc.PlayerID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.LoadPlayer(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreWorld(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	w := persist.NewWorldSaveDocument("island")
	require.NoError(t, w.AddPlacement(persist.WorldItemPlacement{
		ItemID:   "armchair",
		Position: persist.GridPos{X: 1, Y: 2},
		Type:     persist.PlacementFloor,
	}))
	w.SetFloor("kitchen", "floor_tile")

	require.NoError(t, s.SaveWorld(ctx, w))
	loaded, err := s.LoadWorld(ctx, "island")
	require.NoError(t, err)
	assert.Len(t, loaded.Placements, 1)
	assert.Equal(t, "floor_tile", loaded.Floors["kitchen"])

	require.NoError(t, s.DeleteWorld(ctx, "island"))
	assert.True(t, errors.Is(s.DeleteWorld(ctx, "island"), ErrNotFound))
}

func TestStoreRejectsCorruptAndMismatched(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	w := persist.NewWorldSaveDocument("island")
	require.NoError(t, s.SaveWorld(ctx, w))

	// 世界存档放到玩家键下
	id := uuid.New()
	fake.data[s.PlayerKey(id)] = fake.data[s.WorldKey("island")]
	_, err := s.LoadPlayer(ctx, id)
	assert.True(t, errors.Is(err, ErrKindMismatch))

	fake.data[s.WorldKey("island")] = []byte("garbage")
	_, err = s.LoadWorld(ctx, "island")
	assert.True(t, errors.Is(err, ErrBadMagic))
}

func TestStoreSaveInvalidDocument(t *testing.T) {
	s, fake := newTestStore(t)
	err := s.SaveWorld(context.Background(), &persist.WorldSaveDocument{})
	assert.True(t, errors.Is(err, persist.ErrInvalidDocument))
	assert.Empty(t, fake.data)
}

func TestOpenConfig(t *testing.T) {
	_, err := Open(context.Background(), nil, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	cfg := DefaultConfig()
	cfg.Backend = "disk"
	_, err = Open(context.Background(), cfg, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Compression = "brotli"
	_, err = Open(context.Background(), cfg, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	cfg = DefaultConfig()
	store, err := Open(context.Background(), cfg, persist.NewCodec(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "xdooria:save:world:island", store.WorldKey("island"))
	require.NoError(t, store.Close())
}

func TestStoreExportImport(t *testing.T) {
	src, _ := newTestStore(t)
	dst, dstData := newTestStore(t)
	ctx := context.Background()

	doc := persist.NewPlayerSaveDocument("Blathers", 2)
	doc.Clovers = 42
	require.NoError(t, src.SavePlayer(ctx, doc))

	blob, err := src.Export(ctx, KindPlayer, doc.PlayerID.String())
	require.NoError(t, err)

	kind, key, err := dst.Import(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, KindPlayer, kind)
	assert.Equal(t, dst.PlayerKey(doc.PlayerID), key)
	assert.Contains(t, dstData.data, key)

	loaded, err := dst.LoadPlayer(ctx, doc.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.Clovers)

	_, err = src.Export(ctx, KindPlayer, "not-a-uuid")
	assert.True(t, errors.Is(err, persist.ErrInvalidArgument))
	_, err = src.Export(ctx, KindWorld, "nowhere")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = src.Export(ctx, KindWorld, doc.PlayerID.String())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = dst.Import(ctx, []byte("garbage"))
	assert.True(t, errors.Is(err, ErrBadMagic))
}

func TestStoreLoadUsesEnvelopeContentType(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	msgpackCodec := persist.NewCodec(nil, persist.WithSerializer(serializer.NewMsgpack()))
	doc := persist.NewPlayerSaveDocument("Isabelle", 2)
	doc.Equip(persist.EquipTool, persist.NewItem("fishing_rod_basic").SetExtension(persist.ExtDurability, 7))
	data, err := msgpackCodec.EncodePlayer(doc)
	require.NoError(t, err)
	blob, err := s.packer.Pack(KindPlayer, msgpackCodec.ContentType(), data)
	require.NoError(t, err)
	fake.data[s.PlayerKey(doc.PlayerID)] = blob

	loaded, err := s.LoadPlayer(ctx, doc.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, "Isabelle", loaded.DisplayName)
	assert.Equal(t, 7, persist.Get[int](loaded.Equipped(persist.EquipTool).Extensions, persist.ExtDurability))

	kind, key, err := s.Import(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, KindPlayer, kind)
	assert.Equal(t, s.PlayerKey(doc.PlayerID), key)

	odd, err := s.packer.Pack(KindWorld, "text/plain", []byte("island"))
	require.NoError(t, err)
	fake.data[s.WorldKey("island")] = odd
	_, err = s.LoadWorld(ctx, "island")
	assert.True(t, errors.Is(err, ErrUnsupportedEnvelope))
	_, _, err = s.Import(ctx, odd)
	assert.True(t, errors.Is(err, ErrUnsupportedEnvelope))
}
