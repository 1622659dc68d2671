package savestore

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/lk2023060901/xdooria-persist/pkg/config"
	"github.com/lk2023060901/xdooria-persist/pkg/logger"
	"github.com/lk2023060901/xdooria-persist/pkg/persist"
)

// Backend 存档字节的存取后端
type Backend interface {
	Put(ctx context.Context, key string, blob []byte) error
	// Get 键不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store 组合文档编解码、信封与后端
// 何时保存由宿主决定，Store 只负责一次读写
type Store struct {
	backend Backend
	codec   *persist.Codec
	packer  *Packer
	prefix  string
	logger  logger.Logger
}

// StoreOption Store 配置项
type StoreOption func(*Store)

// WithKeyPrefix 设置键前缀
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithStoreLogger 设置 logger
func WithStoreLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New 创建 Store
func New(backend Backend, codec *persist.Codec, packer *Packer, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		codec:   codec,
		packer:  packer,
		logger:  logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("savestore")
	return s
}

// Open 按配置创建后端与 Store
func Open(ctx context.Context, cfg *Config, codec *persist.Codec, l logger.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil config")
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, errors.Mark(err, ErrInvalidConfig)
	}
	packer, err := NewPacker(cfg.Compression, cfg.Checksum)
	if err != nil {
		return nil, err
	}

	var backend Backend
	switch cfg.Backend {
	case "redis":
		backend, err = NewRedisBackend(cfg.Redis)
	case "postgres":
		backend, err = NewPostgresBackend(ctx, cfg.Postgres)
	default:
		err = errors.Wrapf(ErrInvalidConfig, "unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(backend, codec, packer, WithKeyPrefix(cfg.KeyPrefix), WithStoreLogger(l)), nil
}

// PlayerKey 玩家存档键
func (s *Store) PlayerKey(id uuid.UUID) string {
	return s.prefix + string(KindPlayer) + ":" + id.String()
}

// WorldKey 世界存档键
func (s *Store) WorldKey(name string) string {
	return s.prefix + string(KindWorld) + ":" + name
}

// SavePlayer 保存玩家存档
func (s *Store) SavePlayer(ctx context.Context, doc *persist.PlayerSaveDocument) error {
	data, err := s.codec.EncodePlayer(doc)
	if err != nil {
		return err
	}
	return s.put(ctx, s.PlayerKey(doc.PlayerID), KindPlayer, data)
}

// LoadPlayer 读取玩家存档
func (s *Store) LoadPlayer(ctx context.Context, id uuid.UUID) (*persist.PlayerSaveDocument, error) {
	data, codec, err := s.get(ctx, s.PlayerKey(id), KindPlayer)
	if err != nil {
		return nil, err
	}
	return codec.DecodePlayer(data)
}

// DeletePlayer 删除玩家存档
func (s *Store) DeletePlayer(ctx context.Context, id uuid.UUID) error {
	return s.backend.Delete(ctx, s.PlayerKey(id))
}

// SaveWorld 保存世界存档
func (s *Store) SaveWorld(ctx context.Context, doc *persist.WorldSaveDocument) error {
	data, err := s.codec.EncodeWorld(doc)
	if err != nil {
		return err
	}
	return s.put(ctx, s.WorldKey(doc.WorldName), KindWorld, data)
}

// LoadWorld 读取世界存档
func (s *Store) LoadWorld(ctx context.Context, name string) (*persist.WorldSaveDocument, error) {
	data, codec, err := s.get(ctx, s.WorldKey(name), KindWorld)
	if err != nil {
		return nil, err
	}
	return codec.DecodeWorld(data)
}

// DeleteWorld 删除世界存档
func (s *Store) DeleteWorld(ctx context.Context, name string) error {
	return s.backend.Delete(ctx, s.WorldKey(name))
}

// Export 读取已校验的原始信封，不解码文档
func (s *Store) Export(ctx context.Context, kind Kind, id string) ([]byte, error) {
	var key string
	switch kind {
	case KindPlayer:
		playerID, err := uuid.Parse(id)
		if err != nil {
			return nil, errors.Wrapf(persist.ErrInvalidArgument, "player id %q: %v", id, err)
		}
		key = s.PlayerKey(playerID)
	case KindWorld:
		key = s.WorldKey(id)
	default:
		return nil, errors.Wrapf(persist.ErrInvalidArgument, "unknown kind %q", kind)
	}

	blob, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	env, err := OpenEnvelope(blob)
	if err != nil {
		return nil, err
	}
	if env.Kind != kind {
		return nil, errors.Wrapf(ErrKindMismatch, "%s holds a %s document", key, env.Kind)
	}
	if _, _, err := Unpack(blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// Import 解码信封中的文档并以本 Store 的格式保存，返回文档类型与键
func (s *Store) Import(ctx context.Context, blob []byte) (Kind, string, error) {
	env, doc, err := Unpack(blob)
	if err != nil {
		return "", "", err
	}
	codec, err := s.codecFor(env)
	if err != nil {
		return env.Kind, "", err
	}
	switch env.Kind {
	case KindPlayer:
		player, err := codec.DecodePlayer(doc)
		if err != nil {
			return env.Kind, "", err
		}
		return env.Kind, s.PlayerKey(player.PlayerID), s.SavePlayer(ctx, player)
	case KindWorld:
		world, err := codec.DecodeWorld(doc)
		if err != nil {
			return env.Kind, "", err
		}
		return env.Kind, s.WorldKey(world.WorldName), s.SaveWorld(ctx, world)
	default:
		return env.Kind, "", errors.Wrapf(ErrKindMismatch, "unknown kind %q", env.Kind)
	}
}

// Close 关闭后端
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) put(ctx context.Context, key string, kind Kind, doc []byte) error {
	blob, err := s.packer.Pack(kind, s.codec.ContentType(), doc)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, key, blob); err != nil {
		s.logger.ErrorContext(ctx, "save failed", "key", key, "error", err)
		return err
	}
	s.logger.Debug("saved", "key", key, "raw", len(doc), "stored", len(blob), "compression", s.packer.Compression())
	return nil
}

// get 读取并校验信封，返回文档与匹配其内容类型的 Codec
func (s *Store) get(ctx context.Context, key string, kind Kind) ([]byte, *persist.Codec, error) {
	blob, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	env, doc, err := Unpack(blob)
	if err != nil {
		s.logger.ErrorContext(ctx, "corrupt save blob", "key", key, "error", err)
		return nil, nil, err
	}
	if env.Kind != kind {
		return nil, nil, errors.Wrapf(ErrKindMismatch, "%s holds a %s document", key, env.Kind)
	}
	codec, err := s.codecFor(env)
	if err != nil {
		s.logger.ErrorContext(ctx, "unreadable save blob", "key", key, "content_type", env.ContentType, "error", err)
		return nil, nil, err
	}
	return doc, codec, nil
}

func (s *Store) codecFor(env *Envelope) (*persist.Codec, error) {
	codec, err := s.codec.ForContentType(env.ContentType)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s document", env.Kind), ErrUnsupportedEnvelope)
	}
	return codec, nil
}
