package persist

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/lk2023060901/xdooria-persist/pkg/config"
	"github.com/lk2023060901/xdooria-persist/pkg/logger"
	"github.com/lk2023060901/xdooria-persist/pkg/serializer"
)

// CurrentVersion 当前存档格式版本
const CurrentVersion = 1

// Codec 玩家与世界存档的编解码器
type Codec struct {
	env      *Env
	ser      serializer.Serializer
	validate *validator.Validate
	logger   logger.Logger
	now      func() time.Time
}

// CodecOption Codec 配置项
type CodecOption func(*Codec)

// WithSerializer 替换文档序列化器，默认紧凑 JSON
func WithSerializer(s serializer.Serializer) CodecOption {
	return func(c *Codec) {
		if s != nil {
			c.ser = s
		}
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec 创建编解码器
func NewCodec(env *Env, opts ...CodecOption) *Codec {
	env = env.orDefault()
	c := &Codec{
		env:      env,
		ser:      serializer.NewJSON(),
		validate: validator.New(),
		logger:   env.logger.Named("persist.codec"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContentType 文档内容类型
func (c *Codec) ContentType() string {
	return c.ser.ContentType()
}

// ForContentType 返回按 contentType 编解码的 Codec，与当前类型相同时返回自身
func (c *Codec) ForContentType(contentType string) (*Codec, error) {
	if contentType == "" || contentType == c.ContentType() {
		return c, nil
	}
	s, err := serializer.ByContentType(contentType)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "content type %q: %v", contentType, err)
	}
	other := *c
	other.ser = s
	return &other, nil
}

// EncodePlayer 编码玩家存档，写入当前版本与保存时间
func (c *Codec) EncodePlayer(doc *PlayerSaveDocument) ([]byte, error) {
	if doc == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "encode player: nil document")
	}
	stamped := *doc
	stamped.Version = CurrentVersion
	stamped.LastSaved = c.now().UTC()
	if err := c.checkPlayer(&stamped); err != nil {
		return nil, err
	}
	data, err := c.ser.Serialize(&stamped)
	if err != nil {
		return nil, errors.Wrapf(err, "encode player %s", doc.PlayerID)
	}
	doc.Version, doc.LastSaved = stamped.Version, stamped.LastSaved
	c.logger.Debug("player document encoded", "player_id", doc.PlayerID.String(), "bytes", len(data))
	return data, nil
}

// DecodePlayer 解码玩家存档并绑定全部物品记录
func (c *Codec) DecodePlayer(data []byte) (*PlayerSaveDocument, error) {
	doc := &PlayerSaveDocument{}
	if err := c.ser.Deserialize(data, doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode player"), ErrInvalidDocument)
	}
	if err := c.checkVersion(doc.Version); err != nil {
		return nil, err
	}
	if err := c.checkPlayer(doc); err != nil {
		return nil, err
	}
	for _, item := range doc.Items() {
		c.env.Bind(item)
	}
	return doc, nil
}

// EncodeWorld 编码世界存档，写入当前版本与保存时间
func (c *Codec) EncodeWorld(doc *WorldSaveDocument) ([]byte, error) {
	if doc == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "encode world: nil document")
	}
	stamped := *doc
	stamped.Version = CurrentVersion
	stamped.LastSaved = c.now().UTC()
	if err := c.checkWorld(&stamped); err != nil {
		return nil, err
	}
	data, err := c.ser.Serialize(&stamped)
	if err != nil {
		return nil, errors.Wrapf(err, "encode world %s", doc.WorldName)
	}
	doc.Version, doc.LastSaved = stamped.Version, stamped.LastSaved
	c.logger.Debug("world document encoded", "world", doc.WorldName, "placements", len(doc.Placements), "bytes", len(data))
	return data, nil
}

// DecodeWorld 解码世界存档并绑定全部物品记录
func (c *Codec) DecodeWorld(data []byte) (*WorldSaveDocument, error) {
	doc := &WorldSaveDocument{}
	if err := c.ser.Deserialize(data, doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode world"), ErrInvalidDocument)
	}
	if err := c.checkVersion(doc.Version); err != nil {
		return nil, err
	}
	if err := c.checkWorld(doc); err != nil {
		return nil, err
	}
	for _, item := range doc.Items() {
		c.env.Bind(item)
	}
	return doc, nil
}

func (c *Codec) checkVersion(v int) error {
	if v > CurrentVersion {
		return errors.Wrapf(ErrUnsupportedVersion, "version %d, supported up to %d", v, CurrentVersion)
	}
	if v < 1 {
		return errors.Wrapf(ErrInvalidDocument, "version %d", v)
	}
	return nil
}

func (c *Codec) checkPlayer(doc *PlayerSaveDocument) error {
	if err := c.validate.Struct(doc); err != nil {
		return errors.Wrap(ErrInvalidDocument, config.FormatValidationErrors(err))
	}
	return doc.Validate()
}

func (c *Codec) checkWorld(doc *WorldSaveDocument) error {
	if err := c.validate.Struct(doc); err != nil {
		return errors.Wrap(ErrInvalidDocument, config.FormatValidationErrors(err))
	}
	if conflicts := doc.Conflicts(); len(conflicts) > 0 {
		c.env.metrics.placementConflict(len(conflicts))
		c.logger.Error("world document has conflicting placements", "world", doc.WorldName, "conflicts", len(conflicts))
	}
	return doc.Validate()
}
