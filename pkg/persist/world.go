package persist

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// WorldSaveDocument 世界存档
type WorldSaveDocument struct {
	Version    int                    `json:"version" validate:"gte=1"`
	WorldName  string                 `json:"world_name" validate:"required"`
	Placements []WorldItemPlacement   `json:"placements" validate:"dive"`
	Objects    []WorldObjectPlacement `json:"objects" validate:"dive"`
	// Wallpapers 房间名到墙纸物品 ID
	Wallpapers map[string]string `json:"wallpapers"`
	// Floors 房间名到地板物品 ID
	Floors    map[string]string `json:"floors"`
	LastSaved time.Time         `json:"last_saved"`
}

// PlacementConflict 同一键上的多个放置，Indexes 为其在 Placements 中的下标
type PlacementConflict struct {
	Key     PlacementKey
	Indexes []int
}

// NewWorldSaveDocument 创建世界存档
func NewWorldSaveDocument(worldName string) *WorldSaveDocument {
	return &WorldSaveDocument{
		Version:    CurrentVersion,
		WorldName:  worldName,
		Wallpapers: make(map[string]string),
		Floors:     make(map[string]string),
	}
}

// AddPlacement 添加网格放置，(位置, 类型, 层) 已被占用时返回 ErrPlacementConflict
func (w *WorldSaveDocument) AddPlacement(p WorldItemPlacement) error {
	key := p.Key()
	if _, ok := w.PlacementAt(key); ok {
		return errors.Wrapf(ErrPlacementConflict, "%s already occupied", key)
	}
	w.Placements = append(w.Placements, p)
	return nil
}

// PlacementAt 查询键上的放置
func (w *WorldSaveDocument) PlacementAt(key PlacementKey) (*WorldItemPlacement, bool) {
	for i := range w.Placements {
		if w.Placements[i].Key() == key {
			return &w.Placements[i], true
		}
	}
	return nil, false
}

// RemovePlacement 移除并返回键上的放置
func (w *WorldSaveDocument) RemovePlacement(key PlacementKey) (WorldItemPlacement, bool) {
	for i := range w.Placements {
		if w.Placements[i].Key() == key {
			p := w.Placements[i]
			w.Placements = append(w.Placements[:i], w.Placements[i+1:]...)
			return p, true
		}
	}
	return WorldItemPlacement{}, false
}

// AddObject 添加自由摆放物体
func (w *WorldSaveDocument) AddObject(o WorldObjectPlacement) {
	w.Objects = append(w.Objects, o)
}

// SetWallpaper 设置房间墙纸
func (w *WorldSaveDocument) SetWallpaper(room, itemID string) {
	if w.Wallpapers == nil {
		w.Wallpapers = make(map[string]string)
	}
	w.Wallpapers[room] = itemID
}

// SetFloor 设置房间地板
func (w *WorldSaveDocument) SetFloor(room, itemID string) {
	if w.Floors == nil {
		w.Floors = make(map[string]string)
	}
	w.Floors[room] = itemID
}

// Conflicts 列出所有被多次占用的键，按首次出现顺序
func (w *WorldSaveDocument) Conflicts() []PlacementConflict {
	index := make(map[PlacementKey]int)
	var out []PlacementConflict
	seen := make(map[PlacementKey]int, len(w.Placements))
	for i := range w.Placements {
		key := w.Placements[i].Key()
		first, dup := seen[key]
		if !dup {
			seen[key] = i
			continue
		}
		if n, ok := index[key]; ok {
			out[n].Indexes = append(out[n].Indexes, i)
			continue
		}
		index[key] = len(out)
		out = append(out, PlacementConflict{Key: key, Indexes: []int{first, i}})
	}
	return out
}

// Items 存档中的全部物品记录
func (w *WorldSaveDocument) Items() []*PersistentItem {
	var out []*PersistentItem
	for i := range w.Placements {
		if w.Placements[i].Item != nil {
			out = append(out, w.Placements[i].Item)
		}
	}
	for i := range w.Objects {
		if w.Objects[i].Item != nil {
			out = append(out, w.Objects[i].Item)
		}
	}
	return out
}

// Validate 校验放置唯一性
func (w *WorldSaveDocument) Validate() error {
	conflicts := w.Conflicts()
	if len(conflicts) == 0 {
		return nil
	}
	keys := make([]string, len(conflicts))
	for i, c := range conflicts {
		keys[i] = c.Key.String()
	}
	return errors.Wrapf(ErrPlacementConflict, "%d duplicated placements: %s", len(conflicts), strings.Join(keys, ", "))
}
