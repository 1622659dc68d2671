package persist

import (
	"fmt"
)

// GridPos 网格坐标
type GridPos struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Rotation 八方向朝向，偶数值为四方向
type Rotation uint8

const (
	Rotation0 Rotation = iota
	Rotation45
	Rotation90
	Rotation135
	Rotation180
	Rotation225
	Rotation270
	Rotation315
)

// Degrees 角度
func (r Rotation) Degrees() int {
	return int(r%8) * 45
}

// IsCardinal 是否为四方向之一
func (r Rotation) IsCardinal() bool {
	return r%2 == 0
}

// Rotate 顺时针旋转 steps 个 45 度
func (r Rotation) Rotate(steps int) Rotation {
	n := (int(r) + steps) % 8
	if n < 0 {
		n += 8
	}
	return Rotation(n)
}

func (r Rotation) String() string {
	return fmt.Sprintf("%d°", r.Degrees())
}

// PlacementType 放置面
type PlacementType string

const (
	PlacementFloor   PlacementType = "floor"
	PlacementWall    PlacementType = "wall"
	PlacementSurface PlacementType = "surface"
	PlacementCeiling PlacementType = "ceiling"
)

// Vec3 三维坐标
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Quat 四元数朝向
type Quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// IdentityQuat 无旋转
var IdentityQuat = Quat{W: 1}

// PlacementKey 网格放置的唯一键
type PlacementKey struct {
	Position GridPos
	Type     PlacementType
	Layer    int32
}

func (k PlacementKey) String() string {
	return fmt.Sprintf("(%d,%d)/%s/%d", k.Position.X, k.Position.Y, k.Type, k.Layer)
}

// WorldItemPlacement 网格上放置的物品
type WorldItemPlacement struct {
	ItemID     string          `json:"item_id" validate:"required"`
	PrefabPath string          `json:"prefab_path"`
	Position   GridPos         `json:"position"`
	Rotation   Rotation        `json:"rotation" validate:"lte=7"`
	Type       PlacementType   `json:"type" validate:"oneof=floor wall surface ceiling"`
	Layer      int32           `json:"layer"`
	Item       *PersistentItem `json:"item"`
}

// Key 唯一键
func (p *WorldItemPlacement) Key() PlacementKey {
	return PlacementKey{Position: p.Position, Type: p.Type, Layer: p.Layer}
}

// WorldObjectPlacement 自由摆放的世界物体
type WorldObjectPlacement struct {
	ItemID      string          `json:"item_id" validate:"required"`
	PrefabPath  string          `json:"prefab_path"`
	Position    Vec3            `json:"position"`
	Orientation Quat            `json:"orientation"`
	Item        *PersistentItem `json:"item"`
}
