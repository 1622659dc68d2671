package persist

import (
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// EquipSlot 装备槽位
type EquipSlot string

const (
	EquipTool      EquipSlot = "Tool"
	EquipHat       EquipSlot = "Hat"
	EquipTop       EquipSlot = "Top"
	EquipBottom    EquipSlot = "Bottom"
	EquipShoes     EquipSlot = "Shoes"
	EquipAccessory EquipSlot = "Accessory"
	EquipBackpack  EquipSlot = "Backpack"
)

// InventorySlot 背包格子，Item 为 nil 表示空格
type InventorySlot struct {
	Index int             `json:"index" validate:"gte=0"`
	Item  *PersistentItem `json:"item"`
}

// PlayerSaveDocument 玩家存档
type PlayerSaveDocument struct {
	Version     int                           `json:"version" validate:"gte=1"`
	PlayerID    uuid.UUID                     `json:"player_id"`
	DisplayName string                        `json:"display_name" validate:"max=64"`
	Inventory   []InventorySlot               `json:"inventory" validate:"dive"`
	Equipment   map[EquipSlot]*PersistentItem `json:"equipment"`
	Clovers     int64                         `json:"clovers"`
	LastSaved   time.Time                     `json:"last_saved"`
}

// NewPlayerSaveDocument 创建玩家存档，生成新的玩家 ID 与 slots 个空格
func NewPlayerSaveDocument(displayName string, slots int) *PlayerSaveDocument {
	if slots < 0 {
		slots = 0
	}
	inv := make([]InventorySlot, slots)
	for i := range inv {
		inv[i].Index = i
	}
	return &PlayerSaveDocument{
		Version:     CurrentVersion,
		PlayerID:    uuid.New(),
		DisplayName: displayName,
		Inventory:   inv,
		Equipment:   make(map[EquipSlot]*PersistentItem),
	}
}

// Equip 装备物品，返回被替换的物品
func (d *PlayerSaveDocument) Equip(slot EquipSlot, item *PersistentItem) *PersistentItem {
	if d.Equipment == nil {
		d.Equipment = make(map[EquipSlot]*PersistentItem)
	}
	prev := d.Equipment[slot]
	if item == nil {
		delete(d.Equipment, slot)
	} else {
		d.Equipment[slot] = item
	}
	return prev
}

// Unequip 卸下并返回槽位中的物品
func (d *PlayerSaveDocument) Unequip(slot EquipSlot) *PersistentItem {
	return d.Equip(slot, nil)
}

// Equipped 槽位中的物品
func (d *PlayerSaveDocument) Equipped(slot EquipSlot) *PersistentItem {
	return d.Equipment[slot]
}

// SetSlot 设置第 i 格的物品，返回原物品
func (d *PlayerSaveDocument) SetSlot(i int, item *PersistentItem) (*PersistentItem, error) {
	if i < 0 || i >= len(d.Inventory) {
		return nil, errors.Wrapf(ErrInvalidArgument, "slot %d out of range [0,%d)", i, len(d.Inventory))
	}
	prev := d.Inventory[i].Item
	d.Inventory[i] = InventorySlot{Index: i, Item: item}
	return prev, nil
}

// Slot 第 i 格的物品
func (d *PlayerSaveDocument) Slot(i int) *PersistentItem {
	if i < 0 || i >= len(d.Inventory) {
		return nil
	}
	return d.Inventory[i].Item
}

// OccupiedSlots 非空格子
func (d *PlayerSaveDocument) OccupiedSlots() []InventorySlot {
	var out []InventorySlot
	for _, s := range d.Inventory {
		if s.Item != nil {
			out = append(out, s)
		}
	}
	return out
}

// Items 存档中的全部物品记录：背包在前，装备在后
func (d *PlayerSaveDocument) Items() []*PersistentItem {
	var out []*PersistentItem
	for _, s := range d.Inventory {
		if s.Item != nil {
			out = append(out, s.Item)
		}
	}
	for _, slot := range d.EquippedSlots() {
		out = append(out, d.Equipment[slot])
	}
	return out
}

// Validate 校验玩家 ID 与格子索引
func (d *PlayerSaveDocument) Validate() error {
	if d.PlayerID == uuid.Nil {
		return errors.Wrap(ErrInvalidDocument, "player_id is required")
	}
	seen := make(map[int]struct{}, len(d.Inventory))
	for _, s := range d.Inventory {
		if _, dup := seen[s.Index]; dup {
			return errors.Wrapf(ErrInvalidDocument, "inventory slot %d appears twice", s.Index)
		}
		seen[s.Index] = struct{}{}
	}
	for slot, item := range d.Equipment {
		if item == nil {
			return errors.Wrapf(ErrInvalidDocument, "equipment slot %s is empty", slot)
		}
	}
	return nil
}

// EquippedSlots 有装备的槽位，按名称排序
func (d *PlayerSaveDocument) EquippedSlots() []EquipSlot {
	slots := make([]EquipSlot, 0, len(d.Equipment))
	for s, item := range d.Equipment {
		if item != nil {
			slots = append(slots, s)
		}
	}
	slices.Sort(slots)
	return slots
}
