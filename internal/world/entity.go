package world

import (
	"errors"

	"github.com/annel0/tilesim/internal/vec"
)

// EntityID - уникальный идентификатор сущности
type EntityID uint64

// ErrEntityNotFound возвращается мутаторами для неизвестной сущности
var ErrEntityNotFound = errors.New("entity not found")

// Collider - круговой коллайдер движущейся сущности
type Collider struct {
	Radius float64 // Радиус в тайлах, должен быть > 0
	Solid  bool    // Блокирует ли движение
}

// TileCollider - маркер сущности, занимающей ровно один тайл (дверь, турель).
// Вносит вклад в занятость тайла независимо от его материала.
type TileCollider struct {
	Solid bool
}

// entity - внутренняя запись сущности. Поле tile меняется только через мутаторы
// World, которые синхронно обновляют TileIndex.
type entity struct {
	id       EntityID
	position vec.Vec2Float
	velocity vec.Vec2Float
	tile     TilePosition

	hasVelocity     bool
	collider        *Collider
	tileCollider    *TileCollider
	colliderDisable bool
}

func (e *entity) view() EntityView {
	v := EntityView{
		ID:          e.id,
		Position:    e.position,
		Velocity:    e.velocity,
		HasVelocity: e.hasVelocity,
		Tile:        e.tile,
		Disabled:    e.colliderDisable,
	}
	if e.collider != nil {
		v.Collider = *e.collider
		v.HasCollider = true
	}
	if e.tileCollider != nil {
		v.TileCollider = *e.tileCollider
		v.HasTileCollider = true
	}
	return v
}

// EntityView - неизменяемая копия состояния сущности
type EntityView struct {
	ID          EntityID
	Position    vec.Vec2Float
	Velocity    vec.Vec2Float // нулевая, если HasVelocity == false
	HasVelocity bool
	Tile        TilePosition

	Collider     Collider
	HasCollider  bool
	TileCollider TileCollider

	HasTileCollider bool
	Disabled        bool // маркер ColliderDisabled
}

// Layer возвращает слой, в котором находится сущность
func (v EntityView) Layer() Layer {
	return v.Tile.Layer
}
