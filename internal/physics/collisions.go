package physics

import (
	"fmt"

	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
)

// TargetKind различает, с чем произошло столкновение
type TargetKind uint8

const (
	TargetCollider TargetKind = iota // другая окружность
	TargetWall                       // ребро или угол занятого тайла
)

// Target - цель столкновения (тегированный вариант).
//
// Для TargetCollider заполнены Entity и Position (позиция цели в момент касания).
// Для TargetWall заполнен Tile; Entity валиден только при HasEntity
// (стена создана тайловым коллайдером, а не материалом).
type Target struct {
	Kind      TargetKind
	Entity    world.EntityID
	HasEntity bool
	Position  vec.Vec2Float
	Tile      world.TilePosition
}

// ColliderTarget создаёт цель-окружность
func ColliderTarget(id world.EntityID, position vec.Vec2Float) Target {
	return Target{Kind: TargetCollider, Entity: id, HasEntity: true, Position: position}
}

// WallTarget создаёт цель-стену; tileCollider == nil означает стену из материала
func WallTarget(tile world.TilePosition, tileCollider *world.EntityID) Target {
	t := Target{Kind: TargetWall, Tile: tile}
	if tileCollider != nil {
		t.Entity = *tileCollider
		t.HasEntity = true
	}
	return t
}

// String возвращает читаемое описание цели
func (t Target) String() string {
	switch t.Kind {
	case TargetCollider:
		return fmt.Sprintf("collider#%d", t.Entity)
	case TargetWall:
		if t.HasEntity {
			return fmt.Sprintf("wall %s (tile collider #%d)", t.Tile, t.Entity)
		}
		return fmt.Sprintf("wall %s", t.Tile)
	default:
		return "unknown"
	}
}

// Collision - одно столкновение движущейся окружности
type Collision struct {
	Position vec.Vec2Float // центр движущейся окружности в момент касания
	Normal   vec.Vec2Float // единичный вектор от препятствия к окружности
	Target   Target
	Solid    bool // true, только если обе стороны твёрдые
}

// Collisions - результат шага для одной сущности. Пересчитывается с нуля
// каждый шаг, история не хранится.
type Collisions struct {
	active   []Collision
	next     Collision
	nextTime float64
	hasNext  bool
}

// Active возвращает все столкновения с t <= 0 в порядке обнаружения
func (c *Collisions) Active() []Collision {
	return c.active
}

// Next возвращает ближайшее будущее столкновение (t > 0)
func (c *Collisions) Next() (Collision, bool) {
	return c.next, c.hasNext
}

// NextTime возвращает время ближайшего будущего столкновения
func (c *Collisions) NextTime() (float64, bool) {
	return c.nextTime, c.hasNext
}

// IsEmpty возвращает true, если нет ни активных, ни будущих столкновений
func (c *Collisions) IsEmpty() bool {
	return len(c.active) == 0 && !c.hasNext
}

// Clear очищает результат, сохраняя выделенную память
func (c *Collisions) Clear() {
	c.active = c.active[:0]
	c.next = Collision{}
	c.nextTime = 0
	c.hasNext = false
}

// Add классифицирует столкновение по времени t: t <= 0 попадает в Active,
// t > 0 заменяет Next только при строго меньшем времени (при равенстве
// остаётся обнаруженное раньше).
func (c *Collisions) Add(collision Collision, t float64) {
	if t <= 0 {
		c.active = append(c.active, collision)
		return
	}
	if !c.hasNext || t < c.nextTime {
		c.next = collision
		c.nextTime = t
		c.hasNext = true
	}
}

// Clone возвращает независимую копию
func (c *Collisions) Clone() *Collisions {
	out := *c
	out.active = append([]Collision(nil), c.active...)
	return &out
}
