package sim

import (
	"github.com/annel0/tilesim/internal/physics"
	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
)

type motion struct {
	id       world.EntityID
	position vec.Vec2Float
	velocity vec.Vec2Float
}

// Integrate сдвигает все подвижные сущности на dt по результатам последнего
// шага резолвера. Твёрдое будущее столкновение останавливает сущность в точке
// контакта, а составляющая скорости против нормали гасится (скольжение).
// Возвращает число сдвинутых сущностей.
func Integrate(w *world.World, r *physics.Resolver, dt float64) int {
	var moves []motion

	w.Read(func(s *world.Snapshot) {
		for _, id := range s.ColliderEntities() {
			e := s.MustEntity(id)
			if !e.HasVelocity || e.Disabled || e.HasTileCollider {
				continue
			}
			if m, ok := advance(e, r, dt); ok {
				moves = append(moves, m)
			}
		}
	})

	// Мутаторы берут блокировку мира, поэтому применяются вне Read
	for _, m := range moves {
		if err := w.SetVelocity(m.id, m.velocity); err != nil {
			continue
		}
		_ = w.SetPosition(m.id, m.position)
	}
	return len(moves)
}

func advance(e world.EntityView, r *physics.Resolver, dt float64) (motion, bool) {
	velocity := e.Velocity
	c, ok := r.Collisions(e.ID)
	if !ok {
		return motion{}, false
	}

	for _, hit := range c.Active() {
		if hit.Solid {
			velocity = slide(velocity, hit.Normal)
		}
	}

	if next, ok := c.Next(); ok && next.Solid {
		return motion{
			id:       e.ID,
			position: next.Position,
			velocity: slide(velocity, next.Normal),
		}, true
	}

	if velocity.IsZero() && e.Velocity.IsZero() {
		return motion{}, false
	}
	return motion{
		id:       e.ID,
		position: e.Position.Add(velocity.Mul(dt)),
		velocity: velocity,
	}, true
}

// slide убирает составляющую скорости, направленную против нормали
func slide(v, normal vec.Vec2Float) vec.Vec2Float {
	if d := v.Dot(normal); d < 0 {
		return v.Sub(normal.Mul(d))
	}
	return v
}
