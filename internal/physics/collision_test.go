package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
)

func TestColliderCollision(t *testing.T) {
	t.Run("Approaching", func(t *testing.T) {
		toi, ok := ColliderCollision(vec.Vec2Float{X: 0.5}, vec.Vec2Float{X: -1}, 0.1)
		assert.True(t, ok)
		assert.InDelta(t, 0.4, toi, 1e-9)
	})

	t.Run("Overlapping", func(t *testing.T) {
		toi, ok := ColliderCollision(vec.Vec2Float{X: 0.05}, vec.Vec2Float{X: 1}, 0.1)
		assert.True(t, ok, "перекрывающиеся окружности касаются сейчас")
		assert.Equal(t, 0.0, toi)
	})

	t.Run("NoRelativeMotion", func(t *testing.T) {
		_, ok := ColliderCollision(vec.Vec2Float{X: 1}, vec.Vec2Float{}, 0.1)
		assert.False(t, ok)
	})

	t.Run("Receding", func(t *testing.T) {
		_, ok := ColliderCollision(vec.Vec2Float{X: 0.5}, vec.Vec2Float{X: 1}, 0.1)
		assert.False(t, ok)
	})

	t.Run("Miss", func(t *testing.T) {
		// Пути проходят мимо: дискриминант отрицательный
		_, ok := ColliderCollision(vec.Vec2Float{X: 0.5, Y: 1}, vec.Vec2Float{X: -1}, 0.1)
		assert.False(t, ok)
	})
}

func TestCornerCollision(t *testing.T) {
	toi, ok := CornerCollision(vec.Vec2Float{X: -0.5, Y: 0}, vec.Vec2Float{X: 1}, 0.1)
	assert.True(t, ok)
	assert.InDelta(t, 0.4, toi, 1e-9)
}

func TestWallCollision(t *testing.T) {
	toi, ok := WallCollision(0.2, 0.1, 0.5)
	assert.True(t, ok)
	assert.InDelta(t, 0.2, toi, 1e-9)

	toi, ok = WallCollision(0.1, 0.2, 0)
	assert.True(t, ok, "уже касается")
	assert.Equal(t, 0.0, toi)

	_, ok = WallCollision(0.5, 0.1, 0)
	assert.False(t, ok, "нет сближения")

	_, ok = WallCollision(0.5, 0.1, -1)
	assert.False(t, ok, "удаляется от стены")
}

func TestCollisionsAdd(t *testing.T) {
	var c Collisions
	assert.True(t, c.IsEmpty())

	first := Collision{Target: ColliderTarget(1, vec.Vec2Float{})}
	second := Collision{Target: ColliderTarget(2, vec.Vec2Float{})}
	third := Collision{Target: WallTarget(world.NewTilePosition(1, 0, 1), nil)}

	c.Add(first, 0.5)
	c.Add(second, 0.5) // равное время: остаётся обнаруженное раньше
	next, ok := c.Next()
	assert.True(t, ok)
	assert.Equal(t, world.EntityID(1), next.Target.Entity)

	c.Add(third, 0.25)
	next, _ = c.Next()
	assert.Equal(t, TargetWall, next.Target.Kind)
	nextTime, _ := c.NextTime()
	assert.Equal(t, 0.25, nextTime)

	c.Add(first, 0)
	c.Add(second, -0.1)
	assert.Len(t, c.Active(), 2, "все активные столкновения сохраняются")

	c.Clear()
	assert.True(t, c.IsEmpty())
	_, ok = c.NextTime()
	assert.False(t, ok)
}

func TestWallTarget(t *testing.T) {
	tile := world.NewTilePosition(3, 0, 1)

	plain := WallTarget(tile, nil)
	assert.False(t, plain.HasEntity)
	assert.Equal(t, tile, plain.Tile)

	door := world.EntityID(42)
	withCollider := WallTarget(tile, &door)
	assert.True(t, withCollider.HasEntity)
	assert.Equal(t, door, withCollider.Entity)
}
