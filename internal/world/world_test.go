package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tilesim/internal/vec"
)

// assertIndexed проверяет инвариант: сущность числится ровно на своём тайле
func assertIndexed(t *testing.T, w *World, id EntityID) {
	t.Helper()
	view, ok := w.Entity(id)
	require.True(t, ok)
	assert.Contains(t, w.EntitiesAt(view.Tile), id)

	w.Read(func(s *Snapshot) {
		entries := 0
		for pos, ids := range s.Index().tiles {
			for _, other := range ids {
				if other == id {
					entries++
					assert.Equal(t, view.Tile, pos)
				}
			}
		}
		assert.Equal(t, 1, entries, "сущность %d должна числиться ровно на одном тайле", id)
	})
}

func TestWorld_SpawnMoveDespawn(t *testing.T) {
	w := NewWorld()
	layer := w.NewLayer()

	id := w.Spawn(layer, vec.Vec2Float{X: 0.5, Y: 0.5})
	assertIndexed(t, w, id)

	require.NoError(t, w.SetPosition(id, vec.Vec2Float{X: 0.9, Y: 0.1}))
	view, _ := w.Entity(id)
	assert.Equal(t, NewTilePosition(layer, 0, 0), view.Tile)

	require.NoError(t, w.SetPosition(id, vec.Vec2Float{X: -0.2, Y: 3.5}))
	view, _ = w.Entity(id)
	assert.Equal(t, NewTilePosition(layer, -1, 3), view.Tile)
	assert.Empty(t, w.EntitiesAt(NewTilePosition(layer, 0, 0)))
	assertIndexed(t, w, id)

	other := w.NewLayer()
	require.NoError(t, w.SetTilePosition(id, NewTilePosition(other, 4, 4)))
	view, _ = w.Entity(id)
	assert.Equal(t, other, view.Layer())
	assert.Equal(t, vec.Vec2Float{X: 4.5, Y: 4.5}, view.Position)
	assertIndexed(t, w, id)

	require.NoError(t, w.Despawn(id))
	assert.Empty(t, w.EntitiesAt(NewTilePosition(other, 4, 4)))
	_, ok := w.Entity(id)
	assert.False(t, ok)

	err := w.SetPosition(id, vec.Vec2Float{})
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestWorld_Components(t *testing.T) {
	w := NewWorld()
	layer := w.NewLayer()
	id := w.Spawn(layer, vec.Vec2Float{X: 1.5, Y: 1.5})

	view, _ := w.Entity(id)
	assert.False(t, view.HasCollider)
	assert.False(t, view.HasVelocity)

	require.NoError(t, w.SetCollider(id, Collider{Radius: 0.3, Solid: true}))
	require.NoError(t, w.SetVelocity(id, vec.Vec2Float{X: 1}))
	require.NoError(t, w.SetColliderDisabled(id, true))

	view, _ = w.Entity(id)
	assert.True(t, view.HasCollider)
	assert.Equal(t, 0.3, view.Collider.Radius)
	assert.True(t, view.HasVelocity)
	assert.True(t, view.Disabled)

	require.NoError(t, w.RemoveCollider(id))
	require.NoError(t, w.ClearVelocity(id))
	view, _ = w.Entity(id)
	assert.False(t, view.HasCollider)
	assert.Equal(t, vec.Vec2Float{}, view.Velocity)

	w.Read(func(s *Snapshot) {
		assert.Empty(t, s.ColliderEntities())
	})
}

func TestWorld_Neighborhood(t *testing.T) {
	w := NewWorld()
	layer := w.NewLayer()
	a := w.Spawn(layer, vec.Vec2Float{X: 0.5, Y: 0.5})
	b := w.Spawn(layer, vec.Vec2Float{X: 1.5, Y: -0.5})
	w.Spawn(layer, vec.Vec2Float{X: 5.5, Y: 0.5})

	assert.ElementsMatch(t, []EntityID{a, b}, w.Neighborhood(NewTilePosition(layer, 0, 0)))
}

func TestWorld_Observer(t *testing.T) {
	w := NewWorld()
	layer := w.NewLayer()

	var events []Event
	w.SetObserver(ObserverFunc(func(ev Event) { events = append(events, ev) }))

	pos := NewTilePosition(layer, 2, 2)
	w.SetMaterial(pos, MaterialWall)
	w.SetMaterial(pos, MaterialWall) // без изменений - без события
	id := w.Spawn(layer, vec.Vec2Float{X: 0.5, Y: 0.5})
	require.NoError(t, w.SetPosition(id, vec.Vec2Float{X: 0.7, Y: 0.5})) // тот же тайл
	require.NoError(t, w.SetPosition(id, vec.Vec2Float{X: 1.7, Y: 0.5}))
	require.NoError(t, w.Despawn(id))

	require.Len(t, events, 4)
	assert.Equal(t, TileEvent{Position: pos, Previous: MaterialEmpty, Material: MaterialWall}, events[0])
	assert.Equal(t, EventTypeEntitySpawn, events[1].GetType())
	move := events[2].(EntityEvent)
	assert.Equal(t, NewTilePosition(layer, 0, 0), move.From)
	assert.Equal(t, NewTilePosition(layer, 1, 0), move.To)
	assert.Equal(t, EventTypeEntityDespawn, events[3].GetType())
}

func TestSnapshot_MustEntityPanics(t *testing.T) {
	w := NewWorld()
	layer := w.NewLayer()
	id := w.Spawn(layer, vec.Vec2Float{})

	// Рассинхронизация индекса: запись без сущности
	w.index.Insert(id+100, NewTilePosition(layer, 0, 0))
	w.Read(func(s *Snapshot) {
		assert.Panics(t, func() {
			for other := range s.Index().Neighborhood(NewTilePosition(layer, 0, 0)) {
				s.MustEntity(other)
			}
		})
	})
}
