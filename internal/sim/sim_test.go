package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/annel0/tilesim/internal/physics"
	"github.com/annel0/tilesim/internal/storage"
	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrate_StopsAtWall(t *testing.T) {
	w := world.NewWorld()
	layer := w.NewLayer()
	for y := -3; y <= 3; y++ {
		w.SetMaterial(world.NewTilePosition(layer, 5, y), world.MaterialWall)
	}

	id := w.Spawn(layer, vec.Vec2Float{X: 2.5, Y: 0.5})
	require.NoError(t, w.SetVelocity(id, vec.Vec2Float{X: 2, Y: 0}))
	require.NoError(t, w.SetCollider(id, world.Collider{Radius: 0.4, Solid: true}))

	s := New(w, physics.NewResolver(w, physics.WithWorkers(1)), Options{Step: 250 * time.Millisecond})
	for i := 0; i < 8; i++ {
		s.Tick(context.Background())
	}

	e, ok := w.Entity(id)
	require.True(t, ok)
	assert.InDelta(t, 4.6, e.Position.X, 1e-9, "остановка в точке контакта")
	assert.InDelta(t, 0.5, e.Position.Y, 1e-9)
	assert.InDelta(t, 0, e.Velocity.X, 1e-9)
	assert.Equal(t, world.NewTilePosition(layer, 4, 0), e.Tile)
}

func TestIntegrate_SlidesAlongWall(t *testing.T) {
	w := world.NewWorld()
	layer := w.NewLayer()
	for y := -5; y <= 10; y++ {
		w.SetMaterial(world.NewTilePosition(layer, 5, y), world.MaterialWall)
	}

	// Уже перекрывает стену и движется по диагонали в неё
	id := w.Spawn(layer, vec.Vec2Float{X: 4.65, Y: 0.5})
	require.NoError(t, w.SetVelocity(id, vec.Vec2Float{X: 1, Y: 1}))
	require.NoError(t, w.SetCollider(id, world.Collider{Radius: 0.4, Solid: true}))

	r := physics.NewResolver(w, physics.WithWorkers(1))
	r.Step(context.Background(), 0.1)
	require.Equal(t, 1, Integrate(w, r, 0.1))

	e, _ := w.Entity(id)
	assert.InDelta(t, 4.65, e.Position.X, 1e-9)
	assert.InDelta(t, 0.6, e.Position.Y, 1e-9)
	assert.Equal(t, vec.Vec2Float{X: 0, Y: 1}, e.Velocity)
}

func TestIntegrate_SkipsDisabledAndStatic(t *testing.T) {
	w := world.NewWorld()
	layer := w.NewLayer()

	disabled := w.Spawn(layer, vec.Vec2Float{X: 0.5, Y: 0.5})
	require.NoError(t, w.SetVelocity(disabled, vec.Vec2Float{X: 1}))
	require.NoError(t, w.SetCollider(disabled, world.Collider{Radius: 0.3, Solid: true}))
	require.NoError(t, w.SetColliderDisabled(disabled, true))

	free := w.Spawn(layer, vec.Vec2Float{X: 10.5, Y: 0.5})
	require.NoError(t, w.SetVelocity(free, vec.Vec2Float{X: 1}))
	require.NoError(t, w.SetCollider(free, world.Collider{Radius: 0.3, Solid: true}))

	r := physics.NewResolver(w)
	r.Step(context.Background(), 0.5)
	assert.Equal(t, 1, Integrate(w, r, 0.5))

	e, _ := w.Entity(disabled)
	assert.Equal(t, 0.5, e.Position.X)
	e, _ = w.Entity(free)
	assert.Equal(t, 11.0, e.Position.X)
	assert.Equal(t, world.NewTilePosition(layer, 11, 0), e.Tile)
}

func TestPopulate_Deterministic(t *testing.T) {
	build := func() (*world.World, PopulateStats) {
		w := world.NewWorld()
		stats, err := Populate(w, 7, 1, 40)
		require.NoError(t, err)
		return w, stats
	}

	a, sa := build()
	b, sb := build()
	assert.Equal(t, sa, sb)
	assert.Equal(t, 40, sa.Colliders+sa.Doors)
	assert.Equal(t, 4, sa.Doors)

	a.Read(func(s *world.Snapshot) {
		for _, e := range s.Entities() {
			other, ok := b.Entity(e.ID)
			require.True(t, ok)
			assert.Equal(t, e, other)
			assert.False(t, a.Storage().GetMaterial(e.Tile).IsSolid(), "сущность не в стене")
		}
	})
}

// recordingSaver запоминает вызовы сохранения
type recordingSaver struct {
	mu    sync.Mutex
	calls []bool
}

func (r *recordingSaver) Save(_ *world.World, dirtyOnly bool) (storage.SaveStats, error) {
	r.mu.Lock()
	r.calls = append(r.calls, dirtyOnly)
	r.mu.Unlock()
	return storage.SaveStats{}, nil
}

func TestRun_TicksAndSavesOnExit(t *testing.T) {
	w := world.NewWorld()
	_, err := Populate(w, 1, 1, 10)
	require.NoError(t, err)

	saver := &recordingSaver{}
	r := physics.NewResolver(w)
	s := New(w, r, Options{Step: 5 * time.Millisecond, Saver: saver, SaveInterval: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Positive(t, r.Tick())
	saver.mu.Lock()
	defer saver.mu.Unlock()
	assert.Equal(t, []bool{false}, saver.calls, "полное сохранение при остановке")
}
