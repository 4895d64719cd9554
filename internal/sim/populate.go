package sim

import (
	"errors"
	"math"
	"math/rand"

	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
)

// Параметры демо-мира
const (
	DefaultColliderRadius = 0.3
	MinSpeed              = 1.0 // тайлов в секунду
	MaxSpeed              = 4.0
	doorEvery             = 10 // каждая N-я сущность - дверь с TileCollider
)

// PopulateStats - итог наполнения мира
type PopulateStats struct {
	Layer     world.Layer
	Walls     int
	Colliders int
	Doors     int
}

// Populate создаёт слой с пещерами в квадрате radius чанков вокруг начала
// координат и расставляет count сущностей по пустым тайлам.
// Результат детерминирован по seed.
func Populate(w *world.World, seed int64, radius, count int) (PopulateStats, error) {
	layer := w.NewLayer()
	stats := PopulateStats{Layer: layer}

	gen := world.NewWallGenerator(seed)
	stats.Walls = gen.GenerateArea(w, layer, -radius, -radius, radius-1, radius-1)

	span := radius * world.ChunkSize
	rng := rand.New(rand.NewSource(seed))
	taken := make(map[world.TilePosition]struct{}, count)

	for i := 0; i < count; i++ {
		tile, ok := freeTile(w, rng, layer, span, taken)
		if !ok {
			return stats, errors.New("no free tiles left")
		}
		taken[tile] = struct{}{}

		id := w.Spawn(layer, tile.Center())
		if i%doorEvery == doorEvery-1 {
			if err := w.SetTileCollider(id, world.TileCollider{Solid: rng.Intn(2) == 0}); err != nil {
				return stats, err
			}
			stats.Doors++
			continue
		}

		angle := rng.Float64() * 2 * math.Pi
		speed := MinSpeed + rng.Float64()*(MaxSpeed-MinSpeed)
		velocity := vec.Vec2Float{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed}

		err := errors.Join(
			w.SetVelocity(id, velocity),
			w.SetCollider(id, world.Collider{Radius: DefaultColliderRadius, Solid: true}),
		)
		if err != nil {
			return stats, err
		}
		stats.Colliders++
	}
	return stats, nil
}

func freeTile(w *world.World, rng *rand.Rand, layer world.Layer, span int, taken map[world.TilePosition]struct{}) (world.TilePosition, bool) {
	for attempt := 0; attempt < 64; attempt++ {
		tile := world.NewTilePosition(layer, rng.Intn(2*span)-span, rng.Intn(2*span)-span)
		if _, busy := taken[tile]; busy {
			continue
		}
		if w.Storage().GetMaterial(tile).IsSolid() {
			continue
		}
		return tile, true
	}
	return world.TilePosition{}, false
}
