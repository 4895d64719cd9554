package physics

import (
	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
)

// candidateKind - вид соседней сущности для разрешения коллизий
type candidateKind uint8

const (
	candidateNone       candidateKind = iota // не участвует (нет коллайдера или отключена)
	candidateDynamic                         // круговой коллайдер
	candidateTileStatic                      // тайловый коллайдер
)

// candidate строится один раз на каждую найденную сущность и
// дальше обрабатывается через switch по kind.
type candidate struct {
	kind     candidateKind
	id       world.EntityID
	tile     world.TilePosition
	position vec.Vec2Float
	velocity vec.Vec2Float
	radius   float64
	solid    bool
}

func classify(v world.EntityView) candidate {
	c := candidate{id: v.ID, tile: v.Tile}
	switch {
	case v.Disabled:
		c.kind = candidateNone
	case v.HasTileCollider:
		c.kind = candidateTileStatic
		c.solid = v.TileCollider.Solid
	case v.HasCollider:
		c.kind = candidateDynamic
		c.position = v.Position
		c.velocity = v.Velocity
		c.radius = v.Collider.Radius
		c.solid = v.Collider.Solid
	default:
		c.kind = candidateNone
	}
	return c
}

// tileOccupant - первый тайловый коллайдер, найденный в направлении
type tileOccupant struct {
	id      world.EntityID
	solid   bool
	present bool
}

// wallContext - занятость соседей тайла движущейся сущности на этот шаг
type wallContext struct {
	material  world.Occupancy // из TileStorage
	occupancy world.Occupancy // material + тайловые коллайдеры
	occupants [world.DirectionCount]tileOccupant
}

func gatherWalls(s *world.Snapshot, tile world.TilePosition) wallContext {
	wc := wallContext{material: s.Storage().GetOccupancy(tile)}
	wc.occupancy = wc.material

	index := s.Index()
	for _, dir := range world.AllDirections {
		for _, id := range index.Get(tile.Neighbor(dir)) {
			c := classify(s.MustEntity(id))
			if c.kind != candidateTileStatic {
				continue
			}
			wc.occupancy = wc.occupancy.With(dir)
			if !wc.occupants[dir].present {
				wc.occupants[dir] = tileOccupant{id: c.id, solid: c.solid, present: true}
			}
		}
	}
	return wc
}

// solid: стена из материала твёрдая всегда, иначе решает тайловый коллайдер
func (wc *wallContext) solid(dir world.Direction) bool {
	return wc.material.Has(dir) || wc.occupants[dir].solid
}

func (wc *wallContext) occupant(dir world.Direction) *world.EntityID {
	if !wc.occupants[dir].present {
		return nil
	}
	id := wc.occupants[dir].id
	return &id
}

// exposedCorner: диагональ занята, а оба прилегающих ребра свободны
func (wc *wallContext) exposedCorner(dir world.Direction) bool {
	if !wc.occupancy.Has(dir) {
		return false
	}
	a, b := dir.Adjacent()
	return !wc.occupancy.Has(a) && !wc.occupancy.Has(b)
}
