package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedOccupancy пересчитывает маску с нуля по материалам соседей
func expectedOccupancy(s *TileStorage, pos TilePosition) Occupancy {
	occ := OccupancyNone
	for _, dir := range AllDirections {
		if s.GetMaterial(pos.Neighbor(dir)).IsSolid() {
			occ = occ.With(dir)
		}
	}
	return occ
}

func TestTileStorage_Defaults(t *testing.T) {
	s := NewTileStorage()
	pos := NewTilePosition(1, 5, 5)

	_, ok := s.Get(pos)
	assert.False(t, ok, "чанк ещё не записывался")
	assert.Equal(t, MaterialEmpty, s.GetMaterial(pos))
	assert.Equal(t, OccupancyNone, s.GetOccupancy(pos))
	assert.Equal(t, 0, s.ChunkCount())
}

func TestTileStorage_SetMaterialPatchesNeighbors(t *testing.T) {
	s := NewTileStorage()
	center := NewTilePosition(1, 10, 10)

	require.True(t, s.SetMaterial(center, MaterialWall))
	assert.Equal(t, MaterialWall, s.GetMaterial(center))
	assert.Equal(t, OccupancyNone, s.GetOccupancy(center))

	for _, dir := range AllDirections {
		neighbor := center.Neighbor(dir)
		assert.Equal(t, dir.Opposite().Flag(), s.GetOccupancy(neighbor), "сосед %s", dir)
	}

	assert.False(t, s.SetMaterial(center, MaterialWall), "повторная запись не меняет тайл")

	require.True(t, s.SetMaterial(center, MaterialEmpty))
	for _, dir := range AllDirections {
		assert.Equal(t, OccupancyNone, s.GetOccupancy(center.Neighbor(dir)))
	}
}

func TestTileStorage_AcrossChunkBoundary(t *testing.T) {
	s := NewTileStorage()
	corner := NewTilePosition(1, 0, 0) // соседи лежат в 4 чанках

	s.SetMaterial(corner, MaterialWall)
	assert.Equal(t, 4, s.ChunkCount())

	tile, ok := s.Get(NewTilePosition(1, -1, -1))
	require.True(t, ok)
	assert.True(t, tile.Occupancy.Has(NorthEast))
	assert.True(t, s.GetOccupancy(NewTilePosition(1, -1, 0)).Has(East))
	assert.True(t, s.GetOccupancy(NewTilePosition(1, 0, -1)).Has(North))

	// Другой слой не затронут
	assert.Equal(t, OccupancyNone, s.GetOccupancy(NewTilePosition(2, -1, -1)))
}

func TestTileStorage_OccupancyInvariant(t *testing.T) {
	s := NewTileStorage()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		pos := NewTilePosition(1, rng.Intn(12)-6+32, rng.Intn(12)-6)
		material := MaterialEmpty
		if rng.Intn(2) == 0 {
			material = MaterialWall
		}
		s.SetMaterial(pos, material)
	}

	for x := 32 - 8; x <= 32+8; x++ {
		for y := -8; y <= 8; y++ {
			pos := NewTilePosition(1, x, y)
			assert.Equal(t, expectedOccupancy(s, pos), s.GetOccupancy(pos), "tile %s", pos)
		}
	}
}

func TestTileStorage_ExportImport(t *testing.T) {
	src := NewTileStorage()
	walls := []TilePosition{
		NewTilePosition(1, 0, 0),
		NewTilePosition(1, 31, 31),
		NewTilePosition(1, 32, 0),
		NewTilePosition(2, -5, 7),
	}
	for _, p := range walls {
		src.SetMaterial(p, MaterialWall)
	}

	dirty := src.ExportChunks(true)
	assert.NotEmpty(t, dirty)
	src.ClearChanges()
	assert.Empty(t, src.ExportChunks(true))

	dst := NewTileStorage()
	for _, chunk := range src.ExportChunks(false) {
		require.NoError(t, dst.ImportChunk(chunk))
	}

	for x := -8; x <= 40; x++ {
		for y := -2; y <= 34; y++ {
			for _, layer := range []Layer{1, 2} {
				pos := NewTilePosition(layer, x, y)
				assert.Equal(t, src.GetMaterial(pos), dst.GetMaterial(pos))
				assert.Equal(t, src.GetOccupancy(pos), dst.GetOccupancy(pos))
			}
		}
	}

	err := dst.ImportChunk(ChunkData{Materials: make([]Material, 3)})
	assert.Error(t, err)
}

func TestTileStorage_CorruptIndexPanics(t *testing.T) {
	s := NewTileStorage()
	pos := NewTilePosition(1, 0, 0)
	s.SetMaterial(pos, MaterialWall)

	s.chunks[s.chunkIndex[pos.Chunk()]] = nil
	assert.Panics(t, func() { s.GetMaterial(pos) })
}

func TestTileStorage_ChunkCopies(t *testing.T) {
	s := NewTileStorage()
	pos := NewTilePosition(1, 3, 4)
	s.SetMaterial(pos, MaterialWall)

	chunk, ok := s.Chunk(pos.Chunk())
	require.True(t, ok)
	assert.Equal(t, MaterialWall, chunk.Tile(pos.Offset()).Material)

	chunk.Tiles[pos.Offset()].Material = MaterialEmpty
	assert.Equal(t, MaterialWall, s.GetMaterial(pos), "копия не влияет на хранилище")

	_, ok = s.Chunk(TileChunkPosition{Layer: 1, X: 9, Y: 9})
	assert.False(t, ok)

	seen := 0
	for c := range s.Chunks() {
		assert.True(t, s.HasChunk(c.Position))
		seen++
	}
	assert.Equal(t, s.ChunkCount(), seen)
}
