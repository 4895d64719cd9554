package world

import (
	"github.com/annel0/tilesim/internal/util"
)

// Константы генерации по умолчанию
const (
	DefaultNoiseScale    = 0.08 // Масштаб шума (сглаженность пещер)
	DefaultWallThreshold = 0.62 // Выше - стена
)

// WallGenerator заполняет чанки стенами по шуму Перлина
type WallGenerator struct {
	Seed          int64
	NoiseScale    float64
	WallThreshold float64

	noise *util.Noise
}

// NewWallGenerator создаёт генератор стен
func NewWallGenerator(seed int64) *WallGenerator {
	return &WallGenerator{
		Seed:          seed,
		NoiseScale:    DefaultNoiseScale,
		WallThreshold: DefaultWallThreshold,
		noise:         util.NewNoise(seed),
	}
}

// IsWall определяет, должна ли стоять стена в тайле (детерминированно по сиду)
func (g *WallGenerator) IsWall(x, y int) bool {
	value := g.noise.Sample2D(float64(x)*g.NoiseScale, float64(y)*g.NoiseScale)
	return value > g.WallThreshold
}

// GenerateChunk записывает стены одного чанка через World.SetMaterial,
// так что маски занятости соседей поддерживаются обычным путём.
// Возвращает количество поставленных стен.
func (g *WallGenerator) GenerateChunk(w *World, chunk TileChunkPosition) int {
	walls := 0
	origin := chunk.Origin()
	for y := 0; y < ChunkSize; y++ {
		for x := 0; x < ChunkSize; x++ {
			if !g.IsWall(origin.X+x, origin.Y+y) {
				continue
			}
			w.SetMaterial(NewTilePosition(chunk.Layer, origin.X+x, origin.Y+y), MaterialWall)
			walls++
		}
	}
	return walls
}

// GenerateArea генерирует прямоугольник чанков [min, max] включительно
func (g *WallGenerator) GenerateArea(w *World, layer Layer, minX, minY, maxX, maxY int) int {
	walls := 0
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			walls += g.GenerateChunk(w, TileChunkPosition{Layer: layer, X: cx, Y: cy})
		}
	}
	return walls
}
