package world

import (
	"fmt"
	"math"

	"github.com/annel0/tilesim/internal/vec"
)

const (
	// ChunkShift - log2 размера чанка
	ChunkShift = 5
	// ChunkSize - сторона чанка в тайлах
	ChunkSize = 1 << ChunkShift
	// ChunkArea - количество тайлов в чанке
	ChunkArea = ChunkSize * ChunkSize

	chunkMask = ChunkSize - 1
)

// TilePosition - целочисленная позиция тайла внутри слоя.
// Значение сравнимо и может использоваться как ключ карты.
type TilePosition struct {
	Layer Layer
	X, Y  int
}

// TileChunkPosition - координаты чанка внутри слоя
type TileChunkPosition struct {
	Layer Layer
	X, Y  int
}

// TileChunkOffset - линейный индекс тайла внутри чанка (y*32 + x)
type TileChunkOffset uint16

// NewTilePosition создаёт позицию тайла
func NewTilePosition(layer Layer, x, y int) TilePosition {
	return TilePosition{Layer: layer, X: x, Y: y}
}

// TileFromWorld переводит непрерывную позицию в позицию тайла.
// Используется округление вниз; отрицательный ноль относится к тайлу -1.
func TileFromWorld(layer Layer, pos vec.Vec2Float) TilePosition {
	return TilePosition{Layer: layer, X: floorCoord(pos.X), Y: floorCoord(pos.Y)}
}

func floorCoord(v float64) int {
	f := math.Floor(v)
	if f == 0 && math.Signbit(v) {
		return -1
	}
	return int(f)
}

// TileFromChunk собирает позицию тайла из чанка и смещения
func TileFromChunk(chunk TileChunkPosition, offset TileChunkOffset) TilePosition {
	local := offset.Local()
	return TilePosition{
		Layer: chunk.Layer,
		X:     chunk.X<<ChunkShift + local.X,
		Y:     chunk.Y<<ChunkShift + local.Y,
	}
}

// Coords возвращает координаты тайла без слоя
func (p TilePosition) Coords() vec.Vec2 {
	return vec.Vec2{X: p.X, Y: p.Y}
}

// Chunk возвращает координаты чанка, содержащего тайл
func (p TilePosition) Chunk() TileChunkPosition {
	c := p.Coords().FloorDiv(ChunkShift)
	return TileChunkPosition{Layer: p.Layer, X: c.X, Y: c.Y}
}

// Offset возвращает смещение тайла внутри его чанка
func (p TilePosition) Offset() TileChunkOffset {
	local := p.Coords().ModEuclid(chunkMask)
	return TileChunkOffset(local.Y*ChunkSize + local.X)
}

// Neighbor возвращает соседний тайл в указанном направлении
func (p TilePosition) Neighbor(d Direction) TilePosition {
	off := d.Offset()
	return TilePosition{Layer: p.Layer, X: p.X + off.X, Y: p.Y + off.Y}
}

// Min возвращает мировую координату нижнего левого угла тайла
func (p TilePosition) Min() vec.Vec2Float {
	return vec.Vec2Float{X: float64(p.X), Y: float64(p.Y)}
}

// Center возвращает мировую координату центра тайла
func (p TilePosition) Center() vec.Vec2Float {
	return vec.Vec2Float{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5}
}

// String возвращает строковое представление позиции
func (p TilePosition) String() string {
	return fmt.Sprintf("%s(%d,%d)", p.Layer, p.X, p.Y)
}

// Local возвращает координаты внутри чанка
func (o TileChunkOffset) Local() vec.Vec2 {
	return vec.Vec2{X: int(o) % ChunkSize, Y: int(o) / ChunkSize}
}

// Origin возвращает позицию тайла с нулевым смещением в чанке
func (c TileChunkPosition) Origin() TilePosition {
	return TileFromChunk(c, 0)
}

// String возвращает строковое представление позиции чанка
func (c TileChunkPosition) String() string {
	return fmt.Sprintf("%s[%d,%d]", c.Layer, c.X, c.Y)
}
