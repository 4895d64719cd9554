package world

// TileChunk хранит 32x32 тайла. Создаётся лениво при первой записи
// и никогда не удаляется неявно.
type TileChunk struct {
	Position TileChunkPosition
	Tiles    [ChunkArea]Tile

	changeCounter int // Счетчик изменений с последнего сохранения
}

// NewTileChunk создаёт пустой чанк с указанными координатами
func NewTileChunk(pos TileChunkPosition) *TileChunk {
	return &TileChunk{Position: pos}
}

// Tile возвращает тайл по смещению
func (c *TileChunk) Tile(offset TileChunkOffset) Tile {
	return c.Tiles[offset]
}

// HasChanges возвращает true, если в чанке есть несохранённые изменения материала
func (c *TileChunk) HasChanges() bool {
	return c.changeCounter > 0
}

// ClearChanges сбрасывает счётчик изменений
func (c *TileChunk) ClearChanges() {
	c.changeCounter = 0
}

// Materials возвращает материалы всех тайлов чанка в порядке смещений
func (c *TileChunk) Materials() []Material {
	out := make([]Material, ChunkArea)
	for i := range c.Tiles {
		out[i] = c.Tiles[i].Material
	}
	return out
}

// IsEmpty возвращает true, если в чанке нет ни одного непустого материала
func (c *TileChunk) IsEmpty() bool {
	for i := range c.Tiles {
		if c.Tiles[i].Material != MaterialEmpty {
			return false
		}
	}
	return true
}
