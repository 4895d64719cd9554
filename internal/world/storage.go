package world

import (
	"fmt"
	"iter"
	"sort"
	"sync"
)

// TileStorage - разреженное хранилище чанков. Маска занятости каждого тайла
// всегда равна объединению твёрдости 8 соседей и поддерживается инкрементально
// в SetMaterial.
type TileStorage struct {
	mu         sync.RWMutex
	chunkIndex map[TileChunkPosition]int // позиция -> индекс в chunks
	chunks     []*TileChunk
}

// ChunkData - копия материалов чанка для сохранения/загрузки
type ChunkData struct {
	Position  TileChunkPosition
	Materials []Material // ChunkArea значений в порядке смещений
}

// NewTileStorage создаёт пустое хранилище
func NewTileStorage() *TileStorage {
	return &TileStorage{
		chunkIndex: make(map[TileChunkPosition]int),
	}
}

// Get возвращает тайл или false, если его чанк ещё ни разу не записывался
func (s *TileStorage) Get(pos TilePosition) (Tile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk := s.lookup(pos.Chunk())
	if chunk == nil {
		return Tile{}, false
	}
	return chunk.Tiles[pos.Offset()], true
}

// GetMaterial возвращает материал тайла (Empty, если тайла нет)
func (s *TileStorage) GetMaterial(pos TilePosition) Material {
	tile, _ := s.Get(pos)
	return tile.Material
}

// GetOccupancy возвращает маску занятости соседей (пустую, если тайла нет)
func (s *TileStorage) GetOccupancy(pos TilePosition) Occupancy {
	tile, _ := s.Get(pos)
	return tile.Occupancy
}

// SetMaterial записывает материал тайла. Если твёрдость изменилась, в тот же
// момент патчится маска занятости всех 8 соседей (с созданием их чанков).
// Возвращает true, если материал изменился.
func (s *TileStorage) SetMaterial(pos TilePosition, material Material) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setMaterialLocked(pos, material)
}

func (s *TileStorage) setMaterialLocked(pos TilePosition, material Material) bool {
	chunk := s.getOrCreate(pos.Chunk())
	tile := &chunk.Tiles[pos.Offset()]

	previous := tile.Material
	if previous == material {
		return false
	}
	tile.Material = material
	chunk.changeCounter++

	solid := material.IsSolid()
	if previous.IsSolid() == solid {
		return true
	}

	for _, dir := range AllDirections {
		neighbor := pos.Neighbor(dir)
		nchunk := s.getOrCreate(neighbor.Chunk())
		ntile := &nchunk.Tiles[neighbor.Offset()]

		// Для соседа наш тайл лежит в противоположном направлении
		back := dir.Opposite()
		if solid {
			ntile.Occupancy = ntile.Occupancy.With(back)
		} else {
			ntile.Occupancy = ntile.Occupancy.Without(back)
		}
	}
	return true
}

// ChunkCount возвращает количество созданных чанков
func (s *TileStorage) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunkIndex)
}

// HasChunk проверяет, создан ли чанк
func (s *TileStorage) HasChunk(pos TileChunkPosition) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(pos) != nil
}

// Chunk возвращает копию чанка
func (s *TileStorage) Chunk(pos TileChunkPosition) (TileChunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk := s.lookup(pos)
	if chunk == nil {
		return TileChunk{}, false
	}
	return *chunk, true
}

// Chunks перебирает копии всех чанков в порядке создания.
// Копии снимаются под блокировкой до начала обхода.
func (s *TileStorage) Chunks() iter.Seq[TileChunk] {
	s.mu.RLock()
	copies := make([]TileChunk, len(s.chunks))
	for i, chunk := range s.chunks {
		copies[i] = *chunk
	}
	s.mu.RUnlock()

	return func(yield func(TileChunk) bool) {
		for _, chunk := range copies {
			if !yield(chunk) {
				return
			}
		}
	}
}

// ExportChunks возвращает копии материалов чанков, отсортированные по позиции.
// При dirtyOnly возвращаются только чанки с несохранёнными изменениями.
func (s *TileStorage) ExportChunks(dirtyOnly bool) []ChunkData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ChunkData, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if dirtyOnly && !chunk.HasChanges() {
			continue
		}
		result = append(result, ChunkData{
			Position:  chunk.Position,
			Materials: chunk.Materials(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return chunkLess(result[i].Position, result[j].Position)
	})
	return result
}

// ClearChanges сбрасывает счётчики изменений всех чанков
func (s *TileStorage) ClearChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range s.chunks {
		chunk.ClearChanges()
	}
}

// ImportChunk применяет сохранённые материалы через SetMaterial,
// так что маски занятости восстанавливаются тем же путём, что и при редактировании.
func (s *TileStorage) ImportChunk(data ChunkData) error {
	if len(data.Materials) != ChunkArea {
		return fmt.Errorf("chunk %s: expected %d materials, got %d", data.Position, ChunkArea, len(data.Materials))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreate(data.Position)
	for i, material := range data.Materials {
		s.setMaterialLocked(TileFromChunk(data.Position, TileChunkOffset(i)), material)
	}
	return nil
}

// lookup возвращает чанк или nil. Запись в индексе без чанка - нарушение инварианта.
func (s *TileStorage) lookup(pos TileChunkPosition) *TileChunk {
	idx, ok := s.chunkIndex[pos]
	if !ok {
		return nil
	}
	if idx < 0 || idx >= len(s.chunks) || s.chunks[idx] == nil {
		panic(fmt.Sprintf("tile storage: chunk %s indexed at %d but missing", pos, idx))
	}
	return s.chunks[idx]
}

func (s *TileStorage) getOrCreate(pos TileChunkPosition) *TileChunk {
	if chunk := s.lookup(pos); chunk != nil {
		return chunk
	}
	chunk := NewTileChunk(pos)
	s.chunkIndex[pos] = len(s.chunks)
	s.chunks = append(s.chunks, chunk)
	return chunk
}

func chunkLess(a, b TileChunkPosition) bool {
	if a.Layer != b.Layer {
		return a.Layer < b.Layer
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
