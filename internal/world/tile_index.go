package world

import (
	"fmt"
	"iter"
)

// TileIndex - пространственный индекс: позиция тайла -> сущности на нём.
// Индекс не имеет собственной блокировки: доступ сериализует World.
type TileIndex struct {
	tiles map[TilePosition][]EntityID
	count int
}

// NewTileIndex создаёт пустой индекс
func NewTileIndex() *TileIndex {
	return &TileIndex{
		tiles: make(map[TilePosition][]EntityID),
	}
}

// Insert добавляет сущность в список тайла
func (ti *TileIndex) Insert(id EntityID, pos TilePosition) {
	ti.tiles[pos] = append(ti.tiles[pos], id)
	ti.count++
}

// Remove удаляет сущность из списка тайла (swap-remove). Отсутствие - не ошибка.
func (ti *TileIndex) Remove(id EntityID, pos TilePosition) {
	list, ok := ti.tiles[pos]
	if !ok {
		return
	}
	for i, other := range list {
		if other != id {
			continue
		}
		last := len(list) - 1
		list[i] = list[last]
		list = list[:last]
		ti.count--
		if len(list) == 0 {
			delete(ti.tiles, pos)
		} else {
			ti.tiles[pos] = list
		}
		return
	}
}

// Get возвращает сущности на тайле. Срез принадлежит индексу, его нельзя изменять.
func (ti *TileIndex) Get(pos TilePosition) []EntityID {
	return ti.tiles[pos]
}

// Contains проверяет, числится ли сущность на тайле
func (ti *TileIndex) Contains(id EntityID, pos TilePosition) bool {
	for _, other := range ti.tiles[pos] {
		if other == id {
			return true
		}
	}
	return false
}

// Neighborhood перебирает сущности блока 3x3 с центром center (включая центр).
// Порядок внутри тайла не гарантируется.
func (ti *TileIndex) Neighborhood(center TilePosition) iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				pos := TilePosition{Layer: center.Layer, X: center.X + dx, Y: center.Y + dy}
				for _, id := range ti.tiles[pos] {
					if !yield(id) {
						return
					}
				}
			}
		}
	}
}

// Len возвращает общее количество записей в индексе
func (ti *TileIndex) Len() int {
	return ti.count
}

// TileCount возвращает количество непустых тайлов
func (ti *TileIndex) TileCount() int {
	return len(ti.tiles)
}

// String возвращает статистику индекса
func (ti *TileIndex) String() string {
	maxPerTile := 0
	for _, list := range ti.tiles {
		if len(list) > maxPerTile {
			maxPerTile = len(list)
		}
	}
	return fmt.Sprintf("TileIndex: %d entities, %d tiles, max %d entities/tile", ti.count, len(ti.tiles), maxPerTile)
}
