package world

import (
	"strings"

	"github.com/annel0/tilesim/internal/vec"
)

// Direction - одно из 8 направлений компаса. Север соответствует +Y.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest

	DirectionCount // всегда последний
)

// AllDirections перечисляет все направления в порядке обхода по часовой стрелке
var AllDirections = [DirectionCount]Direction{
	North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest,
}

var directionOffsets = [DirectionCount]vec.Vec2{
	North:     {X: 0, Y: 1},
	NorthEast: {X: 1, Y: 1},
	East:      {X: 1, Y: 0},
	SouthEast: {X: 1, Y: -1},
	South:     {X: 0, Y: -1},
	SouthWest: {X: -1, Y: -1},
	West:      {X: -1, Y: 0},
	NorthWest: {X: -1, Y: 1},
}

var directionNames = [DirectionCount]string{
	"N", "NE", "E", "SE", "S", "SW", "W", "NW",
}

// Offset возвращает смещение соседнего тайла в этом направлении
func (d Direction) Offset() vec.Vec2 {
	return directionOffsets[d]
}

// Opposite возвращает противоположное направление
func (d Direction) Opposite() Direction {
	return (d + 4) % DirectionCount
}

// IsCardinal true для N, E, S, W
func (d Direction) IsCardinal() bool {
	return d%2 == 0
}

// Adjacent возвращает два основных направления, образующих диагональ.
// Для основных направлений возвращает соседние диагонали.
func (d Direction) Adjacent() (Direction, Direction) {
	return (d + DirectionCount - 1) % DirectionCount, (d + 1) % DirectionCount
}

// Flag возвращает бит направления в маске занятости
func (d Direction) Flag() Occupancy {
	return Occupancy(1) << d
}

// Normal возвращает единичный вектор направления (для диагоналей не нормирован).
func (d Direction) Normal() vec.Vec2Float {
	return vec.FromVec2(directionOffsets[d])
}

// String возвращает краткое имя направления
func (d Direction) String() string {
	if d >= DirectionCount {
		return "?"
	}
	return directionNames[d]
}

// Occupancy - битовая маска: бит D установлен, если сосед в направлении D твёрдый.
type Occupancy uint8

// OccupancyNone - все соседи пусты
const OccupancyNone Occupancy = 0

// Has проверяет бит направления
func (o Occupancy) Has(d Direction) bool {
	return o&d.Flag() != 0
}

// With возвращает маску с установленным битом
func (o Occupancy) With(d Direction) Occupancy {
	return o | d.Flag()
}

// Without возвращает маску со сброшенным битом
func (o Occupancy) Without(d Direction) Occupancy {
	return o &^ d.Flag()
}

// Union объединяет маски
func (o Occupancy) Union(other Occupancy) Occupancy {
	return o | other
}

// String перечисляет занятые направления, например "N|E"
func (o Occupancy) String() string {
	if o == OccupancyNone {
		return "none"
	}
	parts := make([]string, 0, DirectionCount)
	for _, d := range AllDirections {
		if o.Has(d) {
			parts = append(parts, d.String())
		}
	}
	return strings.Join(parts, "|")
}
