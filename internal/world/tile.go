package world

import "fmt"

// Material - материал тайла
type Material uint8

const (
	MaterialEmpty Material = iota // пустой тайл
	MaterialWall                  // стена
)

// IsSolid возвращает true, если материал блокирует движение
func (m Material) IsSolid() bool {
	return m == MaterialWall
}

// String возвращает имя материала
func (m Material) String() string {
	switch m {
	case MaterialEmpty:
		return "empty"
	case MaterialWall:
		return "wall"
	default:
		return fmt.Sprintf("material(%d)", uint8(m))
	}
}

// Tile - одна ячейка сетки: материал и производная маска занятости соседей
type Tile struct {
	Material  Material
	Occupancy Occupancy
}
