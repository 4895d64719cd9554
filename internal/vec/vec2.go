package vec

import "math"

// Vec2 представляет целочисленные 2D координаты (тайлы, чанки)
type Vec2 struct {
	X, Y int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// FloorDiv делит покомпонентно на степень двойки с округлением к минус бесконечности
func (v Vec2) FloorDiv(shift uint) Vec2 {
	return Vec2{X: v.X >> shift, Y: v.Y >> shift} // арифметический сдвиг
}

// ModEuclid возвращает неотрицательный остаток по маске (size-1)
func (v Vec2) ModEuclid(mask int) Vec2 {
	return Vec2{X: v.X & mask, Y: v.Y & mask}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
