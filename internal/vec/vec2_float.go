package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой
type Vec2Float struct {
	X, Y float64
}

// FromVec2 создает Vec2Float из Vec2
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Neg возвращает противоположный вектор
func (v Vec2Float) Neg() Vec2Float {
	return Vec2Float{X: -v.X, Y: -v.Y}
}

// Dot скалярное произведение
func (v Vec2Float) Dot(other Vec2Float) float64 {
	return v.X*other.X + v.Y*other.Y
}

// LengthSquared возвращает квадрат длины вектора
func (v Vec2Float) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.LengthSquared())
}

// IsZero проверяет, что оба компонента равны нулю
func (v Vec2Float) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Normalized возвращает нормализованный вектор.
// Для нулевого вектора возвращается fallback.
func (v Vec2Float) Normalized(fallback Vec2Float) Vec2Float {
	length := v.Length()
	if length == 0 {
		return fallback
	}
	return Vec2Float{X: v.X / length, Y: v.Y / length}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return other.Sub(v).Length()
}
