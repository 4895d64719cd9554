package physics

import (
	"math"

	"github.com/annel0/tilesim/internal/vec"
)

// defaultNormal используется, когда направление контакта не определено
// (центры совпадают в момент касания).
var defaultNormal = vec.Vec2Float{X: 1, Y: 0}

// ColliderCollision возвращает время первого касания двух окружностей.
// dp = posA - posB, dv = velA - velB, radius - сумма радиусов.
// Уже перекрывающиеся окружности касаются сейчас: t = 0.
func ColliderCollision(dp, dv vec.Vec2Float, radius float64) (float64, bool) {
	c := dp.LengthSquared() - radius*radius
	if c < 0 {
		return 0, true
	}

	a := dv.LengthSquared()
	if a == 0 {
		return 0, false
	}

	b := 2 * dp.Dot(dv)
	discriminant := b*b - 4*a*c
	if discriminant < 0 {
		return 0, false
	}

	t := (-b - math.Sqrt(discriminant)) / (2 * a)
	if t < 0 {
		return 0, false
	}
	return t, true
}

// CornerCollision - окружность против неподвижной точки нулевого радиуса.
// dp = pos - corner.
func CornerCollision(dp, velocity vec.Vec2Float, radius float64) (float64, bool) {
	return ColliderCollision(dp, velocity, radius)
}

// WallCollision - окружность против плоскости стены. distance - расстояние
// от центра до плоскости, speed - скорость сближения вдоль нормали стены.
func WallCollision(distance, radius, speed float64) (float64, bool) {
	if distance <= radius {
		return 0, true
	}
	if speed <= 0 {
		return 0, false
	}
	return (distance - radius) / speed, true
}

// extrapolate возвращает позицию через время t (отрицательное t не откатывает назад)
func extrapolate(pos, velocity vec.Vec2Float, t float64) vec.Vec2Float {
	return pos.Add(velocity.Mul(math.Max(t, 0)))
}
