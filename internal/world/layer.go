package world

import "fmt"

// Layer - непрозрачный идентификатор, задающий собственное тайловое
// пространство координат (этаж, корабль, подземелье). Позиции сравнимы
// только внутри одного слоя.
type Layer uint64

// NoLayer используется как нулевое значение и не является валидным слоем.
const NoLayer Layer = 0

// String возвращает строковое представление слоя
func (l Layer) String() string {
	return fmt.Sprintf("layer#%d", uint64(l))
}
