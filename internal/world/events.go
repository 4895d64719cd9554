package world

// EventType определяет тип события мира
type EventType uint8

const (
	EventTypeTileChange   EventType = iota // Изменение материала тайла
	EventTypeEntitySpawn                   // Создание сущности
	EventTypeEntityMove                    // Смена тайла сущностью
	EventTypeEntityDespawn                 // Удаление сущности
)

// String возвращает имя типа события
func (t EventType) String() string {
	switch t {
	case EventTypeTileChange:
		return "TileChange"
	case EventTypeEntitySpawn:
		return "EntitySpawn"
	case EventTypeEntityMove:
		return "EntityMove"
	case EventTypeEntityDespawn:
		return "EntityDespawn"
	default:
		return "Unknown"
	}
}

// Event представляет собой интерфейс для всех событий
type Event interface {
	GetType() EventType
}

// TileEvent - изменение материала тайла
type TileEvent struct {
	Position TilePosition
	Previous Material
	Material Material
}

// GetType возвращает тип события
func (e TileEvent) GetType() EventType {
	return EventTypeTileChange
}

// EntityEvent - изменение тайловой позиции сущности
type EntityEvent struct {
	EventType EventType
	EntityID  EntityID
	From      TilePosition // нулевая для spawn
	To        TilePosition // нулевая для despawn
}

// GetType возвращает тип события
func (e EntityEvent) GetType() EventType {
	return e.EventType
}

// Observer получает события мира после того, как изменение применено.
// Вызывается вне блокировок мира.
type Observer interface {
	OnWorldEvent(ev Event)
}

// ObserverFunc адаптирует функцию к Observer
type ObserverFunc func(ev Event)

// OnWorldEvent вызывает функцию
func (f ObserverFunc) OnWorldEvent(ev Event) {
	f(ev)
}
