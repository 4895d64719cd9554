package world

import (
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/tilesim/internal/logging"
	"github.com/annel0/tilesim/internal/vec"
)

// World владеет тайловым хранилищем, индексом тайлов и сущностями.
// Все мутаторы сущностей синхронно поддерживают TileIndex: сущность числится
// на тайле T тогда и только тогда, когда её тайловая позиция равна T.
type World struct {
	mu       sync.RWMutex
	storage  *TileStorage
	index    *TileIndex
	entities map[EntityID]*entity

	nextEntityID uint64
	nextLayer    uint64

	observer Observer
	logger   *logging.Logger
}

// NewWorld создаёт пустой мир
func NewWorld() *World {
	return &World{
		storage:      NewTileStorage(),
		index:        NewTileIndex(),
		entities:     make(map[EntityID]*entity),
		nextEntityID: 1,
		nextLayer:    1,
		logger:       logging.GetComponentLogger("world"),
	}
}

// SetObserver устанавливает получателя событий мира (nil отключает)
func (w *World) SetObserver(o Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observer = o
}

// Storage возвращает тайловое хранилище для чтения (рендер, связность регионов).
// Запись материалов следует выполнять через World.SetMaterial.
func (w *World) Storage() *TileStorage {
	return w.storage
}

// NewLayer выделяет новый идентификатор слоя
func (w *World) NewLayer() Layer {
	w.mu.Lock()
	defer w.mu.Unlock()

	layer := Layer(w.nextLayer)
	w.nextLayer++
	return layer
}

// SetMaterial записывает материал тайла и уведомляет наблюдателя
func (w *World) SetMaterial(pos TilePosition, material Material) {
	// Блокировка мира не даёт изменить тайлы посреди шага разрешения коллизий
	w.mu.Lock()
	previous := w.storage.GetMaterial(pos)
	changed := w.storage.SetMaterial(pos, material)
	w.mu.Unlock()

	if !changed {
		return
	}
	w.logger.Trace("tile %s: %s -> %s", pos, previous, material)
	w.notify(TileEvent{Position: pos, Previous: previous, Material: material})
}

// Spawn создаёт сущность в слое layer в позиции pos
func (w *World) Spawn(layer Layer, pos vec.Vec2Float) EntityID {
	w.mu.Lock()
	id := EntityID(w.nextEntityID)
	w.nextEntityID++
	w.spawnLocked(id, TileFromWorld(layer, pos), pos)
	w.mu.Unlock()

	w.notify(EntityEvent{EventType: EventTypeEntitySpawn, EntityID: id, To: TileFromWorld(layer, pos)})
	return id
}

// SpawnWithID создаёт сущность с заданным идентификатором (загрузка снапшота).
func (w *World) SpawnWithID(id EntityID, tile TilePosition, pos vec.Vec2Float) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.entities[id]; exists {
		return fmt.Errorf("entity %d already exists", id)
	}
	w.spawnLocked(id, tile, pos)
	if uint64(id) >= w.nextEntityID {
		w.nextEntityID = uint64(id) + 1
	}
	if uint64(tile.Layer) >= w.nextLayer {
		w.nextLayer = uint64(tile.Layer) + 1
	}
	return nil
}

func (w *World) spawnLocked(id EntityID, tile TilePosition, pos vec.Vec2Float) {
	e := &entity{id: id, position: pos, tile: tile}
	w.entities[id] = e
	w.index.Insert(id, tile)
}

// Despawn удаляет сущность вместе с её записью в индексе
func (w *World) Despawn(id EntityID) error {
	w.mu.Lock()
	e, ok := w.entities[id]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("despawn %d: %w", id, ErrEntityNotFound)
	}
	w.index.Remove(id, e.tile)
	delete(w.entities, id)
	from := e.tile
	w.mu.Unlock()

	w.notify(EntityEvent{EventType: EventTypeEntityDespawn, EntityID: id, From: from})
	return nil
}

// SetPosition перемещает сущность внутри её слоя. Если тайл изменился,
// индекс обновляется в том же вызове.
func (w *World) SetPosition(id EntityID, pos vec.Vec2Float) error {
	w.mu.Lock()
	e, ok := w.entities[id]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("set position %d: %w", id, ErrEntityNotFound)
	}
	e.position = pos
	from := e.tile
	moved := w.setTileLocked(e, TileFromWorld(e.tile.Layer, pos))
	to := e.tile
	w.mu.Unlock()

	if moved {
		w.notify(EntityEvent{EventType: EventTypeEntityMove, EntityID: id, From: from, To: to})
	}
	return nil
}

// SetTilePosition помещает сущность в центр тайла tile (возможно, в другом слое)
func (w *World) SetTilePosition(id EntityID, tile TilePosition) error {
	w.mu.Lock()
	e, ok := w.entities[id]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("set tile position %d: %w", id, ErrEntityNotFound)
	}
	e.position = tile.Center()
	from := e.tile
	moved := w.setTileLocked(e, tile)
	w.mu.Unlock()

	if moved {
		w.notify(EntityEvent{EventType: EventTypeEntityMove, EntityID: id, From: from, To: tile})
	}
	return nil
}

func (w *World) setTileLocked(e *entity, tile TilePosition) bool {
	if e.tile == tile {
		return false
	}
	w.index.Remove(e.id, e.tile)
	e.tile = tile
	w.index.Insert(e.id, tile)
	return true
}

// SetVelocity задаёт скорость сущности
func (w *World) SetVelocity(id EntityID, velocity vec.Vec2Float) error {
	return w.update(id, "set velocity", func(e *entity) {
		e.velocity = velocity
		e.hasVelocity = true
	})
}

// ClearVelocity удаляет компонент скорости
func (w *World) ClearVelocity(id EntityID) error {
	return w.update(id, "clear velocity", func(e *entity) {
		e.velocity = vec.Vec2Float{}
		e.hasVelocity = false
	})
}

// SetCollider добавляет или заменяет круговой коллайдер
func (w *World) SetCollider(id EntityID, c Collider) error {
	return w.update(id, "set collider", func(e *entity) {
		e.collider = &c
	})
}

// RemoveCollider удаляет круговой коллайдер
func (w *World) RemoveCollider(id EntityID) error {
	return w.update(id, "remove collider", func(e *entity) {
		e.collider = nil
	})
}

// SetTileCollider добавляет или заменяет тайловый коллайдер
func (w *World) SetTileCollider(id EntityID, c TileCollider) error {
	return w.update(id, "set tile collider", func(e *entity) {
		e.tileCollider = &c
	})
}

// RemoveTileCollider удаляет тайловый коллайдер
func (w *World) RemoveTileCollider(id EntityID) error {
	return w.update(id, "remove tile collider", func(e *entity) {
		e.tileCollider = nil
	})
}

// SetColliderDisabled добавляет (true) или снимает (false) маркер ColliderDisabled
func (w *World) SetColliderDisabled(id EntityID, disabled bool) error {
	return w.update(id, "set collider disabled", func(e *entity) {
		e.colliderDisable = disabled
	})
}

func (w *World) update(id EntityID, op string, fn func(e *entity)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", op, id, ErrEntityNotFound)
	}
	fn(e)
	return nil
}

// Entity возвращает копию состояния сущности
func (w *World) Entity(id EntityID) (EntityView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.entities[id]
	if !ok {
		return EntityView{}, false
	}
	return e.view(), true
}

// EntityCount возвращает количество сущностей
func (w *World) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// EntitiesAt возвращает копию списка сущностей на тайле
func (w *World) EntitiesAt(pos TilePosition) []EntityID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]EntityID(nil), w.index.Get(pos)...)
}

// Neighborhood возвращает сущности блока 3x3 вокруг center
func (w *World) Neighborhood(center TilePosition) []EntityID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var result []EntityID
	for id := range w.index.Neighborhood(center) {
		result = append(result, id)
	}
	return result
}

// Read выполняет fn с read-блокировкой мира. Во время fn мутаторы ждут,
// поэтому fn видит согласованный снимок состояния начала шага.
func (w *World) Read(fn func(s *Snapshot)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fn(&Snapshot{world: w})
}

// Snapshot - доступ к миру без блокировок, действителен только внутри Read.
// Безопасен для одновременного чтения из нескольких горутин.
type Snapshot struct {
	world *World
}

// Storage возвращает тайловое хранилище
func (s *Snapshot) Storage() *TileStorage {
	return s.world.storage
}

// Index возвращает индекс тайлов (только чтение)
func (s *Snapshot) Index() *TileIndex {
	return s.world.index
}

// Entity возвращает копию состояния сущности
func (s *Snapshot) Entity(id EntityID) (EntityView, bool) {
	e, ok := s.world.entities[id]
	if !ok {
		return EntityView{}, false
	}
	return e.view(), true
}

// MustEntity возвращает сущность, на которую ссылается индекс.
// Отсутствие означает рассинхронизацию индекса и приводит к панике.
func (s *Snapshot) MustEntity(id EntityID) EntityView {
	e, ok := s.world.entities[id]
	if !ok {
		panic(fmt.Sprintf("tile index references missing entity %d", id))
	}
	return e.view()
}

// ColliderEntities возвращает отсортированный список сущностей с Collider
func (s *Snapshot) ColliderEntities() []EntityID {
	ids := make([]EntityID, 0, len(s.world.entities))
	for id, e := range s.world.entities {
		if e.collider != nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Entities возвращает отсортированные копии всех сущностей
func (s *Snapshot) Entities() []EntityView {
	views := make([]EntityView, 0, len(s.world.entities))
	for _, e := range s.world.entities {
		views = append(views, e.view())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

func (w *World) notify(ev Event) {
	w.mu.RLock()
	observer := w.observer
	w.mu.RUnlock()

	if observer != nil {
		observer.OnWorldEvent(ev)
	}
}
