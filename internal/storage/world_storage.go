package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/tilesim/internal/logging"
	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"
)

const (
	chunkPrefix  = "chunk:"
	entityPrefix = "entity:"
)

// ErrNotReady возвращается после Close
var ErrNotReady = errors.New("storage is not ready")

// WorldStorage сохраняет снимки тайлового мира в BadgerDB.
// Материалы чанков сжимаются zstd, сущности хранятся как JSON.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logging.Logger
}

// EntityRecord - сохраняемое состояние сущности. Позиция тайла хранится
// отдельно от мировой, чтобы индекс восстанавливался без пересчёта.
type EntityRecord struct {
	ID           world.EntityID      `json:"id"`
	Layer        world.Layer         `json:"layer"`
	TileX        int                 `json:"tile_x"`
	TileY        int                 `json:"tile_y"`
	Position     vec.Vec2Float       `json:"position"`
	Velocity     *vec.Vec2Float      `json:"velocity,omitempty"`
	Collider     *world.Collider     `json:"collider,omitempty"`
	TileCollider *world.TileCollider `json:"tile_collider,omitempty"`
	Disabled     bool                `json:"disabled,omitempty"`
}

// SaveStats описывает результат сохранения
type SaveStats struct {
	Chunks   int
	Entities int
	Removed  int // удалённые записи исчезнувших сущностей
}

// NewWorldStorage открывает (или создаёт) хранилище в dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dbPath, err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.decoder.Close()
	if err := ws.encoder.Close(); err != nil {
		ws.logger.Warn("close zstd encoder: %v", err)
	}
	return ws.db.Close()
}

// Save записывает состояние мира. При dirtyOnly пишутся только чанки
// с несохранёнными изменениями; сущности всегда пишутся целиком.
// Снимок берётся под read-блокировкой мира, поэтому чанки и сущности согласованы.
func (ws *WorldStorage) Save(w *world.World, dirtyOnly bool) (SaveStats, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return SaveStats{}, ErrNotReady
	}

	var (
		stats SaveStats
		err   error
	)
	w.Read(func(s *world.Snapshot) {
		stats, err = ws.saveSnapshot(s, dirtyOnly)
		if err == nil {
			s.Storage().ClearChanges()
		}
	})
	if err != nil {
		return SaveStats{}, err
	}

	ws.logger.Debug("💾 saved %d chunks, %d entities (%d removed)", stats.Chunks, stats.Entities, stats.Removed)
	return stats, nil
}

func (ws *WorldStorage) saveSnapshot(s *world.Snapshot, dirtyOnly bool) (SaveStats, error) {
	var stats SaveStats

	entities := s.Entities()
	alive := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		alive[entityKey(e.ID)] = struct{}{}
	}

	stale, err := ws.staleEntityKeys(alive)
	if err != nil {
		return stats, err
	}

	batch := ws.db.NewWriteBatch()
	if err := ws.fillBatch(batch, s, entities, stale, dirtyOnly, &stats); err != nil {
		batch.Cancel()
		return stats, err
	}
	if err := batch.Flush(); err != nil {
		return stats, fmt.Errorf("flush badger batch: %w", err)
	}
	return stats, nil
}

func (ws *WorldStorage) fillBatch(batch *badger.WriteBatch, s *world.Snapshot, entities []world.EntityView, stale [][]byte, dirtyOnly bool, stats *SaveStats) error {
	for _, chunk := range s.Storage().ExportChunks(dirtyOnly) {
		if err := batch.Set(chunkKey(chunk.Position), ws.encodeChunk(chunk)); err != nil {
			return fmt.Errorf("write chunk %s: %w", chunk.Position, err)
		}
		stats.Chunks++
	}

	for _, e := range entities {
		data, err := json.Marshal(recordFromView(e))
		if err != nil {
			return fmt.Errorf("marshal entity %d: %w", e.ID, err)
		}
		if err := batch.Set([]byte(entityKey(e.ID)), data); err != nil {
			return fmt.Errorf("write entity %d: %w", e.ID, err)
		}
		stats.Entities++
	}

	for _, key := range stale {
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		stats.Removed++
	}
	return nil
}

func (ws *WorldStorage) staleEntityKeys(alive map[string]struct{}) ([][]byte, error) {
	var stale [][]byte
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(entityPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := alive[string(key)]; !ok {
				stale = append(stale, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan entities: %w", err)
	}
	return stale, nil
}

// Load восстанавливает сохранённый мир в пустой World. Материалы применяются
// через SetMaterial хранилища, так что маски занятости пересчитываются,
// а сущности попадают в индекс по сохранённым позициям тайлов.
func (ws *WorldStorage) Load(w *world.World) (SaveStats, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return SaveStats{}, ErrNotReady
	}
	if w.EntityCount() > 0 || w.Storage().ChunkCount() > 0 {
		return SaveStats{}, fmt.Errorf("load into non-empty world")
	}

	var (
		stats   SaveStats
		chunks  []world.ChunkData
		records []EntityRecord
	)

	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions

		opts.Prefix = []byte(chunkPrefix)
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var chunk world.ChunkData
			err := item.Value(func(val []byte) error {
				var derr error
				chunk, derr = ws.decodeChunk(val)
				return derr
			})
			if err != nil {
				it.Close()
				return fmt.Errorf("chunk %s: %w", item.Key(), err)
			}
			chunks = append(chunks, chunk)
		}
		it.Close()

		opts.Prefix = []byte(entityPrefix)
		it = txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec EntityRecord
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("entity %s: %w", item.Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return SaveStats{}, fmt.Errorf("read snapshot: %w", err)
	}

	for _, chunk := range chunks {
		if err := w.Storage().ImportChunk(chunk); err != nil {
			return stats, err
		}
		stats.Chunks++
	}
	w.Storage().ClearChanges()

	for _, rec := range records {
		if err := rec.restore(w); err != nil {
			return stats, err
		}
		stats.Entities++
	}

	ws.logger.Info("📂 loaded %d chunks, %d entities from %s", stats.Chunks, stats.Entities, ws.dbPath)
	return stats, nil
}

func recordFromView(e world.EntityView) EntityRecord {
	rec := EntityRecord{
		ID:       e.ID,
		Layer:    e.Tile.Layer,
		TileX:    e.Tile.X,
		TileY:    e.Tile.Y,
		Position: e.Position,
		Disabled: e.Disabled,
	}
	if e.HasVelocity {
		v := e.Velocity
		rec.Velocity = &v
	}
	if e.HasCollider {
		c := e.Collider
		rec.Collider = &c
	}
	if e.HasTileCollider {
		c := e.TileCollider
		rec.TileCollider = &c
	}
	return rec
}

func (rec EntityRecord) restore(w *world.World) error {
	tile := world.NewTilePosition(rec.Layer, rec.TileX, rec.TileY)
	if err := w.SpawnWithID(rec.ID, tile, rec.Position); err != nil {
		return fmt.Errorf("restore entity: %w", err)
	}

	var errs []error
	if rec.Velocity != nil {
		errs = append(errs, w.SetVelocity(rec.ID, *rec.Velocity))
	}
	if rec.Collider != nil {
		errs = append(errs, w.SetCollider(rec.ID, *rec.Collider))
	}
	if rec.TileCollider != nil {
		errs = append(errs, w.SetTileCollider(rec.ID, *rec.TileCollider))
	}
	if rec.Disabled {
		errs = append(errs, w.SetColliderDisabled(rec.ID, true))
	}
	return errors.Join(errs...)
}

// encodeChunk: один байт материала на тайл, затем zstd
func (ws *WorldStorage) encodeChunk(chunk world.ChunkData) []byte {
	raw := make([]byte, len(chunk.Materials))
	for i, m := range chunk.Materials {
		raw[i] = byte(m)
	}

	header, _ := json.Marshal(chunk.Position)
	buf := ws.encoder.EncodeAll(raw, nil)
	return append(append(header, '\n'), buf...)
}

func (ws *WorldStorage) decodeChunk(val []byte) (world.ChunkData, error) {
	var chunk world.ChunkData

	sep := bytes.IndexByte(val, '\n')
	if sep < 0 {
		return chunk, fmt.Errorf("missing chunk header")
	}
	if err := json.Unmarshal(val[:sep], &chunk.Position); err != nil {
		return chunk, fmt.Errorf("parse chunk header: %w", err)
	}

	raw, err := ws.decoder.DecodeAll(val[sep+1:], nil)
	if err != nil {
		return chunk, fmt.Errorf("decompress chunk: %w", err)
	}
	if len(raw) != world.ChunkArea {
		return chunk, fmt.Errorf("expected %d tiles, got %d", world.ChunkArea, len(raw))
	}

	chunk.Materials = make([]world.Material, len(raw))
	for i, b := range raw {
		chunk.Materials[i] = world.Material(b)
	}
	return chunk, nil
}

func chunkKey(pos world.TileChunkPosition) []byte {
	return []byte(fmt.Sprintf("%s%d:%d:%d", chunkPrefix, pos.Layer, pos.X, pos.Y))
}

func entityKey(id world.EntityID) string {
	return fmt.Sprintf("%s%d", entityPrefix, id)
}
