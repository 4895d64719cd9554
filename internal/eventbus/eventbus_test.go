package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector накапливает доставленные события
type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.EventType
	}
	return out
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope("sim", "TileChange", []byte("{}"))
	_, err := uuid.Parse(env.ID)
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, env.Timestamp.Location())
	assert.Equal(t, 1, env.Version)
}

func TestMemoryBus_FilterAndOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var all, tiles collector
	_, err := bus.Subscribe(ctx, Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, Filter{Types: []string{"TileChange"}}, tiles.handle)
	require.NoError(t, err)

	for _, typ := range []string{"TileChange", "EntityMove", "TileChange"} {
		require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", typ, nil)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"TileChange", "EntityMove", "TileChange"}, all.types())
	assert.Equal(t, []string{"TileChange", "TileChange"}, tiles.types())

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(5), stats.Consumed)

	assert.ErrorIs(t, bus.Publish(ctx, NewEnvelope("sim", "x", nil)), ErrClosed)
	assert.NoError(t, bus.Close())
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	ctx := context.Background()

	started := make(chan struct{}, 4)
	release := make(chan struct{})
	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) {
		started <- struct{}{}
		<-release
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "a", nil)))
	<-started // первое событие забрано из буфера, обработчик занят

	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "b", nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "c", nil)))
	assert.Equal(t, uint64(1), bus.Metrics().Dropped)

	high := NewEnvelope("sim", "d", nil)
	high.Priority = 9
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(tctx, high), context.DeadlineExceeded)

	close(release)
	require.NoError(t, bus.Close())
	assert.Equal(t, uint64(2), bus.Metrics().Consumed)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	ctx := context.Background()

	var c collector
	sub, err := bus.Subscribe(ctx, Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "TileChange", nil)))
	require.NoError(t, bus.Close())
	assert.Empty(t, c.types())
}

func TestWorldPublisher(t *testing.T) {
	bus := NewMemoryBus(64)
	var c collector
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	w := world.NewWorld()
	w.SetObserver(NewWorldPublisher(bus, "test"))
	layer := w.NewLayer()

	pos := world.NewTilePosition(layer, 3, -4)
	w.SetMaterial(pos, world.MaterialWall)
	w.SetMaterial(pos, world.MaterialWall) // без изменений - без события
	id := w.Spawn(layer, vec.Vec2Float{X: 0.5, Y: 0.5})
	require.NoError(t, w.Despawn(id))

	require.NoError(t, bus.Close())
	require.Equal(t, []string{"TileChange", "EntitySpawn", "EntityDespawn"}, c.types())

	var tile TilePayload
	require.NoError(t, json.Unmarshal(c.events[0].Payload, &tile))
	assert.Equal(t, TilePayload{Layer: layer, X: 3, Y: -4, Previous: world.MaterialEmpty, Material: world.MaterialWall}, tile)
	assert.Equal(t, "test", c.events[0].Source)

	var spawn EntityPayload
	require.NoError(t, json.Unmarshal(c.events[1].Payload, &spawn))
	assert.Equal(t, id, spawn.Entity)
	assert.Nil(t, spawn.From)
	require.NotNil(t, spawn.To)
	assert.Equal(t, world.NewTilePosition(layer, 0, 0), *spawn.To)

	var despawn EntityPayload
	require.NoError(t, json.Unmarshal(c.events[2].Payload, &despawn))
	assert.Nil(t, despawn.To)
}

func TestMetricsExporter(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	ctx := context.Background()
	_, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) {})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "a", nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "b", nil)))
	require.NoError(t, bus.Close())

	prev := me.collect(Stats{})
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))
	assert.Equal(t, 2.0, testutil.ToFloat64(me.consumed))

	me.collect(prev)
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published), "повторный сбор не удваивает счётчики")

	me.Start()
	me.Stop()
}
