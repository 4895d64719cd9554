package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/annel0/tilesim/internal/logging"
	"github.com/annel0/tilesim/internal/world"
)

// TilePayload - полезная нагрузка события TileChange
type TilePayload struct {
	Layer    world.Layer    `json:"layer"`
	X        int            `json:"x"`
	Y        int            `json:"y"`
	Previous world.Material `json:"previous"`
	Material world.Material `json:"material"`
}

// EntityPayload - полезная нагрузка событий EntitySpawn/EntityMove/EntityDespawn
type EntityPayload struct {
	Entity world.EntityID      `json:"entity"`
	From   *world.TilePosition `json:"from,omitempty"`
	To     *world.TilePosition `json:"to,omitempty"`
}

// WorldPublisher транслирует события мира в шину. Реализует world.Observer.
type WorldPublisher struct {
	bus     EventBus
	source  string
	timeout time.Duration
	logger  *logging.Logger
}

// NewWorldPublisher создаёт издателя событий мира
func NewWorldPublisher(bus EventBus, source string) *WorldPublisher {
	return &WorldPublisher{
		bus:     bus,
		source:  source,
		timeout: time.Second,
		logger:  logging.GetComponentLogger("eventbus"),
	}
}

// OnWorldEvent публикует событие. Ошибки публикации только логируются,
// мир не должен зависеть от доступности шины.
func (p *WorldPublisher) OnWorldEvent(ev world.Event) {
	env, err := p.envelope(ev)
	if err != nil {
		p.logger.Error("encode %s: %v", ev.GetType(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, env); err != nil {
		p.logger.Warn("publish %s: %v", env.EventType, err)
	}
}

func (p *WorldPublisher) envelope(ev world.Event) (*Envelope, error) {
	var payload any
	priority := 3

	switch e := ev.(type) {
	case world.TileEvent:
		payload = TilePayload{
			Layer:    e.Position.Layer,
			X:        e.Position.X,
			Y:        e.Position.Y,
			Previous: e.Previous,
			Material: e.Material,
		}
		// Потеря изменения тайла рассинхронизирует клиентов
		priority = 7
	case world.EntityEvent:
		ep := EntityPayload{Entity: e.EntityID}
		if e.EventType != world.EventTypeEntitySpawn {
			from := e.From
			ep.From = &from
		}
		if e.EventType != world.EventTypeEntityDespawn {
			to := e.To
			ep.To = &to
		}
		payload = ep
	default:
		payload = ev
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env := NewEnvelope(p.source, ev.GetType().String(), data)
	env.Priority = priority
	return env, nil
}
