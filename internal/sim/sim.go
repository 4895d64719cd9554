package sim

import (
	"context"
	"time"

	"github.com/annel0/tilesim/internal/logging"
	"github.com/annel0/tilesim/internal/physics"
	"github.com/annel0/tilesim/internal/storage"
	"github.com/annel0/tilesim/internal/world"
)

// Saver сохраняет мир (реализуется storage.WorldStorage)
type Saver interface {
	Save(w *world.World, dirtyOnly bool) (storage.SaveStats, error)
}

// Options - параметры цикла симуляции
type Options struct {
	Step         time.Duration // фиксированный шаг
	Saver        Saver         // nil - без автосохранения
	SaveInterval time.Duration
}

// Simulation связывает резолвер столкновений и интегратор движения
// в фиксированный цикл шагов.
type Simulation struct {
	world    *world.World
	resolver *physics.Resolver
	opts     Options
	logger   *logging.Logger
}

// New создаёт симуляцию
func New(w *world.World, r *physics.Resolver, opts Options) *Simulation {
	if opts.Step <= 0 {
		opts.Step = time.Second / 30
	}
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = time.Minute
	}
	return &Simulation{
		world:    w,
		resolver: r,
		opts:     opts,
		logger:   logging.GetComponentLogger("sim"),
	}
}

// Tick выполняет один шаг: разрешение столкновений, затем перемещение
func (s *Simulation) Tick(ctx context.Context) physics.StepStats {
	dt := s.opts.Step.Seconds()
	stats := s.resolver.Step(ctx, dt)
	moved := Integrate(s.world, s.resolver, dt)
	s.logger.Trace("tick %d: moved %d", stats.Tick, moved)
	return stats
}

// Run крутит шаги до отмены ctx. При наличии Saver периодически сохраняет
// изменённые чанки и делает полное сохранение при выходе.
func (s *Simulation) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Step)
	defer ticker.Stop()

	var saveC <-chan time.Time
	if s.opts.Saver != nil {
		saveTicker := time.NewTicker(s.opts.SaveInterval)
		defer saveTicker.Stop()
		saveC = saveTicker.C
	}

	s.logger.Info("▶️ simulation started, step=%s", s.opts.Step)
	for {
		select {
		case <-ctx.Done():
			s.save(false)
			s.logger.Info("⏹️ simulation stopped at tick %d", s.resolver.Tick())
			return
		case <-ticker.C:
			s.Tick(ctx)
		case <-saveC:
			s.save(true)
		}
	}
}

func (s *Simulation) save(dirtyOnly bool) {
	if s.opts.Saver == nil {
		return
	}
	if _, err := s.opts.Saver.Save(s.world, dirtyOnly); err != nil {
		s.logger.Error("save world: %v", err)
	}
}
