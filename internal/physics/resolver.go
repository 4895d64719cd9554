package physics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/tilesim/internal/logging"
	"github.com/annel0/tilesim/internal/vec"
	"github.com/annel0/tilesim/internal/world"
)

const tracerName = "github.com/annel0/tilesim/internal/physics"

// Порядок проверки рёбер и открытых углов определяет порядок Active
var (
	edgeOrder   = [...]world.Direction{world.North, world.East, world.West, world.South}
	cornerOrder = [...]world.Direction{world.NorthEast, world.NorthWest, world.SouthWest, world.SouthEast}
)

// minBatch - минимальное число сущностей на одну горутину
const minBatch = 32

// StepStats - сводка одного шага разрешения коллизий
type StepStats struct {
	Tick      uint64
	Colliders int // сущности с Collider
	Resolved  int // из них не отключённые
	Active    int // суммарно активных столкновений
	Next      int // сущностей с будущим столкновением
	Duration  time.Duration
}

// Resolver выполняет непрерывное обнаружение столкновений раз в фиксированный шаг.
// Каждая сущность обрабатывается независимо: читает неизменяемый снимок мира
// и пишет только в свой слот результата.
type Resolver struct {
	world   *world.World
	workers int
	metrics *Metrics
	tracer  trace.Tracer
	logger  *logging.Logger

	mu      sync.RWMutex
	results map[world.EntityID]*Collisions
	tick    uint64
}

// Option настраивает Resolver
type Option func(*Resolver)

// WithWorkers ограничивает число параллельных горутин (<= 0 - по числу CPU)
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithTracer задаёт трассировщик вместо глобального
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = t
	}
}

// NewResolver создаёт резолвер для мира w
func NewResolver(w *world.World, opts ...Option) *Resolver {
	r := &Resolver{
		world:   w,
		workers: runtime.GOMAXPROCS(0),
		tracer:  otel.Tracer(tracerName),
		logger:  logging.GetPhysicsLogger(),
		results: make(map[world.EntityID]*Collisions),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Step пересчитывает Collisions всех сущностей с Collider для шага длительностью dt.
// Предыдущие результаты полностью заменяются.
func (r *Resolver) Step(ctx context.Context, dt float64) StepStats {
	_, span := r.tracer.Start(ctx, "physics.Step")
	defer span.End()

	start := time.Now()
	var (
		ids      []world.EntityID
		out      []Collisions
		resolved int
	)

	r.world.Read(func(s *world.Snapshot) {
		ids = s.ColliderEntities()
		out = make([]Collisions, len(ids))
		for _, id := range ids {
			if !s.MustEntity(id).Disabled {
				resolved++
			}
		}

		batch := (len(ids) + r.workers - 1) / r.workers
		if batch < minBatch {
			batch = minBatch
		}

		var g errgroup.Group
		g.SetLimit(r.workers)
		for lo := 0; lo < len(ids); lo += batch {
			hi := min(lo+batch, len(ids))
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					resolveEntity(s, ids[i], dt, &out[i])
				}
				return nil
			})
		}
		// Задачи не возвращают ошибок; нарушение инварианта - паника
		_ = g.Wait()
	})

	results := make(map[world.EntityID]*Collisions, len(ids))
	stats := StepStats{Colliders: len(ids), Resolved: resolved}
	for i, id := range ids {
		results[id] = &out[i]
		stats.Active += len(out[i].active)
		if out[i].hasNext {
			stats.Next++
		}
	}

	r.mu.Lock()
	r.tick++
	stats.Tick = r.tick
	r.results = results
	r.mu.Unlock()

	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int64("physics.tick", int64(stats.Tick)),
		attribute.Int("physics.colliders", stats.Colliders),
		attribute.Int("physics.active", stats.Active),
		attribute.Int("physics.next", stats.Next),
	)
	r.metrics.observe(stats)
	r.logger.Trace("step %d: %d colliders, %d active, %d next in %s",
		stats.Tick, stats.Colliders, stats.Active, stats.Next, stats.Duration)
	return stats
}

// Collisions возвращает результат последнего шага для сущности.
// false - сущность не имела Collider на момент шага.
func (r *Resolver) Collisions(id world.EntityID) (*Collisions, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.results[id]
	return c, ok
}

// Tick возвращает номер последнего выполненного шага
func (r *Resolver) Tick() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tick
}

// resolveEntity - единица работы: читает снимок, пишет только в out
func resolveEntity(s *world.Snapshot, id world.EntityID, dt float64, out *Collisions) {
	out.Clear()

	self := classify(s.MustEntity(id))
	if self.kind != candidateDynamic {
		// Отключённая сущность (или тайловый коллайдер) не разрешается
		return
	}

	walls := gatherWalls(s, self.tile)

	for otherID := range s.Index().Neighborhood(self.tile) {
		if otherID == id {
			continue
		}
		other := classify(s.MustEntity(otherID))
		switch other.kind {
		case candidateDynamic:
			collideCircle(&self, &other, dt, out)
		case candidateTileStatic, candidateNone:
			// тайловые коллайдеры учтены в walls
		}
	}

	for _, dir := range edgeOrder {
		if walls.occupancy.Has(dir) {
			collideEdge(&self, &walls, dir, dt, out)
		}
	}

	for _, dir := range cornerOrder {
		if walls.exposedCorner(dir) {
			collideCorner(&self, &walls, dir, dt, out)
		}
	}
}

func accept(t, dt float64) bool {
	return t < dt
}

func collideCircle(self, other *candidate, dt float64, out *Collisions) {
	dp := self.position.Sub(other.position)
	dv := self.velocity.Sub(other.velocity)

	t, ok := ColliderCollision(dp, dv, self.radius+other.radius)
	if !ok || !accept(t, dt) {
		return
	}

	selfAt := extrapolate(self.position, self.velocity, t)
	otherAt := extrapolate(other.position, other.velocity, t)
	out.Add(Collision{
		Position: selfAt,
		Normal:   selfAt.Sub(otherAt).Normalized(defaultNormal),
		Target:   ColliderTarget(other.id, otherAt),
		Solid:    self.solid && other.solid,
	}, t)
}

// edgeDistance - расстояние от pos до ребра тайла в направлении dir
func edgeDistance(tile world.TilePosition, pos vec.Vec2Float, dir world.Direction) float64 {
	n := dir.Normal()
	plane := tile.Center().Add(n.Mul(0.5)).Dot(n)
	return plane - pos.Dot(n)
}

func collideEdge(self *candidate, walls *wallContext, dir world.Direction, dt float64, out *Collisions) {
	n := dir.Normal()
	distance := edgeDistance(self.tile, self.position, dir)

	t, ok := WallCollision(distance, self.radius, self.velocity.Dot(n))
	if !ok || !accept(t, dt) {
		return
	}

	out.Add(Collision{
		Position: extrapolate(self.position, self.velocity, t),
		Normal:   n.Neg(),
		Target:   WallTarget(self.tile.Neighbor(dir), walls.occupant(dir)),
		Solid:    self.solid && walls.solid(dir),
	}, t)
}

// cornerPoint - вершина тайла в диагональном направлении dir
func cornerPoint(tile world.TilePosition, dir world.Direction) vec.Vec2Float {
	return tile.Center().Add(dir.Normal().Mul(0.5))
}

func collideCorner(self *candidate, walls *wallContext, dir world.Direction, dt float64, out *Collisions) {
	corner := cornerPoint(self.tile, dir)

	t, ok := CornerCollision(self.position.Sub(corner), self.velocity, self.radius)
	if !ok || !accept(t, dt) {
		return
	}

	at := extrapolate(self.position, self.velocity, t)
	out.Add(Collision{
		Position: at,
		Normal:   at.Sub(corner).Normalized(defaultNormal),
		Target:   WallTarget(self.tile.Neighbor(dir), walls.occupant(dir)),
		Solid:    self.solid && walls.solid(dir),
	}, t)
}
