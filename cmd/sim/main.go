package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/tilesim/internal/config"
	"github.com/annel0/tilesim/internal/eventbus"
	"github.com/annel0/tilesim/internal/logging"
	"github.com/annel0/tilesim/internal/observability"
	"github.com/annel0/tilesim/internal/physics"
	"github.com/annel0/tilesim/internal/sim"
	"github.com/annel0/tilesim/internal/storage"
	"github.com/annel0/tilesim/internal/world"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (or SIM_CONFIG)")
	flag.Parse()

	if err := logging.InitDefaultLogger("sim"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logging.GetLoggerManager().SetDefaultLevel(level)
	} else {
		logging.Warn("unknown log level %q, using INFO", cfg.Logging.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := observability.ShutdownFunc(observability.Noop)
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Error("❌ OpenTelemetry: %v", err)
			shutdownTelemetry = observability.Noop
		}
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("telemetry shutdown: %v", err)
		}
	}()

	bus := newEventBus(cfg.EventBus)
	defer bus.Close()
	busMetrics := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	busMetrics.Start()
	defer busMetrics.Stop()
	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("logging listener: %v", err)
	}

	w := world.NewWorld()
	saver := openWorld(cfg, w)
	if saver != nil {
		defer saver.Close()
	}
	w.SetObserver(eventbus.NewWorldPublisher(bus, cfg.Telemetry.ServiceName))

	resolver := physics.NewResolver(w,
		physics.WithWorkers(cfg.Simulation.GetWorkers()),
		physics.WithMetrics(physics.NewMetrics("tilesim", prometheus.DefaultRegisterer)),
	)

	metricsSrv := &http.Server{Addr: cfg.Metrics.GetMetricsAddr(), Handler: promhttp.Handler()}
	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()

	opts := sim.Options{
		Step:         cfg.Simulation.StepDuration(),
		SaveInterval: time.Duration(cfg.Storage.SaveInterval) * time.Second,
	}
	if saver != nil {
		opts.Saver = saver
	}

	logging.Info("🎮 tilesim: %d entities, %d chunks, %d workers, %d Hz",
		w.EntityCount(), w.Storage().ChunkCount(), cfg.Simulation.GetWorkers(), cfg.Simulation.GetTickRate())
	sim.New(w, resolver, opts).Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("metrics server shutdown: %v", err)
	}
	logging.Info("👋 Симуляция остановлена")
}

// newEventBus выбирает JetStream, если задан URL, иначе in-memory шину
func newEventBus(cfg config.EventBusConfig) eventbus.EventBus {
	if cfg.URL == "" {
		return eventbus.NewMemoryBus(1024)
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, cfg.GetRetention())
	if err != nil {
		logging.Error("❌ JetStream недоступен (%v), используется in-memory шина", err)
		return eventbus.NewMemoryBus(1024)
	}
	logging.Info("📨 JetStream: %s stream=%s", cfg.URL, cfg.Stream)
	return bus
}

// openWorld загружает сохранённый мир или генерирует новый
func openWorld(cfg *config.Config, w *world.World) *storage.WorldStorage {
	var ws *storage.WorldStorage
	if cfg.Storage.Path != "" {
		var err error
		ws, err = storage.NewWorldStorage(cfg.Storage.Path)
		if err != nil {
			log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
		}
		stats, err := ws.Load(w)
		if err != nil {
			log.Fatalf("❌ Ошибка загрузки мира: %v", err)
		}
		if stats.Chunks > 0 || stats.Entities > 0 {
			return ws
		}
	}

	stats, err := sim.Populate(w, cfg.Simulation.Seed, cfg.Simulation.Radius, cfg.Simulation.Colliders)
	if err != nil {
		logging.Warn("populate: %v", err)
	}
	logging.Info("🌍 generated layer %s: %d walls, %d colliders, %d doors",
		stats.Layer, stats.Walls, stats.Colliders, stats.Doors)
	return ws
}
