package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/attendance/internal/analytics"
	"github.com/your-org/attendance/internal/api"
	"github.com/your-org/attendance/internal/api/handlers"
	"github.com/your-org/attendance/internal/api/ws"
	"github.com/your-org/attendance/internal/app"
	"github.com/your-org/attendance/internal/attendance"
	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/lock"
	"github.com/your-org/attendance/internal/matcher"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
	"github.com/your-org/attendance/internal/queue"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/internal/vision"

	_ "time/tzdata"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting attendance API service", "port", cfg.Server.Port, "store", cfg.Store.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	templates, err := app.OpenTemplates(cfg.Seal)
	if err != nil {
		slog.Error("load sealing key", "error", err)
		os.Exit(1)
	}

	strategy, err := matcher.ParseStrategy(cfg.Matching.Strategy)
	if err != nil {
		slog.Error("parse match strategy", "error", err)
		os.Exit(1)
	}

	checks := []handlers.Check{{Name: cfg.Store.Driver, Ping: store.Ping}}

	// Enrollment photos (optional)
	var photos storage.PhotoStore
	if cfg.MinIO.Endpoint != "" {
		minioStore, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		photos = minioStore
		checks = append(checks, handlers.Check{Name: "minio", Ping: minioStore.Ping})
	}

	// Check-in locking
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Redis.Addr != "" {
		redisLocker := lock.NewRedisLocker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL, cfg.Redis.LockWait)
		defer redisLocker.Close()
		locker = redisLocker
		checks = append(checks, handlers.Check{Name: "redis", Ping: redisLocker.Ping})
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Check-ins go through NATS when configured so every replica's hub sees
	// them; otherwise straight to the local hub.
	var publisher attendance.Publisher = hub
	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		if err := producer.EnsureStreams(ctx); err != nil {
			slog.Warn("ensure nats streams", "error", err)
		}
		publisher = producer
		checks = append(checks, handlers.Check{Name: "nats", Ping: func(context.Context) error { return producer.Ping() }})

		consumer, err := queue.NewConsumer(cfg.NATS.URL)
		if err != nil {
			slog.Error("create check-in consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		hostname, _ := os.Hostname()
		err = consumer.ConsumeCheckIns(ctx, "api-ws-"+hostname, func(ctx context.Context, ev models.CheckInEvent) error {
			return hub.PublishCheckIn(ctx, ev)
		})
		if err != nil {
			slog.Warn("start check-in consumer", "error", err)
		}
	}

	// Initialize ONNX Runtime for face embedding (register / facescanner endpoints)
	var extractor vision.Extractor

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed, register/facescanner will be unavailable", "error", err)
	} else {
		defer ort.DestroyEnvironment()
		pipeline, err := vision.NewPipeline(cfg.Vision)
		if err != nil {
			slog.Warn("vision pipeline init failed, register/facescanner will be unavailable", "error", err)
		} else {
			defer pipeline.Close()
			extractor = pipeline
			slog.Info("vision pipeline ready")
		}
	}

	loc := cfg.Attendance.Location()
	service := attendance.NewService(store, matcher.New(cfg.Matching.Tolerance, strategy), templates, locker, publisher, attendance.Options{
		Location:     loc,
		DefaultVenue: cfg.Attendance.DefaultVenue,
		DefaultEvent: cfg.Attendance.DefaultEvent,
	})
	enroller := attendance.NewEnroller(store, templates, photos, cfg.Attendance.DigitalIDPrefix)

	onStart, onEnd := cfg.Attendance.OnTimeWindow()
	router := api.NewRouter(api.RouterConfig{
		APIKey:    cfg.Server.APIKey,
		Store:     store,
		Photos:    photos,
		Extractor: extractor,
		CheckIns:  service,
		Enroller:  enroller,
		Hub:       hub,
		Dashboard: analytics.Params{
			Location:    loc,
			OnTime:      analytics.Window{Start: onStart, End: onEnd},
			LatestLimit: cfg.Attendance.LatestLogs,
		},
		Checks: checks,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	cancel()

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	if p := os.Getenv("ONNXRUNTIME_LIB"); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}
