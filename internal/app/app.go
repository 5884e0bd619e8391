package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"agrovision/internal/config"
	"agrovision/internal/dto"
	"agrovision/internal/logger"
	"agrovision/internal/repository"
	"agrovision/internal/route"
	"agrovision/internal/service"
	"agrovision/internal/service/dispatch"
	"agrovision/internal/service/preview"
	"agrovision/internal/service/ratelimit"
	"agrovision/internal/service/tracker"
	"agrovision/internal/service/vision"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger *logger.Logger
	runID  string
	valid  tracker.ValidSet
	repo   repository.SightingRepository
	hub    *preview.Hub
}

// NewApp validates the configuration and connects the sighting store. No
// capture device is touched yet.
func NewApp(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Device == "" {
		return nil, errors.New("no capture device configured")
	}
	valid, err := tracker.ParseValidSet(cfg.ValidIDs)
	if err != nil {
		return nil, err
	}

	repo, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		config: cfg,
		logger: logger,
		runID:  uuid.NewString(),
		valid:  valid,
		repo:   repo,
		hub:    preview.NewHub(logger),
	}, nil
}

// RunID identifies the sightings written by this process.
func (a *App) RunID() string {
	return a.runID
}

// Run opens the camera and processes frames until ctx is canceled, the
// stream ends or the preview window asks to quit. Every resource is
// released before it returns.
func (a *App) Run(ctx context.Context) error {
	cfg := a.config
	if a.repo != nil {
		defer func() {
			if err := a.repo.Close(); err != nil {
				a.logger.Warning("Failed to close sighting store: %v", err)
			}
		}()
	}

	detector, err := vision.NewDetector(cfg.ArucoDict)
	if err != nil {
		return err
	}
	defer detector.Close()

	capture, err := vision.OpenCapture(vision.CaptureOptions{
		Device:      cfg.Device,
		Width:       cfg.CaptureWidth,
		Height:      cfg.CaptureHeight,
		JPEGQuality: cfg.JPEGQuality,
	}, a.logger)
	if err != nil {
		return err
	}
	defer capture.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	serveHTTP := cfg.HTTPAddr != ""
	var notifiers []dispatch.Notifier
	var publisher vision.FramePublisher
	if serveHTTP {
		go a.hub.Run(hubCtx)
		notifiers = append(notifiers, a.hub)
		publisher = a.hub
	}

	dispatcher := dispatch.New(a.logger, a.repo, dispatch.Options{
		QueueSize:    cfg.DispatchQueue,
		WriteTimeout: cfg.WriteTimeout,
		RunID:        a.runID,
		Notifiers:    notifiers,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout+time.Second)
		defer cancel()
		if err := dispatcher.Close(closeCtx); err != nil {
			a.logger.Error("Pending sightings not persisted: %v", err)
		}
		stats := dispatcher.Stats()
		a.logger.Info("Sightings: %d notified, %d persisted, %d failed, %d dropped",
			stats.Notified, stats.Persisted, stats.Failed, stats.Dropped)
	}()

	renderer := vision.NewRenderer(cfg.Headless, publisher, a.logger)
	defer renderer.Close()

	if serveHTTP {
		stopServer, err := a.serve(dispatcher)
		if err != nil {
			return err
		}
		defer stopServer()
	}

	opts := []service.Option{}
	if renderer.Active() {
		opts = append(opts, service.WithRenderer(renderer))
	}
	manager := service.NewManager(capture, detector, dispatcher, ratelimit.New(cfg.MaxFPS), tracker.Options{
		Threshold:     cfg.Threshold,
		ResetInterval: cfg.ResetInterval,
		Valid:         a.valid,
	}, a.logger, opts...)

	a.logger.Info("🐄 Agrovision run %s", a.runID)
	a.logger.Info("📍 Device: %s", cfg.Device)
	a.logger.Info("🏷️  Valid markers: %s, confirmed after %d frames", a.valid, cfg.Threshold)
	if serveHTTP {
		a.logger.Info("🌐 Preview: http://%s/api/preview", cfg.HTTPAddr)
	}

	return manager.Run(ctx)
}

// serve starts the HTTP surface. Binding happens synchronously so a busy
// port is a startup error.
func (a *App) serve(dispatcher *dispatch.Dispatcher) (func(), error) {
	listener, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", a.config.HTTPAddr, err)
	}

	health := func() dto.Health {
		stats := dispatcher.Stats()
		return dto.Health{
			Status:      "ok",
			RunID:       a.runID,
			Persistence: dispatcher.Persistent(),
			Viewers:     a.hub.ClientCount(),
			Notified:    stats.Notified,
			Persisted:   stats.Persisted,
			Failed:      stats.Failed,
			Dropped:     stats.Dropped,
		}
	}

	server := &http.Server{
		Handler:           route.SetupRoutes(a.config, a.logger, a.hub, a.repo, health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Warning("HTTP server shutdown: %v", err)
		}
	}, nil
}
