package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/poitch/engine/internal/engine"
	"github.com/poitch/engine/internal/observability"
	"github.com/poitch/engine/internal/scene"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "enginectl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML config")
	flag.Parse()

	cfg := defaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := observability.InitLogger("enginectl")
	zerolog.SetGlobalLevel(observability.ParseLevel(cfg.LogLevel))
	observability.RegisterMetrics()

	if err := engine.InitRuntime(engine.RuntimeOptions{AppName: cfg.Node}); err != nil {
		return err
	}
	defer engine.ShutdownRuntime()

	var bundle []byte
	if cfg.BundlePath != "" {
		data, err := os.ReadFile(cfg.BundlePath)
		if err != nil {
			return fmt.Errorf("read asset bundle: %w", err)
		}
		bundle = data
	}

	metrics := scene.ViewportMetrics{
		PhysicalWidth:    cfg.ViewportWidth,
		PhysicalHeight:   cfg.ViewportHeight,
		DevicePixelRatio: cfg.DevicePixelRatio,
	}

	producer := &simProducer{log: logger}
	host := newSimHost(metrics, cfg.FrameInterval, logger)

	eng, err := engine.New(engine.Config{
		Producer: producer,
		Host:     host,
		Logger:   logger,
		Bundle:   bundle,
	})
	if err != nil {
		return err
	}
	producer.attach(eng.Controller())
	host.start(eng.OnInvalidation)

	srv := &http.Server{
		Addr:    cfg.AdminListenAddr,
		Handler: newAdminRouter(cfg.Node, eng, logger),
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.AdminListenAddr).Msg("admin server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		host.Close()
		eng.Close()
		return err
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	}

	host.Close()
	eng.Close()

	st := eng.Stats()
	logger.Info().
		Uint64("frames_completed", st.Pipeline.FramesCompleted).
		Uint64("frames_presented", st.Rasterizer.FramesPresented).
		Msg("final frame counts")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return nil
}
