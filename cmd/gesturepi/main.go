// Command gesturepi watches a camera, classifies the hand in view as no hand,
// a closed fist or an open hand, and publishes every change to a state file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/gesturepi/internal/app"
	"github.com/ayusman/gesturepi/internal/capture"
	"github.com/ayusman/gesturepi/internal/config"
	"github.com/ayusman/gesturepi/internal/detector"
	"github.com/ayusman/gesturepi/internal/gesture"
	"github.com/ayusman/gesturepi/internal/logging"
	"github.com/ayusman/gesturepi/internal/plugin"
	"github.com/ayusman/gesturepi/internal/publish"
	"github.com/ayusman/gesturepi/internal/server"
	"github.com/ayusman/gesturepi/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	preset := flag.String("preset", "", "pipeline preset when no config file is given (intensity-depth, skin-angle)")
	stateFile := flag.String("state-file", "", "override the published state file")
	addr := flag.String("addr", "", "override the status server address")
	logLevel := flag.String("log-level", "", "override the log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gesturepi: %v\n", err)
		os.Exit(2)
	}
	if *stateFile != "" {
		cfg.StateFile = *stateFile
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gesturepi: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gesturepi stopped", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("gesturepi stopped")
}

func loadConfig(path, preset string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if preset != "" {
		return config.Preset(preset)
	}
	return config.Default(), nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	det, err := detector.NewContourDetector(cfg.Detector())
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	defer det.Close()

	classifier, err := gesture.NewClassifier(cfg.Classifier.MinGapsForOpenHand)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	publisher := publish.NewPublisher(cfg.StateFile, cfg.LockTimeout)

	a, err := app.New(app.Config{
		Camera:       capture.NewCamera(cfg.CameraOptions()),
		Detector:     det,
		Classifier:   classifier,
		Publisher:    publisher,
		PollInterval: cfg.PollInterval,
		LockTimeout:  cfg.LockTimeout,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Store.Enabled {
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		logger.Info("recording transitions", "path", st.Path())
	}

	serverDone := make(chan error, 1)
	if cfg.Server.Addr != "" {
		srv := server.New(server.Config{
			StateFile: cfg.StateFile,
			Publisher: publisher,
			Store:     st,
			Phase:     func() string { return a.Phase().String() },
			Logger:    logger,
		})
		a.Observe(func(tr app.Transition) {
			srv.Notify(app.StoreTransition(tr))
		})
		go func() {
			err := srv.ListenAndServe(ctx, cfg.Server.Addr)
			if err != nil {
				// A failed status server stops the loop.
				cancel()
			}
			serverDone <- err
		}()
	} else {
		if st != nil {
			a.Observe(app.RecordTransitions(st.Transitions(), logger))
		}
		close(serverDone)
	}

	if cfg.Plugins.Dir != "" {
		manager := plugin.NewManager(cfg.Plugins.Dir, logger)
		if err := manager.Discover(); err != nil {
			return fmt.Errorf("discover plugins: %w", err)
		}
		hooks := plugin.NewHooks(manager, plugin.NewExecutor(cfg.Plugins.Timeout), logger)
		defer hooks.Wait()
		a.Observe(app.FireHooks(ctx, hooks))
		logger.Info("plugins loaded", "dir", manager.PluginDir(), "count", len(manager.List()))
	}

	logger.Info("gesturepi started",
		"preset", cfg.Preset,
		"state_file", cfg.StateFile,
		"strategy", cfg.Segmentation.Strategy,
		"rule", cfg.Fingers.Rule,
	)

	runErr := a.Run(ctx)
	cancel()

	var serveErr error
	if err := <-serverDone; err != nil {
		serveErr = fmt.Errorf("status server: %w", err)
	}
	return errors.Join(runErr, serveErr)
}
