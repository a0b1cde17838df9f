package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leoxtc/jsm-tui/pkg/api"
	"github.com/leoxtc/jsm-tui/pkg/config"
	"github.com/leoxtc/jsm-tui/pkg/jsm"
	"github.com/leoxtc/jsm-tui/pkg/logging"
	"github.com/leoxtc/jsm-tui/pkg/services"
	"github.com/leoxtc/jsm-tui/pkg/tui"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logging.Setup(settings.LogLevel, settings.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logrus.Info("Starting JSM alerts TUI")

	client, err := jsm.NewClient(settings)
	if err != nil {
		logrus.Fatalf("Failed to create JSM client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := services.NewAlertStore(settings.ConflictRefreshLimit)
	coordinator := services.NewActionCoordinator(client, store, nil, settings.RequestTimeout(), settings.APIEmail)
	scheduler := services.NewRefreshScheduler(client, store, nil, settings.RefreshInterval(), settings.RequestTimeout())

	app := tui.NewApp(coordinator, scheduler)
	coordinator.SetSink(app)
	scheduler.SetSink(app)

	var statusServer *api.Server
	if settings.StatusAPIEnabled {
		statusServer = api.NewServer(store, settings.StatusAPIPort)
		go func() {
			if err := statusServer.Start(); err != nil {
				logrus.Errorf("Status API stopped: %v", err)
			}
		}()
	}

	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logrus.Errorf("Refresh loop halted: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Errorf("Dashboard exited with error: %v", err)
	}
	stop()

	// In-flight gateway calls are abandoned; their late completions no-op
	// against the closed store.
	store.Close()

	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("Status API shutdown: %v", err)
		}
	}

	logrus.Info("Closing JSM alerts TUI")
}
