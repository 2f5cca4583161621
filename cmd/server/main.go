package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"carpool/internal/api"
	"carpool/internal/api/handlers"
	"carpool/internal/api/middleware"
	"carpool/internal/config"
	"carpool/internal/logging"
	"carpool/internal/repository/flatfile"
	"carpool/internal/repository/memory"
	"carpool/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile    string
		dataDir    string
		port       string
		restore    bool
		exportPath string
	)
	flagSet := pflag.NewFlagSet("carpool", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "optional .env file read before the environment")
	flagSet.StringVar(&dataDir, "data-dir", "", "directory holding drivers.csv, passengers.csv and trips.csv")
	flagSet.StringVar(&port, "port", "", "listen address, e.g. :8080")
	flagSet.BoolVar(&restore, "restore", false, "replace the live files with their newest backups and exit")
	flagSet.StringVar(&exportPath, "export", "", "write a spreadsheet report of all trips to this path and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Store.DataDir = dataDir
		if os.Getenv("STORE_BACKUP_DIR") == "" {
			cfg.Store.BackupDir = ""
		}
	}
	if port != "" {
		if !strings.Contains(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}

	log := logging.New(cfg.Log)
	store := flatfile.New(cfg.Store, log, flatfile.WithDelimiter(cfg.Store.DelimiterRune()))

	if restore {
		restored, err := store.RestoreFromBackup()
		if err != nil {
			return err
		}
		log.WithField("files", restored).Info("restore complete")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	graph, report, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading store: %w", err)
	}
	if report.SkippedCount() > 0 {
		log.WithField("skipped", report.SkippedCount()).Warn("some records could not be loaded")
	}

	if exportPath != "" {
		if err := flatfile.ExportTripsFile(exportPath, graph.Trips); err != nil {
			return fmt.Errorf("exporting trips: %w", err)
		}
		log.WithFields(logrus.Fields{"path": exportPath, "trips": len(graph.Trips)}).Info("export complete")
		return nil
	}

	// Initialize repositories and services
	reservationService := services.NewReservationService(
		memory.NewIdentityRepository(),
		memory.NewTripRepository(),
		services.NewNotificationService(log),
	)
	if err := reservationService.Restore(ctx, graph); err != nil {
		return fmt.Errorf("restoring graph: %w", err)
	}
	authService := services.NewAuthService(reservationService, cfg.Auth.BcryptCost)
	persistence := services.NewPersistenceService(reservationService, store, cfg.Store.AutosaveInterval, log)

	// Initialize handlers and router
	router := api.NewRouter(
		reservationService,
		handlers.NewAccountHandler(authService),
		handlers.NewTripHandler(reservationService),
		handlers.NewDriverHandler(reservationService),
	)
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger(log))
	router.Setup(engine)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	persistence.Start(ctx)
	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("carpool server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("server shutdown incomplete")
	}
	persistence.Stop()

	// Final save so nothing since the last autosave is lost.
	if saveErr := persistence.SaveNow(shutdownCtx); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	return err
}
