package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/gcbaptista/notes-discovery/api"
	"github.com/gcbaptista/notes-discovery/internal/analytics"
	"github.com/gcbaptista/notes-discovery/internal/jobs"
	"github.com/gcbaptista/notes-discovery/internal/ledger"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/session"
	"github.com/gcbaptista/notes-discovery/model"
)

const shutdownTimeout = 10 * time.Second

func serveCommand(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	log, err := logger.New(settings.Server.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	src, closeSource, err := openSource(settings.Source, log)
	if err != nil {
		return err
	}
	defer closeSource()

	sess, err := session.New(src, settings, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	store, memStore, closeStore, err := openLedgerStore(settings.Ledger, log)
	if err != nil {
		return err
	}
	defer closeStore()
	ldg := ledger.New(store, sess, settings.Ledger, log)
	defer func() {
		if err := ldg.Close(); err != nil {
			log.Error("Failed to close ledger", "error", err)
		}
	}()
	sess.SetEntitlements(ldg)

	var tracker *analytics.Service
	if settings.Analytics.Enabled {
		tracker = analytics.NewService(sess, settings.Analytics.DataFile, settings.Analytics.MaxEvents, log)
	}
	saver := snapshotSaver{ledger: memStore, analytics: tracker}
	defer func() {
		if _, err := saver.save(context.Background(), ""); err != nil {
			log.Error("Failed to save snapshots on shutdown", "error", err)
		}
	}()

	jobManager := jobs.NewManager(settings.Jobs.MaxWorkers, settings.Jobs.Retention, log)
	jobManager.Start()
	defer jobManager.Stop()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if settings.Jobs.SnapshotInterval > 0 && saver.enabled() {
		go scheduleSnapshots(ctx, jobManager, saver, settings.Jobs.SnapshotInterval, log)
	}

	if settings.Server.LogMode == "prod" || settings.Server.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(log),
		api.MetricsMiddleware(),
		api.CORSMiddleware(),
		api.RequestSizeLimitMiddleware(settings.Server.MaxRequestBytes),
	)
	api.SetupRoutes(router, api.Dependencies{
		Searcher:  sess,
		Corpus:    sess,
		Ledger:    ldg,
		Jobs:      jobManager,
		Analytics: tracker,
		Logger:    log,
	})

	server := &http.Server{
		Addr:              ":" + settings.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", "port", settings.Server.Port, "source", settings.Source.Driver, "ledger", settings.Ledger.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// snapshotSaver persists the in-memory state that would otherwise be lost
// on restart. Either part may be nil.
type snapshotSaver struct {
	ledger    *ledger.MemoryStore
	analytics *analytics.Service
}

func (s snapshotSaver) enabled() bool {
	return s.ledger != nil || s.analytics != nil
}

// save matches jobs.Func so it can run as a snapshot_save job.
func (s snapshotSaver) save(_ context.Context, _ string) (interface{}, error) {
	var saved []string
	if s.ledger != nil {
		if err := s.ledger.Save(); err != nil {
			return nil, err
		}
		saved = append(saved, "ledger")
	}
	if s.analytics != nil {
		if err := s.analytics.Save(); err != nil {
			return nil, err
		}
		saved = append(saved, "analytics")
	}
	return map[string]interface{}{"saved": saved}, nil
}

func scheduleSnapshots(ctx context.Context, manager *jobs.Manager, saver snapshotSaver, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := manager.Submit(model.JobTypeSnapshotSave, map[string]string{"trigger": "schedule"}, saver.save); err != nil {
				log.Warn("Failed to schedule snapshot save", "error", err)
				return
			}
		}
	}
}
