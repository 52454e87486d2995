package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/gcbaptista/notes-discovery/config"
	"github.com/gcbaptista/notes-discovery/internal/database"
	"github.com/gcbaptista/notes-discovery/internal/ledger"
	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/source"
)

// loadSettings reads the settings file, if any, then applies flag and
// environment overrides and validates the result.
func loadSettings(c *cli.Context) (config.Settings, error) {
	settings := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return settings, err
		}
		settings = loaded
	}

	if c.IsSet("log-mode") {
		settings.Server.LogMode = c.String("log-mode")
	}
	if c.IsSet("seed-file") {
		settings.Source.SeedFile = c.String("seed-file")
	}
	if c.IsSet("source-dsn") {
		settings.Source.Driver = "postgres"
		settings.Source.DSN = c.String("source-dsn")
	}
	if c.IsSet("threshold") {
		settings.Match.Threshold = c.Float64("threshold")
	}

	// serve-only flags; unset on other commands
	if c.IsSet("port") {
		settings.Server.Port = c.String("port")
	}
	if c.IsSet("ledger-driver") {
		settings.Ledger.Driver = c.String("ledger-driver")
	}
	if c.IsSet("ledger-dsn") {
		settings.Ledger.DSN = c.String("ledger-dsn")
	}
	if c.IsSet("ledger-snapshot") {
		settings.Ledger.SnapshotPath = c.String("ledger-snapshot")
	}
	if c.IsSet("analytics-file") {
		settings.Analytics.Enabled = true
		settings.Analytics.DataFile = c.String("analytics-file")
	}
	if c.IsSet("corpus-ttl") {
		settings.Corpus.TTL = c.Duration("corpus-ttl")
	}

	if problems := settings.Validate(); len(problems) > 0 {
		return settings, fmt.Errorf("invalid settings:\n  %s", strings.Join(problems, "\n  "))
	}
	return settings, nil
}

// openSource builds the content collaborator. The returned close func
// releases any connection it opened.
func openSource(settings config.SourceSettings, log *logger.Logger) (source.ContentSource, func(), error) {
	switch settings.Driver {
	case "postgres":
		db, err := database.Open(database.DriverPostgres, settings.DSN, database.Options{}, log)
		if err != nil {
			return nil, nil, err
		}
		return source.NewGormSource(db, log), closeDB(db, log), nil
	default:
		if settings.SeedFile == "" {
			log.Warn("No seed file configured, the corpus will be empty")
			return source.NewStaticSource(source.Seed{}), func() {}, nil
		}
		src, err := source.LoadSeedFile(settings.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
}

// openLedgerStore builds the ledger's storage. saveable is the memory store
// when one is in use, so it can be snapshotted periodically.
func openLedgerStore(settings config.LedgerSettings, log *logger.Logger) (store ledger.Store, saveable *ledger.MemoryStore, closeFn func(), err error) {
	switch settings.Driver {
	case "sqlite", "postgres":
		db, err := database.Open(settings.Driver, settings.DSN, database.Options{}, log)
		if err != nil {
			return nil, nil, nil, err
		}
		gormStore, err := ledger.NewGormStore(db, log)
		if err != nil {
			_ = database.Close(db)
			return nil, nil, nil, err
		}
		return gormStore, nil, closeDB(db, log), nil
	default:
		memStore, err := ledger.NewMemoryStore(settings.SnapshotPath, log)
		if err != nil {
			return nil, nil, nil, err
		}
		return memStore, memStore, func() {}, nil
	}
}

func closeDB(db *gorm.DB, log *logger.Logger) func() {
	return func() {
		if err := database.Close(db); err != nil {
			log.Warn("Failed to close database", "error", err)
		}
	}
}
