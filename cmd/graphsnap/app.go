package main

import (
	"log/slog"
	"time"

	"github.com/dshills/graphsnap/internal/config"
)

// app ties the settings to the engine that persists them.
type app struct {
	engine   *config.Engine
	settings *Settings
	logger   *slog.Logger
}

// open binds the settings and initializes the engine. The returned app is
// usable even when err is non-nil.
func open(dir string, logger *slog.Logger, tolerant bool) (*app, error) {
	e := config.New(dir, config.WithLogger(logger), config.WithTolerant(tolerant))
	s := &Settings{}
	s.bind(e)

	report, err := e.Initialize()
	for _, skipped := range report.Skipped {
		logger.Error("setting unavailable", "error", skipped)
	}
	return &app{engine: e, settings: s, logger: logger}, err
}

// commit stamps the edit and writes every setting back to its document.
func (a *app) commit() error {
	a.settings.LastEdit = time.Now().UTC().Truncate(time.Second)
	a.settings.Edits++
	return a.engine.Refresh()
}
