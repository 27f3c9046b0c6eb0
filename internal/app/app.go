// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component. Setup builds
// the full graph from configuration; Close releases it in reverse order.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/parley/internal/api"
	"github.com/koopa0/parley/internal/auth"
	"github.com/koopa0/parley/internal/chat"
	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/log"
	"github.com/koopa0/parley/internal/settings"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool     *pgxpool.Pool
	Store      *conversation.Store
	Settings   settings.Store
	Controller *chat.Controller
	Auth       *auth.HMACProvider
	Server     *api.Server

	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.Logger.Debug("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
