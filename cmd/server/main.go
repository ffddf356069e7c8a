package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/formstudio/internal/activity"
	"github.com/matthewbaird/formstudio/internal/backend"
	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/config"
	"github.com/matthewbaird/formstudio/internal/draft"
	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/event"
	"github.com/matthewbaird/formstudio/internal/eventbus"
	"github.com/matthewbaird/formstudio/internal/handler"
	"github.com/matthewbaird/formstudio/internal/render"
	"github.com/matthewbaird/formstudio/internal/schema"
	"github.com/matthewbaird/formstudio/internal/server"
	"github.com/matthewbaird/formstudio/internal/session"
	"github.com/matthewbaird/formstudio/internal/wire"
)

const sessionSweepInterval = time.Minute

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load(".env")
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("opening database")
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	drafts := draft.NewSQLStore(db)
	sqlTemplates := checklist.NewSQLTemplateStore(db)
	history := activity.NewSQLStore(db)
	for name, create := range map[string]func(context.Context) error{
		"drafts":    drafts.CreateTable,
		"templates": sqlTemplates.CreateTable,
		"activity":  history.CreateTable,
	} {
		if err := create(ctx); err != nil {
			log.WithError(err).WithField("table", name).Fatal("creating table")
		}
	}
	log.Info("database ready")

	templates, err := checklist.NewCachedTemplateStore(sqlTemplates, cfg.TemplateCacheSize)
	if err != nil {
		log.WithError(err).Fatal("creating template cache")
	}

	renderer, err := render.New()
	if err != nil {
		log.WithError(err).Fatal("parsing templates")
	}
	validator, err := schema.NewPayloadValidator()
	if err != nil {
		log.WithError(err).Fatal("compiling form definition")
	}

	hub := wire.NewHub()
	bus := eventbus.New(cfg.EventBuffer)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("wire", hub)
	bus.Start(ctx)
	defer bus.Stop()

	recorder := event.NewActivityRecorder(history)
	recorder.SetPublisher(bus)

	blobs := checklist.NewMemoryBlobStore()
	sessions := session.NewManager(cfg.SessionMaxAge, cfg.SessionIdle, func(s *session.Session) {
		log.WithField("session_id", s.ID).Info("session expired")
	})
	go sessions.Run(ctx, sessionSweepInterval)

	deps := editor.Deps{
		Sessions:  sessions,
		Drafts:    drafts,
		Templates: templates,
		Blobs:     blobs,
		Recorder:  recorder,
		Validator: validator,
		Renderer:  renderer,
		BlobHref:  handler.BlobHref,
	}
	if cfg.BackendURL != "" {
		client, err := backend.New(backend.Config{
			BaseURL: cfg.BackendURL,
			Token:   cfg.BackendToken,
			Timeout: cfg.BackendTimeout,
		})
		if err != nil {
			log.WithError(err).Fatal("configuring backend client")
		}
		deps.Forms = client
	} else {
		log.Warn("BACKEND_URL not set: saving and loading backend forms is disabled")
	}

	if err := server.Run(ctx, server.Config{
		Port:      cfg.Port,
		Editor:    editor.New(deps),
		Templates: templates,
		Blobs:     blobs,
		Hub:       hub,
		History:   history,
		Drafts:    drafts,
	}); err != nil {
		log.WithError(err).Error("server error")
		os.Exit(1)
	}
}
