// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/activity"
	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/handler"
	"github.com/matthewbaird/formstudio/internal/wire"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Port      int
	Editor    *editor.Service
	Templates checklist.TemplateStore
	Blobs     handler.BlobReader
	Hub       *wire.Hub
	History   activity.Store      // optional
	Drafts    handler.DraftLister // optional
}

// NewRouter registers every route on a chi router wrapped in the logging and
// recovery middleware.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	sh := handler.NewSessionHandler(cfg.Editor)
	ch := handler.NewChecklistHandler(cfg.Editor, cfg.Blobs)
	ws := wire.NewHandler(cfg.Editor, cfg.Hub)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", sh.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sh.GetSession)
			r.Delete("/", sh.DeleteSession)
			r.Post("/ops", sh.ApplyOp)
			r.Get("/form", sh.GetForm)
			r.Post("/save", sh.SaveForm)
			r.Post("/import", sh.ImportForm)
			r.Get("/preview", sh.Preview)
			r.Get("/ws", ws.ServeHTTP)

			r.Route("/fields/{fieldID}", func(r chi.Router) {
				r.Post("/checklist", ch.ApplyChecklist)
				r.Post("/cells", ch.ApplyCell)
				r.Get("/responses", ch.GetResponses)
				r.Post("/responses", ch.SubmitResponses)
				r.Post("/attachments", ch.AddAttachment)
				r.Delete("/attachments", ch.RemoveAttachment)
				r.Get("/report.xlsx", ch.Report)
			})
		})
	})
	r.Get("/v1/blobs/{key}", ch.GetBlob)

	th := handler.NewTemplateHandler(cfg.Templates)
	r.Get("/v1/checklist-templates", th.ListTemplates)
	r.Post("/v1/checklist-templates", th.CreateTemplate)
	r.Get("/v1/checklist-templates/{id}", th.GetTemplate)
	r.Delete("/v1/checklist-templates/{id}", th.DeleteTemplate)

	if cfg.History != nil {
		hh := handler.NewHistoryHandler(cfg.History)
		r.Get("/v1/history/{entity_type}/{entity_id}", hh.GetEntityHistory)
		r.Post("/v1/history/search", hh.SearchHistory)
	}
	if cfg.Drafts != nil {
		r.Get("/v1/drafts", handler.NewDraftHandler(cfg.Drafts).ListDrafts)
	}

	return handler.Recovery(handler.Logging(r))
}

// Run starts the HTTP server with all routes registered and shuts it down
// when ctx is cancelled. It returns once in-flight requests have finished or
// the shutdown timeout has passed.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithField("addr", addr).Info("starting server")

	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	<-stopped
	return nil
}
