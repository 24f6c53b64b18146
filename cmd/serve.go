package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for leaves, tasks, proposals, and monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	h := &apiHandlers{env: env, monitorConcurrency: 4}
	if cfg != nil {
		h.monitorConcurrency = cfg.Monitor.Concurrency
	}

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/leaves", h.listLeaves)
		r.Post("/leaves", h.createLeaf)
		r.Get("/leaves/{id}", h.getLeaf)
		r.Get("/leaves/{id}/coverage", h.leafCoverage)
		r.Post("/leaves/{id}/activate", h.activateLeaf)

		r.Get("/tasks", h.listTasks)
		r.Patch("/tasks/{id}", h.patchTask)

		r.Post("/proposals", h.submitProposal)

		r.Post("/monitor/check", h.monitorCheck)

		r.Get("/metrics", h.metrics)
		r.Get("/fiscal/metrics", h.fiscalMetrics)
		r.Get("/fiscal/alerts", h.fiscalAlerts)
	})

	return r
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
