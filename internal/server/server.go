// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"diet-planner/pkg/logger"
)

// PlanPath is where the plan-generation endpoint is mounted.
const PlanPath = "/api/ai"

type Server struct {
	server    *http.Server
	generator PlanGenerator
	logger    *logger.Logger
}

type Options struct {
	Port           string
	AllowedOrigins []string
	// StripeWebhook is mounted at /webhook/stripe when set.
	StripeWebhook http.HandlerFunc
}

func NewServer(opts Options, generator PlanGenerator, logger *logger.Logger) *Server {
	s := &Server{
		generator: generator,
		logger:    logger,
	}

	r := mux.NewRouter()
	r.Use(requestID, s.logRequests)

	r.HandleFunc(PlanPath, s.handleGeneratePlan).Methods(http.MethodPost)

	if opts.StripeWebhook != nil {
		r.HandleFunc("/webhook/stripe", opts.StripeWebhook).Methods(http.MethodPost)
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	handler := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}).Handler(r)

	s.server = &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 150 * time.Second, // plan generation is slow
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
