package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mrwolf/mood-server/internal/config"
	"github.com/mrwolf/mood-server/internal/db"
	"github.com/mrwolf/mood-server/internal/journal"
	"github.com/mrwolf/mood-server/internal/logger"
)

func NewRouter(cfg *config.Config, svc *journal.Service, database *db.DB, log *logger.Logger) *chi.Mux {
	if log == nil {
		log = logger.Nop()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(LoggingMiddleware(log.Component("http")))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(JSONContentType)

	handlers := NewHandlers(cfg, svc, database, log)
	limiter := NewRateLimiter(cfg.RateLimit, time.Minute, nil)

	// Public endpoints, same paths the mobile client already uses
	r.Get("/", handlers.Root)
	r.Get("/health", handlers.Health)
	r.Post("/add_entry", handlers.AddEntry)
	r.Get("/predict_next_mood", handlers.PredictNextMood)

	// API v1 routes (authenticated when a token is configured)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg))

		r.With(RateLimitMiddleware(limiter)).Post("/entries", handlers.AddEntry)
		r.Get("/entries", handlers.Entries)
		r.Get("/predict", handlers.PredictNextMood)
		r.Get("/model", handlers.Model)
		r.Get("/trends", handlers.Trends)
		r.Get("/training-runs", handlers.TrainingRuns)
		r.With(RateLimitMiddleware(limiter)).Post("/chat", handlers.Chat)
	})

	return r
}
