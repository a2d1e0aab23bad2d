package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"listening-review/internal/handlers"
	"listening-review/internal/middleware"
	"listening-review/internal/websocket"
)

func New(
	screenAuth *middleware.JWTAuth,
	reviewHandler *handlers.ReviewHandler,
	wsHub *websocket.Hub,
	startLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(reviewHandler.Fail))
	r.Use(middleware.CORS(frontendURL))

	screenAuth.OnError = reviewHandler.Fail
	startLimiter.OnError = reviewHandler.Fail

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/review", func(r chi.Router) {
		r.Get("/", reviewHandler.Page)

		// ──── WebSocket (authenticates its own token) ────
		r.Get("/ws", wsHub.HandleWebSocket)

		// ──── Screen-scoped routes ────
		r.Group(func(r chi.Router) {
			r.Use(screenAuth.Middleware)
			r.Get("/score-trend", reviewHandler.ScoreTrend)
			r.Post("/leave", reviewHandler.Leave)

			r.Route("/questions", func(r chi.Router) {
				r.Post("/close", reviewHandler.CloseQuestion)
				r.Get("/{id}", reviewHandler.OpenQuestion)
				r.Post("/{id}/answer", reviewHandler.Answer)
			})

			r.With(startLimiter.Middleware).Post("/start", reviewHandler.Start)
		})
	})

	return r
}
