package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/storyarc/internal/middleware"
)

// Router bundles the handlers mounted by NewRouter.
type Router struct {
	Health    *HealthHandler
	Stories   *StoryHandler
	Events    *EventsHandler
	WebSocket *WebSocketHandler
	Origins   []string
	Logger    *slog.Logger
}

// NewRouter builds the API route table.
func NewRouter(rt Router) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger(rt.Logger))
	r.Use(middleware.CORS(rt.Origins))

	r.Method(http.MethodGet, "/health", rt.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/settings", rt.Stories.Settings)

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", rt.Stories.List)
			r.Post("/", rt.Stories.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.Stories.Get)
				r.Delete("/", rt.Stories.Delete)
				r.Post("/choices/{choiceID}", rt.Stories.Choose)
				r.Post("/advance", rt.Stories.Advance)
				r.Post("/share", rt.Stories.Share)
			})
		})
		r.Get("/shared/{token}", rt.Stories.Shared)

		if rt.Events != nil {
			r.Method(http.MethodGet, "/events/stories/{id}", rt.Events)
		}
		if rt.WebSocket != nil {
			r.Method(http.MethodGet, "/ws/stories/{id}", rt.WebSocket)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, rt.Logger, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, rt.Logger, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
