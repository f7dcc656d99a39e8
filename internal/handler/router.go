package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lumenchat/lumen/backend/internal/handler/conversation"
	"github.com/lumenchat/lumen/backend/internal/handler/ws"
	middlewarePkg "github.com/lumenchat/lumen/backend/internal/middleware"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(convHandler *conversation.Handler, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		convHandler.RegisterRoutes(api)
	})

	wsHandler.RegisterRoutes(r)

	return r
}
