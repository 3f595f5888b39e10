package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fehu/internal/catalogservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *catalogservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalog operations.
	r.Post("/imports", h.ImportUnits)
	r.Get("/nodes/{id}", h.GetNode)
	r.Delete("/delete/{id}", h.DeleteNode)

	// Sales window query.
	r.Get("/sales", h.Sales)

	// Name search.
	r.Get("/search", h.SearchUnits)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
