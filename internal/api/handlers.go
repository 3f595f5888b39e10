package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/catalogservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *catalogservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *catalogservice.Service) *Handler {
	return &Handler{svc: svc}
}

// unitID extracts and validates the unit id path parameter.
func unitID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// ImportUnits handles POST /imports.
//
//	@Summary		Import or update catalog units
//	@Tags			units
//	@Accept			json
//	@Param			body	body		ImportRequest	true	"Units sharing one updateDate"
//	@Success		200		"Batch applied"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/imports [post]
func (h *Handler) ImportUnits(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationFailed(w)
		return
	}
	if req.UpdateDate == nil {
		writeValidationFailed(w)
		return
	}
	if err := h.svc.ImportBatch(r.Context(), req.Items, time.Time(*req.UpdateDate)); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeValidationFailed(w)
			return
		}
		slog.Error("import failed", slog.String("error", err.Error()))
		writeInternal(w)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetNode handles GET /nodes/{id}.
//
//	@Summary		Get a unit with its descendant tree and derived prices
//	@Tags			units
//	@Produce		json
//	@Param			id	path		string	true	"Unit id (UUID)"
//	@Success		200	{object}	NodeResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(r)
	if !ok {
		writeValidationFailed(w)
		return
	}
	node, err := h.svc.GetUnit(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeNotFound(w)
			return
		}
		slog.Error("get node failed", slog.String("id", id), slog.String("error", err.Error()))
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, toNodeResponse(node))
}

// DeleteNode handles DELETE /delete/{id}.
//
//	@Summary		Delete a unit and every descendant
//	@Tags			units
//	@Param			id	path	string	true	"Unit id (UUID)"
//	@Success		200	"Subtree deleted"
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/delete/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := unitID(r)
	if !ok {
		writeValidationFailed(w)
		return
	}
	if err := h.svc.DeleteUnit(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeNotFound(w)
			return
		}
		slog.Error("delete node failed", slog.String("id", id), slog.String("error", err.Error()))
		writeInternal(w)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Sales handles GET /sales.
//
//	@Summary		List offers updated within 24 hours of the given time
//	@Tags			sales
//	@Produce		json
//	@Param			date	query		string	true	"Window end (ISO-8601)"
//	@Success		200		{object}	SalesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sales [get]
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(time.RFC3339, r.URL.Query().Get("date"))
	if err != nil {
		writeValidationFailed(w)
		return
	}
	offers, err := h.svc.Sales(r.Context(), date)
	if err != nil {
		slog.Error("sales failed", slog.String("error", err.Error()))
		writeInternal(w)
		return
	}
	items := make([]UnitResponse, len(offers))
	for i, u := range offers {
		items[i] = toUnitResponse(u)
	}
	writeJSON(w, http.StatusOK, SalesResponse{Items: items})
}

// SearchUnits handles GET /search.
//
//	@Summary		Search units by name
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) SearchUnits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeValidationFailed(w)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
