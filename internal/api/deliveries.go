package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/inboxmailer/internal/service"
)

const defaultDeliveryLimit = 50

// handleListDeliveries returns recent delivery log entries, newest first.
// Accepts an optional ?limit=N query parameter (default 50).
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	records, err := s.deliverySvc.List(r.Context(), limit)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		s.logger.Error("list deliveries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.deliverySvc.Get(r.Context(), id)
	if err != nil {
		var nf *service.NotFoundError
		var ve *service.ValidationError
		switch {
		case errors.As(err, &nf):
			writeError(w, http.StatusNotFound, nf.Error())
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, ve.Error())
		default:
			s.logger.Error("get delivery failed", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to get delivery")
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
