package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"
)

func (s *Server) handleListHandlers(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	infos := s.handlers.List()
	respondList(w, reqID, infos, &model.Pagination{
		Total: len(infos),
		Limit: len(infos),
	})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes+1))
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Read body: " + err.Error(),
		})
		return
	}
	if len(body) > maxEventBytes {
		respondError(w, reqID, http.StatusRequestEntityTooLarge, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Event body too large",
		})
		return
	}

	result, err := s.handlers.Invoke(r.Context(), name, reqID, body)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, result)
}
