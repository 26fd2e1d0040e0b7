package web

import (
	"errors"
	"net/http"

	"github.com/conorfennell/taxtutor/internal/decksync"
	"github.com/conorfennell/taxtutor/internal/domain"
)

type syncResult struct {
	decksync.Report
	Error string `json:"error,omitempty"`
}

func syncResults(reports []decksync.Report) []syncResult {
	out := make([]syncResult, len(reports))
	for i, r := range reports {
		out[i] = syncResult{Report: r, Error: r.Failure()}
	}
	return out
}

func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources := s.store.DeckSources()
		if sources == nil {
			sources = []domain.DeckSource{}
		}
		s.writeJSON(w, http.StatusOK, sources)
	}
}

func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
			Type string `json:"type"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		src, err := decksync.NewSource(req.Path, req.Type)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		src, _ = s.store.AddDeckSource(r.Context(), src)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusCreated, src)
	}
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store.RemoveDeckSource(r.Context(), r.PathValue("id")) == domain.NotFound {
			http.NotFound(w, r)
			return
		}
		s.persistWarning(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync reconciles every source in the foreground.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := s.syncer.SyncAll(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, syncResults(reports))
	}
}

func (s *Server) handleSyncSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := s.syncer.SyncSource(r.Context(), r.PathValue("id"))
		if errors.Is(err, decksync.ErrUnknownSource) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, syncResults([]decksync.Report{rep})[0])
	}
}
