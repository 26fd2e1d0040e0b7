package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/report"
	"github.com/conorfennell/taxtutor/internal/tutor"
)

type conversationResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
	Stats    tutor.Stats          `json:"stats"`
}

func (s *Server) handleGetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs := s.store.ChatMessages()
		if msgs == nil {
			msgs = []domain.ChatMessage{}
		}
		s.writeJSON(w, http.StatusOK, conversationResponse{Messages: msgs, Stats: tutor.ConversationStats(msgs)})
	}
}

func (s *Server) handleClearConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.tutor.Clear(r.Context())
		s.persistWarning(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleExportConversation downloads the conversation, or only the messages
// listed in ?indices=0,2,5.
func (s *Server) handleExportConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := s.now()
		msgs := s.store.ChatMessages()
		raw := r.URL.Query().Get("indices")
		if raw == "" {
			s.writeDownload(w, report.ChatFilename(now, false), report.ExportChat(msgs, now))
			return
		}
		var indices []int
		for _, part := range strings.Split(raw, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "indices must be a comma separated list of integers")
				return
			}
			indices = append(indices, i)
		}
		s.writeDownload(w, report.ChatFilename(now, true), report.ExportSelected(msgs, indices, now))
	}
}

// handleImportConversation replaces the conversation with an exported one.
func (s *Server) handleImportConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		msgs, err := report.ParseChatImport(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.tutor.Replace(r.Context(), msgs)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, map[string]int{"imported": len(msgs)})
	}
}

func messageIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || i < 0 {
		return 0, errors.New("index must be a non-negative integer")
	}
	return i, nil
}

func (s *Server) handleEditMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := messageIndex(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req struct {
			Content string `json:"content"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.tutor.Edit(r.Context(), i, req.Content) == domain.NotFound {
			http.NotFound(w, r)
			return
		}
		s.persistWarning(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := messageIndex(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.tutor.Delete(r.Context(), i) == domain.NotFound {
			http.NotFound(w, r)
			return
		}
		s.persistWarning(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

type tutorResponse struct {
	Message domain.ChatMessage `json:"message"`
	Error   string             `json:"error,omitempty"`
}

func (s *Server) tutorReady(w http.ResponseWriter) bool {
	if s.llm == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no language model configured")
		return false
	}
	return true
}

// handleTutor records a user message and the tutor's reply. A failed reply is
// still recorded as a readable assistant message and reported in "error".
func (s *Server) handleTutor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.tutorReady(w) {
			return
		}
		var req struct {
			Message string `json:"message"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		msg, err := s.tutor.Send(r.Context(), req.Message, nil)
		s.writeTutorReply(w, msg, err)
	}
}

func (s *Server) handleTutorRetry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.tutorReady(w) {
			return
		}
		msg, err := s.tutor.Retry(r.Context(), nil)
		s.writeTutorReply(w, msg, err)
	}
}

func (s *Server) writeTutorReply(w http.ResponseWriter, msg domain.ChatMessage, err error) {
	switch {
	case errors.Is(err, tutor.ErrEmptyMessage), errors.Is(err, tutor.ErrNothingToRetry):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Warn("tutor reply failed", "error", err)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, tutorResponse{Message: msg, Error: err.Error()})
		return
	}
	s.persistWarning(w)
	s.writeJSON(w, http.StatusOK, tutorResponse{Message: msg})
}

// handleTutorStream is handleTutor with the reply streamed as server-sent
// events. The recorded message follows the tokens as a "message" event.
func (s *Server) handleTutorStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.llm == nil {
			newEventStream(w, http.StatusServiceUnavailable).event("error", "no language model configured")
			return
		}
		var req struct {
			Message string `json:"message"`
		}
		if err := decode(w, r, &req); err != nil {
			newEventStream(w, http.StatusBadRequest).event("error", err.Error())
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			newEventStream(w, http.StatusBadRequest).event("error", tutor.ErrEmptyMessage.Error())
			return
		}

		es := newEventStream(w, http.StatusOK)
		msg, err := s.tutor.Send(r.Context(), req.Message, es.token)
		es.jsonEvent("message", msg)
		if err != nil {
			es.jsonEvent("error", err.Error())
			return
		}
		es.done()
	}
}
