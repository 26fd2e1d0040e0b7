package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/llm"
	"github.com/conorfennell/taxtutor/internal/tutor"
)

const missingKeyMessage = "GROQ_API_KEY is missing on server"

type healthResponse struct {
	OK     bool     `json:"ok"`
	Models []string `json:"models,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// handleHealth reports whether the backend is reachable and lists its models.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.llm == nil || !s.llm.Configured() {
			s.writeJSON(w, http.StatusInternalServerError, healthResponse{Error: "GROQ_API_KEY missing"})
			return
		}
		models, err := s.llm.Models(r.Context())
		if err != nil {
			s.log.Error("health check failed", "error", err)
			s.writeJSON(w, http.StatusInternalServerError, healthResponse{Error: err.Error()})
			return
		}
		if models == nil {
			models = []string{}
		}
		s.writeJSON(w, http.StatusOK, healthResponse{OK: true, Models: models})
	}
}

type chatRequest struct {
	Messages *[]domain.ChatMessage `json:"messages"`
}

func decodeMessages(w http.ResponseWriter, r *http.Request) ([]domain.ChatMessage, error) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		return nil, err
	}
	if req.Messages == nil {
		return nil, errors.New("messages must be an array")
	}
	for i, m := range *req.Messages {
		if err := domain.Validate(m); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return *req.Messages, nil
}

// handleChat forwards a conversation and returns the complete reply.
func (s *Server) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := decodeMessages(w, r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if s.llm == nil || !s.llm.Configured() {
			s.writeError(w, http.StatusInternalServerError, missingKeyMessage)
			return
		}

		content, err := s.llm.Complete(r.Context(), tutor.WithSystemPrompt(msgs, s.prompt))
		if err != nil && !errors.Is(err, llm.ErrEmptyCompletion) {
			s.log.Error("chat completion failed", "error", err)
			s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Failed to get response from the model", Details: err.Error()})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"content": content})
	}
}

// handleChatStream relays the reply token by token as server-sent events.
func (s *Server) handleChatStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := decodeMessages(w, r)
		if err != nil {
			newEventStream(w, http.StatusBadRequest).event("error", err.Error())
			return
		}
		if s.llm == nil || !s.llm.Configured() {
			newEventStream(w, http.StatusInternalServerError).event("error", missingKeyMessage)
			return
		}

		es := newEventStream(w, http.StatusOK)
		_, err = s.llm.Stream(r.Context(), tutor.WithSystemPrompt(msgs, s.prompt), es.token)
		if err != nil {
			s.log.Error("chat stream failed", "error", err)
			es.jsonEvent("error", err.Error())
			return
		}
		es.done()
	}
}

// eventStream writes server-sent events, flushing after each one.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter, status int) *eventStream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(status)
	f, _ := w.(http.Flusher)
	return &eventStream{w: w, flusher: f}
}

func (e *eventStream) write(frame string) {
	_, _ = fmt.Fprint(e.w, frame)
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

func (e *eventStream) token(tok string) {
	raw, _ := json.Marshal(map[string]string{"token": tok})
	e.write("data: " + string(raw) + "\n\n")
}

func (e *eventStream) event(name, data string) {
	e.write("event: " + name + "\ndata: " + data + "\n\n")
}

// jsonEvent sends data encoded as a JSON value.
func (e *eventStream) jsonEvent(name string, data any) {
	raw, _ := json.Marshal(data)
	e.event(name, string(raw))
}

func (e *eventStream) done() {
	e.event("done", "[DONE]")
}
