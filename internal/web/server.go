// Package web serves the JSON API and the chat relay.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/conorfennell/taxtutor/internal/decksync"
	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/logger"
	"github.com/conorfennell/taxtutor/internal/quiz"
	"github.com/conorfennell/taxtutor/internal/sm2"
	"github.com/conorfennell/taxtutor/internal/store"
	"github.com/conorfennell/taxtutor/internal/tutor"
)

const maxBodyBytes = 1 << 20

// ChatBackend is the language model the relay forwards to.
type ChatBackend interface {
	Configured() bool
	Models(ctx context.Context) ([]string, error)
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
	Stream(ctx context.Context, messages []domain.ChatMessage, onToken func(string)) (string, error)
}

type Options struct {
	Store        *store.Store
	LLM          ChatBackend
	Syncer       *decksync.Syncer
	SystemPrompt string
	Clock        func() time.Time
	Logger       *logger.Logger
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	store    *store.Store
	llm      ChatBackend
	tutor    *tutor.Tutor
	syncer   *decksync.Syncer
	engine   *sm2.Engine
	recorder *quiz.Recorder
	sessions studySessions
	prompt   string
	now      func() time.Time
	log      *logger.Logger
	router   *http.ServeMux
}

// NewServer creates and configures a new server.
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = tutor.DefaultSystemPrompt
	}

	s := &Server{
		store:    opts.Store,
		llm:      opts.LLM,
		syncer:   opts.Syncer,
		engine:   sm2.NewEngine(opts.Clock),
		recorder: quiz.NewRecorder(opts.Store),
		prompt:   opts.SystemPrompt,
		now:      opts.Clock,
		log:      opts.Logger.With("component", "web"),
		router:   http.NewServeMux(),
	}
	// Without a backend the tutor still edits the conversation; replies are refused by tutorReady.
	s.tutor = tutor.New(opts.Store, opts.LLM, tutor.Options{SystemPrompt: opts.SystemPrompt, Logger: opts.Logger})
	if s.syncer == nil {
		s.syncer = decksync.New(opts.Store, decksync.Options{Clock: opts.Clock, Logger: opts.Logger})
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	start := time.Now()
	s.router.ServeHTTP(w, r)
	s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	// Relay
	s.router.HandleFunc("GET /api/health", s.handleHealth())
	s.router.HandleFunc("POST /api/chat", s.handleChat())
	s.router.HandleFunc("POST /api/chat/stream", s.handleChatStream())

	// State
	s.router.HandleFunc("GET /api/state", s.handleGetState())
	s.router.HandleFunc("PUT /api/view", s.handlePutView())
	s.router.HandleFunc("GET /api/lessons", s.handleGetLessons())
	s.router.HandleFunc("POST /api/lessons/{index}/quiz", s.handlePostLessonQuiz())

	// Flashcards
	s.router.HandleFunc("GET /api/flashcards", s.handleListFlashcards())
	s.router.HandleFunc("POST /api/flashcards", s.handleCreateFlashcard())
	s.router.HandleFunc("GET /api/flashcards/stats", s.handleFlashcardStats())
	s.router.HandleFunc("GET /api/flashcards/{id}", s.handleGetFlashcard())
	s.router.HandleFunc("PATCH /api/flashcards/{id}", s.handlePatchFlashcard())
	s.router.HandleFunc("DELETE /api/flashcards/{id}", s.handleDeleteFlashcard())
	s.router.HandleFunc("POST /api/flashcards/{id}/review", s.handleReviewFlashcard())
	s.router.HandleFunc("GET /api/flashcards/{id}/preview", s.handlePreviewFlashcard())
	s.router.HandleFunc("POST /api/flashcards/{id}/duplicate", s.handleDuplicateFlashcard())

	// Study sessions
	s.router.HandleFunc("POST /api/study/sessions", s.handleCreateStudySession())
	s.router.HandleFunc("GET /api/study/sessions/{id}", s.handleGetStudySession())
	s.router.HandleFunc("POST /api/study/sessions/{id}/rate", s.handleRateStudySession())
	s.router.HandleFunc("DELETE /api/study/sessions/{id}", s.handleDeleteStudySession())

	// Practice and case lab
	s.router.HandleFunc("GET /api/questions", s.handleGetQuestions())
	s.router.HandleFunc("POST /api/practice", s.handlePostPractice())
	s.router.HandleFunc("GET /api/cases", s.handleGetCases())
	s.router.HandleFunc("POST /api/cases/{id}", s.handlePostCase())

	// Progress
	s.router.HandleFunc("GET /api/progress", s.handleGetProgress())
	s.router.HandleFunc("GET /api/progress/export", s.handleExportProgress())
	s.router.HandleFunc("GET /api/overview", s.handleGetOverview())

	// Conversation
	s.router.HandleFunc("GET /api/conversation", s.handleGetConversation())
	s.router.HandleFunc("DELETE /api/conversation", s.handleClearConversation())
	s.router.HandleFunc("GET /api/conversation/export", s.handleExportConversation())
	s.router.HandleFunc("POST /api/conversation/import", s.handleImportConversation())
	s.router.HandleFunc("PATCH /api/conversation/{index}", s.handleEditMessage())
	s.router.HandleFunc("DELETE /api/conversation/{index}", s.handleDeleteMessage())
	s.router.HandleFunc("POST /api/tutor", s.handleTutor())
	s.router.HandleFunc("POST /api/tutor/stream", s.handleTutorStream())
	s.router.HandleFunc("POST /api/tutor/retry", s.handleTutorRetry())

	// Deck sources
	s.router.HandleFunc("GET /api/sources", s.handleGetSources())
	s.router.HandleFunc("POST /api/sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /api/sources/{id}/sync", s.handleSyncSource())
	s.router.HandleFunc("POST /api/sync", s.handlePostSync())
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeDownload sends v as an indented JSON attachment.
func (s *Server) writeDownload(w http.ResponseWriter, filename string, v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.log.Error("failed to encode download", "file", filename, "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

var errEmptyBody = errors.New("request body is empty")

// decode reads a JSON body into v, rejecting bodies over maxBodyBytes.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) persistWarning(w http.ResponseWriter) {
	if err := s.store.PersistErr(); err != nil {
		w.Header().Set("X-Persist-Error", err.Error())
	}
}
