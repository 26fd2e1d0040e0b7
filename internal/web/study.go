package web

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/quiz"
	"github.com/conorfennell/taxtutor/internal/sm2"
)

// maxStudySessions bounds the open sessions; the oldest is dropped first.
const maxStudySessions = 64

type lessonResponse struct {
	domain.Lesson
	Completed bool `json:"completed"`
}

func (s *Server) handleGetLessons() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		progress := s.store.Progress()
		lessons := s.store.Lessons()
		out := make([]lessonResponse, len(lessons))
		for i, l := range lessons {
			out[i] = lessonResponse{Lesson: l, Completed: quiz.LessonCompleted(progress, l)}
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

type lessonQuizResponse struct {
	quiz.Outcome
	Passed bool `json:"passed"`
}

// handlePostLessonQuiz grades the exit quiz of the lesson at {index}.
func (s *Server) handlePostLessonQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lessons := s.store.Lessons()
		i, err := strconv.Atoi(r.PathValue("index"))
		if err != nil || i < 0 || i >= len(lessons) {
			http.NotFound(w, r)
			return
		}
		lesson := lessons[i]
		if len(lesson.ExitQuiz) == 0 {
			s.writeError(w, http.StatusBadRequest, "lesson has no exit quiz")
			return
		}

		var req struct {
			Answers    []string `json:"answers"`
			ElapsedSec int      `json:"elapsedSec"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ElapsedSec < 0 {
			s.writeError(w, http.StatusBadRequest, "elapsedSec must not be negative")
			return
		}
		out := quiz.GradeLessonQuiz(lesson, req.Answers, time.Duration(req.ElapsedSec)*time.Second, s.now())
		s.recorder.RecordLesson(r.Context(), out)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, lessonQuizResponse{Outcome: out, Passed: out.Passed()})
	}
}

// studySessions holds the open flashcard study sessions by id.
type studySessions struct {
	mu    sync.Mutex
	byID  map[string]*sm2.Session
	order []string
}

func (ss *studySessions) add(sess *sm2.Session) string {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.byID == nil {
		ss.byID = make(map[string]*sm2.Session)
	}
	for len(ss.order) >= maxStudySessions {
		delete(ss.byID, ss.order[0])
		ss.order = ss.order[1:]
	}
	id := domain.NewID()
	ss.byID[id] = sess
	ss.order = append(ss.order, id)
	return id
}

func (ss *studySessions) get(id string) (*sm2.Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	sess, ok := ss.byID[id]
	return sess, ok
}

func (ss *studySessions) remove(id string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.byID[id]; !ok {
		return false
	}
	delete(ss.byID, id)
	for i, o := range ss.order {
		if o == id {
			ss.order = append(ss.order[:i], ss.order[i+1:]...)
			break
		}
	}
	return true
}

type studySessionResponse struct {
	ID      string            `json:"id"`
	Current *domain.Flashcard `json:"current"`
	Done    bool              `json:"done"`
	Stats   sm2.SessionStats  `json:"stats"`
}

func sessionResponse(id string, sess *sm2.Session) studySessionResponse {
	out := studySessionResponse{ID: id, Stats: sess.Stats()}
	if card, ok := sess.Current(); ok {
		out.Current = &card
	} else {
		out.Done = true
	}
	return out
}

// handleCreateStudySession starts a session over the cards selected by the
// body's set, q and tag, defaulting to the due set.
func (s *Server) handleCreateStudySession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Set string `json:"set"`
			Q   string `json:"q"`
			Tag string `json:"tag"`
		}
		if err := decode(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		set, err := sm2.ParseStudySet(req.Set)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cards := s.store.StudyCards(set, sm2.Filter{Query: req.Q, Tag: req.Tag}, s.now())
		sess := sm2.NewSession(cards, s.store.BestStudyStreak())
		id := s.sessions.add(sess)
		s.log.Debug("study session started", "id", id, "set", set, "cards", len(cards))
		s.writeJSON(w, http.StatusCreated, sessionResponse(id, sess))
	}
}

func (s *Server) handleGetStudySession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		sess, ok := s.sessions.get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.writeJSON(w, http.StatusOK, sessionResponse(id, sess))
	}
}

// handleRateStudySession rates the session's current card. A quality of 0
// skips it.
func (s *Server) handleRateStudySession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		sess, ok := s.sessions.get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Quality int `json:"quality"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if sess.Done() {
			s.writeError(w, http.StatusConflict, "study session is finished")
			return
		}
		if req.Quality == 0 {
			sess.Skip()
			s.writeJSON(w, http.StatusOK, sessionResponse(id, sess))
			return
		}
		q := sm2.Quality(req.Quality)
		if !q.IsValid() {
			s.writeError(w, http.StatusBadRequest, "quality must be between 1 and 5")
			return
		}
		if _, res := sess.Rate(r.Context(), s.engine, s.store, q); res == domain.NotFound {
			s.log.Debug("study card no longer exists", "session", id)
		}
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, sessionResponse(id, sess))
	}
}

func (s *Server) handleDeleteStudySession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.remove(r.PathValue("id")) {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
