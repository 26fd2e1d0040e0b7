package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/quiz"
	"github.com/conorfennell/taxtutor/internal/report"
)

// handleGetQuestions draws a practice set: ?type=, ?difficulty=, ?count=.
func (s *Server) handleGetQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sel := quiz.Selection{Type: q.Get("type"), Difficulty: quiz.Difficulty(q.Get("difficulty"))}
		if raw := q.Get("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				s.writeError(w, http.StatusBadRequest, "count must be a non-negative integer")
				return
			}
			sel.Count = n
		}
		s.writeJSON(w, http.StatusOK, quiz.Select(s.store.Questions(), sel, nil))
	}
}

type practiceRequest struct {
	Type       string            `json:"type"`
	Questions  []domain.Question `json:"questions" validate:"required,dive"`
	Answers    []string          `json:"answers"`
	ElapsedSec int               `json:"elapsedSec" validate:"gte=0"`
}

// handlePostPractice grades a finished practice session and records it.
func (s *Server) handlePostPractice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req practiceRequest
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := domain.Validate(req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out := quiz.GradePractice(req.Type, req.Questions, req.Answers, time.Duration(req.ElapsedSec)*time.Second, s.now())
		s.recorder.RecordPractice(r.Context(), out)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleGetCases() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.store.Cases())
	}
}

type caseResponse struct {
	quiz.CaseOutcome
	Passed bool `json:"passed"`
}

// handlePostCase scores the decisions taken in a case scenario.
func (s *Server) handlePostCase() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var scenario *domain.CaseScenario
		for _, c := range s.store.Cases() {
			if c.ID == id {
				scenario = &c
				break
			}
		}
		if scenario == nil {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Choices    []int `json:"choices"`
			ElapsedSec int   `json:"elapsedSec"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.ElapsedSec < 0 {
			s.writeError(w, http.StatusBadRequest, "elapsedSec must not be negative")
			return
		}
		out, err := quiz.ScoreCase(*scenario, req.Choices, time.Duration(req.ElapsedSec)*time.Second, s.now())
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.recorder.RecordCase(r.Context(), out)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, caseResponse{CaseOutcome: out, Passed: out.Passed()})
	}
}

type progressResponse struct {
	Period        report.Period                     `json:"period"`
	Summary       report.Summary                    `json:"summary"`
	WeakAreas     []report.WeakArea                 `json:"weakAreas"`
	TopicProgress map[string]domain.ProgressByTopic `json:"topicProgress"`
}

func (s *Server) period(r *http.Request) (report.Period, error) {
	p, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return "", fmt.Errorf("period: %w", err)
	}
	return p, nil
}

func (s *Server) handleGetProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.period(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		progress := s.store.Progress()
		s.writeJSON(w, http.StatusOK, progressResponse{
			Period:        p,
			Summary:       report.Summarize(report.FilterLogs(s.store.AttemptLogs(), p, s.now())),
			WeakAreas:     report.WeakAreas(progress),
			TopicProgress: progress,
		})
	}
}

func (s *Server) handleExportProgress() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.period(r)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		now := s.now()
		s.writeDownload(w, report.ProgressFilename(now), report.BuildProgressExport(s.store.Progress(), s.store.AttemptLogs(), p, now))
	}
}

func (s *Server) handleGetOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, report.BuildOverview(s.store.Snapshot(), s.now()))
	}
}
