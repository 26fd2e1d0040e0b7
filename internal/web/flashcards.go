package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/sm2"
)

func (s *Server) handleGetState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, s.store.Snapshot())
	}
}

func (s *Server) handlePutView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			View domain.View `json:"view"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if !req.View.IsValid() {
			s.writeError(w, http.StatusBadRequest, "unknown view")
			return
		}
		s.store.SetActiveView(r.Context(), req.View)
		s.persistWarning(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListFlashcards returns the study set selected by ?set=, narrowed by
// ?q= and ?tag=. Without a set every card is listed.
func (s *Server) handleListFlashcards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		set := sm2.SetCram
		if raw := q.Get("set"); raw != "" {
			parsed, err := sm2.ParseStudySet(raw)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			set = parsed
		}
		filter := sm2.Filter{Query: q.Get("q"), Tag: q.Get("tag")}
		s.writeJSON(w, http.StatusOK, s.store.StudyCards(set, filter, s.now()))
	}
}

type flashcardStats struct {
	sm2.Stats
	Tags []string `json:"tags"`
}

func (s *Server) handleFlashcardStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards := s.store.Flashcards()
		tags := sm2.Tags(cards)
		if tags == nil {
			tags = []string{}
		}
		s.writeJSON(w, http.StatusOK, flashcardStats{Stats: sm2.ComputeStats(cards, s.now()), Tags: tags})
	}
}

func (s *Server) handleCreateFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Front string `json:"front"`
			Back  string `json:"back"`
			Tag   string `json:"tag"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		card, err := domain.NewFlashcard(req.Front, req.Back, req.Tag, s.now())
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		card, _ = s.store.AddFlashcard(r.Context(), card)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusCreated, card)
	}
}

func (s *Server) handleGetFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.store.Flashcard(domain.ByID(r.PathValue("id")))
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handlePatchFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.FlashcardPatch
		if err := decode(w, r, &patch); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if (patch.Front != nil && *patch.Front == "") || (patch.Back != nil && *patch.Back == "") {
			s.writeError(w, http.StatusBadRequest, domain.ErrEmptyCard.Error())
			return
		}
		key := domain.ByID(r.PathValue("id"))
		if s.store.UpdateFlashcard(r.Context(), key, patch) == domain.NotFound {
			http.NotFound(w, r)
			return
		}
		card, _ := s.store.Flashcard(key)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleDeleteFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store.DeleteFlashcard(r.Context(), domain.ByID(r.PathValue("id"))) == domain.NotFound {
			http.NotFound(w, r)
			return
		}
		s.persistWarning(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleReviewFlashcard applies a 1-5 rating. Ratings outside the range are
// rejected here rather than clamped.
func (s *Server) handleReviewFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Quality int `json:"quality"`
		}
		if err := decode(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q := sm2.Quality(req.Quality)
		if !q.IsValid() {
			s.writeError(w, http.StatusBadRequest, "quality must be between 1 and 5")
			return
		}
		key := domain.ByID(r.PathValue("id"))
		if _, res := s.engine.Review(r.Context(), s.store, key, q); res == domain.NotFound {
			http.NotFound(w, r)
			return
		}
		card, _ := s.store.Flashcard(key)
		s.persistWarning(w)
		s.writeJSON(w, http.StatusOK, card)
	}
}

type schedulePreview struct {
	Quality  int       `json:"quality"`
	Label    string    `json:"label"`
	Interval int       `json:"interval"`
	Due      time.Time `json:"due"`
}

func (s *Server) handlePreviewFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.store.Flashcard(domain.ByID(r.PathValue("id")))
		if !ok {
			http.NotFound(w, r)
			return
		}
		preview := s.engine.Preview(card)
		out := make([]schedulePreview, 0, len(preview))
		for q := sm2.Again; q <= sm2.Perfect; q++ {
			next := preview[q]
			out = append(out, schedulePreview{Quality: int(q), Label: q.String(), Interval: next.Interval, Due: next.Due})
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleDuplicateFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.store.Flashcard(domain.ByID(r.PathValue("id")))
		if !ok {
			http.NotFound(w, r)
			return
		}
		dup, _ := s.store.AddFlashcard(r.Context(), card.Duplicate(s.now()))
		s.persistWarning(w)
		s.writeJSON(w, http.StatusCreated, dup)
	}
}
