package web

import (
	"net/http"
	"testing"

	"github.com/conorfennell/taxtutor/internal/domain"
)

func TestLessonQuiz(t *testing.T) {
	srv, st := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/lessons", "")
	lessons := decodeBody[[]lessonResponse](t, rec)
	if len(lessons) < 2 {
		t.Fatalf("Expected seeded lessons, got %d", len(lessons))
	}
	if lessons[1].Completed {
		t.Error("Expected an untaken lesson to be incomplete")
	}
	topic := lessons[1].Topic

	rec = do(t, srv, http.MethodPost, "/api/lessons/1/quiz", `{"answers":["₹1,00,000"],"elapsedSec":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := decodeBody[lessonQuizResponse](t, rec); got.Passed || got.Correct != 0 || got.Log.Topic != topic {
		t.Errorf("Unexpected failed outcome %+v", got)
	}

	rec = do(t, srv, http.MethodPost, "/api/lessons/1/quiz", `{"answers":["₹1,50,000"],"elapsedSec":10}`)
	if got := decodeBody[lessonQuizResponse](t, rec); !got.Passed || got.Accuracy != 100 {
		t.Errorf("Unexpected passed outcome %+v", got)
	}

	if got := st.Progress()[topic]; got != (domain.ProgressByTopic{Attempts: 2, Correct: 1, TimeSec: 30}) {
		t.Errorf("Unexpected lesson progress %+v", got)
	}
	if logs := st.AttemptLogs(); len(logs) != 2 || logs[1].Answers[0].Answer != "₹1,50,000" {
		t.Errorf("Expected both attempts logged, got %+v", logs)
	}

	rec = do(t, srv, http.MethodGet, "/api/lessons", "")
	lessons = decodeBody[[]lessonResponse](t, rec)
	if !lessons[1].Completed || lessons[0].Completed {
		t.Errorf("Expected only the taken lesson completed, got %v %v", lessons[0].Completed, lessons[1].Completed)
	}

	for _, tc := range []struct {
		target, body string
		want         int
	}{
		{"/api/lessons/9/quiz", `{"answers":[]}`, http.StatusNotFound},
		{"/api/lessons/x/quiz", `{"answers":[]}`, http.StatusNotFound},
		{"/api/lessons/0/quiz", `{"answers":[],"elapsedSec":-1}`, http.StatusBadRequest},
		{"/api/lessons/0/quiz", ``, http.StatusBadRequest},
	} {
		if rec := do(t, srv, http.MethodPost, tc.target, tc.body); rec.Code != tc.want {
			t.Errorf("POST %s %s: expected %d, got %d", tc.target, tc.body, tc.want, rec.Code)
		}
	}
}

func TestStudySession(t *testing.T) {
	srv, st := newTestServer(t, nil)
	for _, body := range []string{
		`{"front":"What is TDS?","back":"Tax deducted at source","tag":"Study"}`,
		`{"front":"What is TCS?","back":"Tax collected at source","tag":"Study"}`,
		`{"front":"What is PAN?","back":"Permanent account number","tag":"Study"}`,
	} {
		if rec := do(t, srv, http.MethodPost, "/api/flashcards", body); rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
		}
	}

	rec := do(t, srv, http.MethodPost, "/api/study/sessions", `{"set":"cram","tag":"Study"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}
	sess := decodeBody[studySessionResponse](t, rec)
	if sess.ID == "" || sess.Current == nil || sess.Current.Front != "What is TDS?" || sess.Stats.Remaining != 3 {
		t.Fatalf("Unexpected new session %+v", sess)
	}
	path := "/api/study/sessions/" + sess.ID

	if rec := do(t, srv, http.MethodPost, path+"/rate", `{"quality":9}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for quality 9, got %d", rec.Code)
	}
	for _, q := range []string{`{"quality":4}`, `{"quality":5}`} {
		rec = do(t, srv, http.MethodPost, path+"/rate", q)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
		}
	}
	sess = decodeBody[studySessionResponse](t, rec)
	if sess.Stats.Streak != 2 || sess.Stats.BestStreak != 2 || sess.Current.Front != "What is PAN?" {
		t.Errorf("Unexpected session after two passes %+v", sess)
	}
	if st.BestStudyStreak() != 2 {
		t.Errorf("Expected best streak 2 stored, got %d", st.BestStudyStreak())
	}
	if card, _ := st.Flashcard(domain.ByFront("What is TDS?")); card.Reps != 1 {
		t.Errorf("Expected the rated card rescheduled, got %+v", card)
	}

	rec = do(t, srv, http.MethodPost, path+"/rate", `{"quality":1}`)
	sess = decodeBody[studySessionResponse](t, rec)
	want := sessionStatsWant{correct: 2, incorrect: 1, total: 3, streak: 0, best: 2}
	if !sess.Done || sess.Current != nil || !want.matches(sess) {
		t.Errorf("Unexpected finished session %+v", sess)
	}
	if rec := do(t, srv, http.MethodPost, path+"/rate", `{"quality":3}`); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 once finished, got %d", rec.Code)
	}

	// A new session starts from the stored best.
	rec = do(t, srv, http.MethodPost, "/api/study/sessions", `{"set":"cram","tag":"Study"}`)
	next := decodeBody[studySessionResponse](t, rec)
	if next.Stats.BestStreak != 2 || next.Stats.Total != 0 {
		t.Errorf("Expected a fresh session carrying the best streak, got %+v", next.Stats)
	}
	rec = do(t, srv, http.MethodPost, "/api/study/sessions/"+next.ID+"/rate", `{"quality":0}`)
	if got := decodeBody[studySessionResponse](t, rec); got.Stats.Total != 0 || got.Stats.Remaining != 2 {
		t.Errorf("Expected a skip to count nothing, got %+v", got.Stats)
	}

	if rec := do(t, srv, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	for _, tc := range []struct{ method, target, body string }{
		{http.MethodGet, path, ""},
		{http.MethodPost, path + "/rate", `{"quality":3}`},
		{http.MethodDelete, path, ""},
	} {
		if rec := do(t, srv, tc.method, tc.target, tc.body); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.target, rec.Code)
		}
	}
	if rec := do(t, srv, http.MethodPost, "/api/study/sessions", `{"set":"someday"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown set, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/study/sessions", ""); rec.Code != http.StatusCreated {
		t.Errorf("Expected an empty body to start a due session, got %d", rec.Code)
	}
}

type sessionStatsWant struct {
	correct, incorrect, total, streak, best int
}

func (w sessionStatsWant) matches(r studySessionResponse) bool {
	st := r.Stats
	return st.Correct == w.correct && st.Incorrect == w.incorrect && st.Total == w.total &&
		st.Streak == w.streak && st.BestStreak == w.best && st.Remaining == 0
}

func TestStudySessionsAreBounded(t *testing.T) {
	var ss studySessions
	first := ss.add(nil)
	for range maxStudySessions {
		ss.add(nil)
	}
	if _, ok := ss.get(first); ok {
		t.Error("Expected the oldest session to be dropped")
	}
	if len(ss.byID) != maxStudySessions || len(ss.order) != maxStudySessions {
		t.Errorf("Expected %d sessions, got %d", maxStudySessions, len(ss.byID))
	}
}
