package recommend

import (
	"errors"
	"testing"

	"github.com/soaringjerry/Brushlog/internal/models"
)

func TestSessionWalk(t *testing.T) {
	s := NewSession(mustDefaultEngine(t), "en")
	if s.Current() != "Q1" || s.Step() != 1 {
		t.Fatalf("unexpected start state %s/%d", s.Current(), s.Step())
	}
	if err := s.Answer("yes"); err != nil {
		t.Fatalf("answer Q1: %v", err)
	}
	if s.Current() != "Q2" || s.Done() {
		t.Fatalf("expected Q2, got %s", s.Current())
	}
	if err := s.Answer("cavity"); err != nil {
		t.Fatalf("answer Q2: %v", err)
	}
	if !s.Done() || s.Current() != "" {
		t.Fatalf("expected done")
	}
	if s.Result().BrushType != models.BrushCompositeTuft {
		t.Fatalf("unexpected result %+v", s.Result())
	}
	if err := s.Answer("yes"); !errors.Is(err, ErrSessionDone) {
		t.Fatalf("expected ErrSessionDone, got %v", err)
	}
	if got := len(s.Answers()); got != 2 {
		t.Fatalf("expected 2 answers, got %d", got)
	}
}

func TestSessionUnknownOptionKeepsState(t *testing.T) {
	s := NewSession(mustDefaultEngine(t), "en")
	_ = s.Answer("no")
	err := s.Answer("maybe")
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("expected ErrUnknownOption, got %v", err)
	}
	if s.Current() != "Q3" || len(s.Answers()) != 1 {
		t.Fatalf("state changed after invalid answer: %s %v", s.Current(), s.Answers())
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession(mustDefaultEngine(t), "ja")
	_ = s.Answer("no")
	_ = s.Answer("yes")
	if !s.Done() {
		t.Fatalf("expected done")
	}
	s.Reset()
	if s.Done() || s.Current() != "Q1" || len(s.Answers()) != 0 {
		t.Fatalf("reset did not clear session")
	}
}

func TestSessionDeadEnd(t *testing.T) {
	tree := &Tree{
		Root: "A",
		Questions: map[string]QuestionNode{
			"A": {ID: "A", Options: []Option{{Value: "x", Next: "gone"}}},
		},
	}
	s := NewSession(NewEngine(tree), "")
	if err := s.Answer("x"); !errors.Is(err, ErrDeadEnd) {
		t.Fatalf("expected ErrDeadEnd, got %v", err)
	}
	if s.Current() != "A" || len(s.Answers()) != 0 {
		t.Fatalf("state changed after dead end")
	}
}

func TestReplay(t *testing.T) {
	e := mustDefaultEngine(t)

	s, err := Replay(e, "en", nil)
	if err != nil || s.Current() != "Q1" {
		t.Fatalf("empty replay: %v %s", err, s.Current())
	}

	s, err = Replay(e, "en", qa("Q1", "no"))
	if err != nil || s.Current() != "Q3" {
		t.Fatalf("partial replay: %v %s", err, s.Current())
	}

	s, err = Replay(e, "en", qa("Q1", "yes", "Q2", "cavity", "Q1", "no", "Q3", "yes"))
	if err != nil || !s.Done() || s.Result().BrushType != models.BrushSuperTapered {
		t.Fatalf("revisited replay: %v %+v", err, s.Result())
	}

	s, err = Replay(e, "en", qa("Q1", "perhaps"))
	if err != nil || s.Current() != "Q1" {
		t.Fatalf("unrecognized answer should wait on Q1: %v %s", err, s.Current())
	}
}

func TestReplayStepCountsPathNotHistory(t *testing.T) {
	e := mustDefaultEngine(t)

	s, err := Replay(e, "en", qa("Q1", "yes", "Q1", "no", "Q1", "yes"))
	if err != nil || s.Current() != "Q2" || s.Step() != 2 {
		t.Fatalf("expected step 2 on Q2, got %s/%d, %v", s.Current(), s.Step(), err)
	}
	if s.Step() > e.QuestionCount() {
		t.Fatalf("step %d beyond %d questions", s.Step(), e.QuestionCount())
	}

	s, err = Replay(e, "en", qa("Q1", "yes", "Q2", "cavity", "Q1", "no", "Q3", "yes"))
	if err != nil || !s.Done() || s.Step() != 2 {
		t.Fatalf("expected done after 2 path questions, got %d, %v", s.Step(), err)
	}

	s.Reset()
	if s.Step() != 1 {
		t.Fatalf("reset should return to step 1, got %d", s.Step())
	}
}
