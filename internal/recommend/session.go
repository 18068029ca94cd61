package recommend

import (
	"errors"
	"fmt"

	"github.com/soaringjerry/Brushlog/internal/models"
)

var (
	ErrSessionDone   = errors.New("intake session already finished")
	ErrUnknownOption = errors.New("answer is not an option of the current question")
	ErrDeadEnd       = errors.New("questionnaire has no way forward from here")
)

// Session is the intake state machine. The state is the current question id,
// or done with a result; each Answer is one transition. The full answer
// history is kept so that revisited questions resolve last-write-wins.
type Session struct {
	engine  *Engine
	lang    string
	current string
	depth   int
	answers []models.QuestionAnswer
	result  *models.RecommendationResult
}

func NewSession(engine *Engine, lang string) *Session {
	if lang == "" {
		lang = engine.DefaultLang()
	}
	return &Session{engine: engine, lang: lang, current: engine.Root(), depth: 1}
}

// Replay rebuilds a session from an answer history sent by a stateless
// client. Answers that do not match an option leave the walk waiting on that
// question.
func Replay(engine *Engine, lang string, answers []models.QuestionAnswer) (*Session, error) {
	s := NewSession(engine, lang)
	if err := s.advance(append([]models.QuestionAnswer(nil), answers...)); err != nil {
		return nil, err
	}
	return s, nil
}

// Answer applies value to the current question. On error the session is
// unchanged.
func (s *Session) Answer(value string) error {
	if s.Done() {
		return ErrSessionDone
	}
	if s.engine == nil || s.engine.tree == nil {
		return ErrDeadEnd
	}
	node, ok := s.engine.tree.Questions[s.current]
	if !ok {
		return ErrDeadEnd
	}
	if _, ok := node.option(value); !ok {
		return fmt.Errorf("%w: %q for %s", ErrUnknownOption, value, s.current)
	}
	next := make([]models.QuestionAnswer, len(s.answers), len(s.answers)+1)
	copy(next, s.answers)
	next = append(next, models.QuestionAnswer{QuestionID: s.current, Answer: value})
	return s.advance(next)
}

func (s *Session) advance(answers []models.QuestionAnswer) error {
	if s.engine == nil || s.engine.tree == nil {
		return ErrDeadEnd
	}
	current, brush, depth, outcome := s.engine.tree.walk(latestAnswers(answers))
	switch outcome {
	case walkPending:
		s.answers = answers
		s.current = current
		s.depth = depth
		return nil
	case walkTerminal:
		res := s.engine.build(brush, s.lang)
		if res == nil {
			return ErrDeadEnd
		}
		s.answers = answers
		s.current = ""
		s.depth = depth
		s.result = res
		return nil
	default:
		return ErrDeadEnd
	}
}

// Reset returns to the root question and forgets all answers.
func (s *Session) Reset() {
	s.current = s.engine.Root()
	s.depth = 1
	s.answers = nil
	s.result = nil
}

// Current is the question awaiting an answer, or "" once done.
func (s *Session) Current() string { return s.current }

func (s *Session) Done() bool { return s.result != nil }

func (s *Session) Result() *models.RecommendationResult { return s.result }

// Step is the 1-based position on the current path of the question being
// asked. Once done it is the number of questions on the answered path.
// Revisited answers in the history do not count.
func (s *Session) Step() int { return s.depth }

func (s *Session) Answers() []models.QuestionAnswer {
	return append([]models.QuestionAnswer(nil), s.answers...)
}
