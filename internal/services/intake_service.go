package services

import (
	"errors"
	"strings"

	"github.com/soaringjerry/Brushlog/internal/models"
	"github.com/soaringjerry/Brushlog/internal/recommend"
)

type IntakeStore interface {
	GetPatient(id string) (*models.Patient, error)
	UpdatePatient(p *models.Patient) error
}

type IntakeService struct {
	engine *recommend.Engine
	store  IntakeStore
}

// IntakeStep is either the next question to ask or the final result.
type IntakeStep struct {
	Done       bool                         `json:"done"`
	Step       int                          `json:"step"`
	Total      int                          `json:"total"`
	Question   *recommend.QuestionView      `json:"question,omitempty"`
	Result     *models.RecommendationResult `json:"result,omitempty"`
	Disclaimer string                       `json:"disclaimer,omitempty"`
}

func NewIntakeService(engine *recommend.Engine, store IntakeStore) *IntakeService {
	return &IntakeService{engine: engine, store: store}
}

func (s *IntakeService) Question(id, lang string) (*recommend.QuestionView, error) {
	q, ok := s.engine.Question(id, lang)
	if !ok {
		return nil, NewNotFoundError("question not found")
	}
	return &q, nil
}

func (s *IntakeService) Disclaimer(lang string) string {
	return s.engine.Disclaimer(lang)
}

// Step replays the answers given so far and reports what comes next.
func (s *IntakeService) Step(lang string, answers []models.QuestionAnswer) (*IntakeStep, error) {
	sess, err := recommend.Replay(s.engine, lang, answers)
	if err != nil {
		if errors.Is(err, recommend.ErrDeadEnd) {
			return nil, NewInvalidError("questionnaire cannot continue")
		}
		return nil, err
	}
	out := &IntakeStep{Step: sess.Step(), Total: s.engine.QuestionCount()}
	if sess.Done() {
		out.Done = true
		out.Result = sess.Result()
		out.Disclaimer = s.engine.Disclaimer(lang)
		return out, nil
	}
	q, ok := s.engine.Question(sess.Current(), lang)
	if !ok {
		return nil, NewInvalidError("questionnaire cannot continue")
	}
	out.Question = &q
	return out, nil
}

// Apply computes the recommendation and stores only its category on the
// patient record.
func (s *IntakeService) Apply(patientID, lang string, answers []models.QuestionAnswer) (*models.RecommendationResult, *models.Patient, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, nil, NewInvalidError("patient id required")
	}
	p, err := s.store.GetPatient(patientID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, NewNotFoundError("patient not found")
	}
	res := s.engine.RecommendIn(lang, answers)
	if res == nil {
		return nil, nil, NewInvalidError("questionnaire incomplete")
	}
	bt := res.BrushType
	p.BrushType = &bt
	if err := s.store.UpdatePatient(p); err != nil {
		return nil, nil, err
	}
	return res, p, nil
}
