// Package recommend maps intake questionnaire answers to a toothbrush
// category. The decision tree is data (see rules.yaml); the engine only walks
// it, so new branches never require code changes.
package recommend

import "github.com/soaringjerry/Brushlog/internal/models"

// Engine is safe for concurrent use as long as its Tree is not mutated.
type Engine struct {
	tree *Tree
}

type OptionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Next     string `json:"next,omitempty"`
	Terminal bool   `json:"terminal"`
}

type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Options []OptionView `json:"options"`
}

func NewEngine(tree *Tree) *Engine {
	return &Engine{tree: tree}
}

// DefaultEngine builds an engine over the embedded reference rules.
func DefaultEngine() (*Engine, error) {
	t, err := DefaultTree()
	if err != nil {
		return nil, err
	}
	return NewEngine(t), nil
}

func (e *Engine) Root() string {
	if e == nil || e.tree == nil {
		return ""
	}
	return e.tree.Root
}

func (e *Engine) QuestionCount() int {
	if e == nil || e.tree == nil {
		return 0
	}
	return len(e.tree.Questions)
}

func (e *Engine) DefaultLang() string {
	if e == nil || e.tree == nil || e.tree.DefaultLang == "" {
		return "en"
	}
	return e.tree.DefaultLang
}

// Recommend returns the recommendation in the default language, or nil when
// the answers do not reach a terminal option. nil means "keep asking" or
// "cannot recommend", never a failure.
func (e *Engine) Recommend(answers []models.QuestionAnswer) *models.RecommendationResult {
	return e.RecommendIn(e.DefaultLang(), answers)
}

// RecommendIn is Recommend with text localized to lang.
func (e *Engine) RecommendIn(lang string, answers []models.QuestionAnswer) *models.RecommendationResult {
	if e == nil || e.tree == nil || len(answers) == 0 {
		return nil
	}
	_, brush, _, outcome := e.tree.walk(latestAnswers(answers))
	if outcome != walkTerminal {
		return nil
	}
	return e.build(brush, lang)
}

func (e *Engine) build(brush models.BrushType, lang string) *models.RecommendationResult {
	if !brush.Valid() {
		return nil
	}
	adv, ok := e.tree.Advice[brush]
	if !ok {
		return nil
	}
	def := e.DefaultLang()
	return &models.RecommendationResult{
		BrushType:      brush,
		Reason:         localize(adv.ReasonI18n, lang, def),
		Notes:          localize(adv.NotesI18n, lang, def),
		MarketExamples: localize(adv.MarketExamplesI18n, lang, def),
	}
}

// Question returns the display form of a question.
func (e *Engine) Question(id, lang string) (QuestionView, bool) {
	if e == nil || e.tree == nil {
		return QuestionView{}, false
	}
	q, ok := e.tree.Questions[id]
	if !ok {
		return QuestionView{}, false
	}
	def := e.DefaultLang()
	view := QuestionView{ID: q.ID, Text: localize(q.TextI18n, lang, def), Options: make([]OptionView, 0, len(q.Options))}
	for _, o := range q.Options {
		ov := OptionView{Value: o.Value, Label: localize(o.LabelI18n, lang, def), Terminal: o.Terminal()}
		if !ov.Terminal {
			ov.Next = o.Next
		}
		if ov.Label == "" {
			ov.Label = o.Value
		}
		view.Options = append(view.Options, ov)
	}
	return view, true
}

func (e *Engine) Disclaimer(lang string) string {
	if e == nil || e.tree == nil {
		return ""
	}
	return localize(e.tree.DisclaimerI18n, lang, e.DefaultLang())
}
