package recommend

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/Brushlog/internal/models"
)

//go:embed rules.yaml
var defaultRules []byte

// Option maps one answer value either to the next question or to a terminal
// category. Result takes precedence when both are set.
type Option struct {
	Value     string
	LabelI18n map[string]string
	Next      string
	Result    models.BrushType
}

// Terminal reports whether choosing this option ends the questionnaire.
func (o Option) Terminal() bool { return o.Result != "" }

type QuestionNode struct {
	ID       string
	TextI18n map[string]string
	Options  []Option
}

func (q QuestionNode) option(value string) (Option, bool) {
	for _, o := range q.Options {
		if o.Value == value {
			return o, true
		}
	}
	return Option{}, false
}

// Advice holds the static text shown for a category.
type Advice struct {
	ReasonI18n         map[string]string
	NotesI18n          map[string]string
	MarketExamplesI18n map[string]string
}

// Tree is the questionnaire configuration. It is loaded once and must not be
// mutated while engines built on it are in use.
type Tree struct {
	Root           string
	DefaultLang    string
	Questions      map[string]QuestionNode
	Advice         map[models.BrushType]Advice
	DisclaimerI18n map[string]string
}

type yamlOption struct {
	Value  string            `yaml:"value"`
	Label  map[string]string `yaml:"label"`
	Next   string            `yaml:"next"`
	Result string            `yaml:"result"`
}

type yamlQuestion struct {
	Text    map[string]string `yaml:"text"`
	Options []yamlOption      `yaml:"options"`
}

type yamlAdvice struct {
	Reason         map[string]string `yaml:"reason"`
	Notes          map[string]string `yaml:"notes"`
	MarketExamples map[string]string `yaml:"market_examples"`
}

type yamlTree struct {
	Root        string                  `yaml:"root"`
	DefaultLang string                  `yaml:"default_lang"`
	Disclaimer  map[string]string       `yaml:"disclaimer"`
	Questions   map[string]yamlQuestion `yaml:"questions"`
	Advice      map[string]yamlAdvice   `yaml:"advice"`
}

// LoadTree parses a YAML questionnaire. It does not validate the graph; call
// Validate for that.
func LoadTree(data []byte) (*Tree, error) {
	var raw yamlTree
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	t := &Tree{
		Root:           strings.TrimSpace(raw.Root),
		DefaultLang:    strings.TrimSpace(raw.DefaultLang),
		Questions:      make(map[string]QuestionNode, len(raw.Questions)),
		Advice:         make(map[models.BrushType]Advice, len(raw.Advice)),
		DisclaimerI18n: raw.Disclaimer,
	}
	if t.DefaultLang == "" {
		t.DefaultLang = "en"
	}
	for id, q := range raw.Questions {
		node := QuestionNode{ID: id, TextI18n: q.Text, Options: make([]Option, 0, len(q.Options))}
		for _, o := range q.Options {
			node.Options = append(node.Options, Option{
				Value:     o.Value,
				LabelI18n: o.Label,
				Next:      strings.TrimSpace(o.Next),
				Result:    models.BrushType(strings.TrimSpace(o.Result)),
			})
		}
		t.Questions[id] = node
	}
	for key, a := range raw.Advice {
		t.Advice[models.BrushType(key)] = Advice{
			ReasonI18n:         a.Reason,
			NotesI18n:          a.Notes,
			MarketExamplesI18n: a.MarketExamples,
		}
	}
	return t, nil
}

// LoadTreeFile reads rules from path, or the embedded defaults when path is
// empty. The result is validated.
func LoadTreeFile(path string) (*Tree, error) {
	data := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules %s: %w", path, err)
		}
		data = b
	}
	t, err := LoadTree(data)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultTree returns the embedded reference questionnaire.
func DefaultTree() (*Tree, error) {
	return LoadTreeFile("")
}

// Validate reports every structural defect it finds.
func (t *Tree) Validate() error {
	if t == nil {
		return errors.New("rules: nil tree")
	}
	var errs []error
	if _, ok := t.Questions[t.Root]; !ok {
		errs = append(errs, fmt.Errorf("rules: root %q is not a question", t.Root))
	}
	for _, id := range t.questionIDs() {
		q := t.Questions[id]
		if len(q.Options) == 0 {
			errs = append(errs, fmt.Errorf("rules: question %s has no options", id))
		}
		seen := map[string]bool{}
		for _, o := range q.Options {
			if o.Value == "" {
				errs = append(errs, fmt.Errorf("rules: question %s has an option without value", id))
			}
			if seen[o.Value] {
				errs = append(errs, fmt.Errorf("rules: question %s repeats option %q", id, o.Value))
			}
			seen[o.Value] = true
			switch {
			case o.Terminal():
				if !o.Result.Valid() {
					errs = append(errs, fmt.Errorf("rules: %s/%s: unknown category %q", id, o.Value, o.Result))
				} else if _, ok := t.Advice[o.Result]; !ok {
					errs = append(errs, fmt.Errorf("rules: %s/%s: no advice for %q", id, o.Value, o.Result))
				}
			case o.Next == "":
				errs = append(errs, fmt.Errorf("rules: %s/%s: option has neither next nor result", id, o.Value))
			default:
				if _, ok := t.Questions[o.Next]; !ok {
					errs = append(errs, fmt.Errorf("rules: %s/%s: next %q is not a question", id, o.Value, o.Next))
				}
			}
		}
	}
	if id, ok := t.findCycle(); ok {
		errs = append(errs, fmt.Errorf("rules: cycle through question %s", id))
	}
	return errors.Join(errs...)
}

func (t *Tree) questionIDs() []string {
	ids := make([]string, 0, len(t.Questions))
	for id := range t.Questions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Tree) findCycle() (string, bool) {
	const (
		unvisited = iota
		active
		finished
	)
	state := make(map[string]int, len(t.Questions))
	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		state[id] = active
		for _, o := range t.Questions[id].Options {
			if o.Terminal() || o.Next == "" {
				continue
			}
			if _, ok := t.Questions[o.Next]; !ok {
				continue
			}
			switch state[o.Next] {
			case active:
				return o.Next, true
			case unvisited:
				if c, ok := visit(o.Next); ok {
					return c, true
				}
			}
		}
		state[id] = finished
		return "", false
	}
	for _, id := range t.questionIDs() {
		if state[id] == unvisited {
			if c, ok := visit(id); ok {
				return c, true
			}
		}
	}
	return "", false
}

type walkOutcome int

const (
	walkTerminal walkOutcome = iota
	walkPending              // stopped at a question with no usable answer
	walkDeadEnd              // unknown question id or cycle
)

// walk follows the latest answers from the root. For walkPending it returns
// the question waiting for an answer; for walkTerminal the category. depth is
// the 1-based position of the returned question on the path.
func (t *Tree) walk(latest map[string]string) (current string, brush models.BrushType, depth int, outcome walkOutcome) {
	current = t.Root
	// A well-formed path visits each question at most once.
	for depth = 1; depth <= len(t.Questions); depth++ {
		node, ok := t.Questions[current]
		if !ok {
			return current, "", depth, walkDeadEnd
		}
		answer, ok := latest[current]
		if !ok {
			return current, "", depth, walkPending
		}
		opt, ok := node.option(answer)
		if !ok {
			return current, "", depth, walkPending
		}
		if opt.Terminal() {
			return current, opt.Result, depth, walkTerminal
		}
		if opt.Next == "" {
			return current, "", depth, walkDeadEnd
		}
		current = opt.Next
	}
	return current, "", depth, walkDeadEnd
}

func latestAnswers(answers []models.QuestionAnswer) map[string]string {
	latest := make(map[string]string, len(answers))
	for _, a := range answers {
		latest[a.QuestionID] = a.Answer
	}
	return latest
}

// localize picks lang, then the fallback, then any text in a stable order.
func localize(m map[string]string, lang, fallback string) string {
	if v := m[lang]; v != "" {
		return v
	}
	if v := m[fallback]; v != "" {
		return v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] != "" {
			return m[k]
		}
	}
	return ""
}
