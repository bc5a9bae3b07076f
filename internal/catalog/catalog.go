// Package catalog holds the static document taxonomy and the per-type
// question sets. The catalog is loaded once at process start from YAML,
// validated eagerly, and immutable afterwards.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/auditstack/docuquery/internal/core/domain"
)

// TypeLabel is one taxonomy entry. Ignored labels exist only to reduce
// misclassification of real categories; documents classified as an ignored
// label get no questions.
type TypeLabel struct {
	Label  string
	Hint   string
	Ignore bool
}

// Question is one configured extraction question for a document type.
type Question struct {
	Identifier string
	Label      string
	Prompt     string
	Model      string
	PreProcess func(string) string
	Validate   func(string) (string, error)
}

type Catalog struct {
	taxonomy  []TypeLabel
	hints     map[string]TypeLabel
	questions map[string][]Question
}

type fileSchema struct {
	Taxonomy []struct {
		Label  string `yaml:"label"`
		Hint   string `yaml:"hint"`
		Ignore bool   `yaml:"ignore"`
	} `yaml:"taxonomy"`
	Questions map[string][]struct {
		Identifier string `yaml:"identifier"`
		Label      string `yaml:"label"`
		Prompt     string `yaml:"prompt"`
		Model      string `yaml:"model"`
		PreProcess string `yaml:"pre_process"`
		Validator  string `yaml:"validator"`
	} `yaml:"questions"`
}

// Load reads and validates a catalog file. Any malformed entry fails the
// load; configuration problems must surface at startup, not at call time.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var schema fileSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return build(schema)
}

func build(schema fileSchema) (*Catalog, error) {
	if len(schema.Taxonomy) == 0 {
		return nil, fmt.Errorf("catalog taxonomy is empty")
	}

	c := &Catalog{
		hints:     make(map[string]TypeLabel, len(schema.Taxonomy)+1),
		questions: make(map[string][]Question, len(schema.Questions)),
	}

	for _, entry := range schema.Taxonomy {
		label := strings.ToUpper(strings.TrimSpace(entry.Label))
		if label == "" {
			return nil, fmt.Errorf("taxonomy entry with empty label")
		}
		if strings.TrimSpace(entry.Hint) == "" {
			return nil, fmt.Errorf("taxonomy label %q has no hint", label)
		}
		if _, dup := c.hints[label]; dup {
			return nil, fmt.Errorf("duplicate taxonomy label %q", label)
		}
		tl := TypeLabel{Label: label, Hint: strings.TrimSpace(entry.Hint), Ignore: entry.Ignore}
		c.taxonomy = append(c.taxonomy, tl)
		c.hints[label] = tl
	}

	// The sentinel label is always part of the taxonomy.
	if _, ok := c.hints[domain.LabelUnknown]; !ok {
		tl := TypeLabel{Label: domain.LabelUnknown, Hint: "Unknown"}
		c.taxonomy = append(c.taxonomy, tl)
		c.hints[domain.LabelUnknown] = tl
	}

	for docType, entries := range schema.Questions {
		docType = strings.ToUpper(strings.TrimSpace(docType))
		if _, ok := c.hints[docType]; !ok {
			return nil, fmt.Errorf("questions configured for unknown type %q", docType)
		}
		seen := make(map[string]bool, len(entries))
		for _, entry := range entries {
			q, err := buildQuestion(docType, entry.Identifier, entry.Label, entry.Prompt, entry.Model, entry.PreProcess, entry.Validator)
			if err != nil {
				return nil, err
			}
			if seen[q.Identifier] {
				return nil, fmt.Errorf("type %q: duplicate question identifier %q", docType, q.Identifier)
			}
			seen[q.Identifier] = true
			c.questions[docType] = append(c.questions[docType], q)
		}
	}

	return c, nil
}

func buildQuestion(docType, identifier, label, prompt, model, preProcess, validator string) (Question, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Question{}, fmt.Errorf("type %q: question with empty identifier", docType)
	}
	if identifier == domain.ClassificationIdentifier {
		return Question{}, fmt.Errorf("type %q: identifier %q is reserved", docType, identifier)
	}
	if strings.TrimSpace(prompt) == "" {
		return Question{}, fmt.Errorf("type %q: question %q has no prompt", docType, identifier)
	}

	q := Question{
		Identifier: identifier,
		Label:      strings.TrimSpace(label),
		Prompt:     strings.TrimSpace(prompt),
		Model:      strings.TrimSpace(model),
	}
	if preProcess != "" {
		fn, err := resolvePreprocessor(preProcess)
		if err != nil {
			return Question{}, fmt.Errorf("type %q: question %q: %w", docType, identifier, err)
		}
		q.PreProcess = fn
	}
	if validator != "" {
		fn, err := resolveValidator(validator)
		if err != nil {
			return Question{}, fmt.Errorf("type %q: question %q: %w", docType, identifier, err)
		}
		q.Validate = fn
	}
	return q, nil
}

// New builds a catalog in code, for wiring tests and fixtures. The same
// invariants as Load apply.
func New(taxonomy []TypeLabel, questions map[string][]Question) (*Catalog, error) {
	c := &Catalog{
		hints:     make(map[string]TypeLabel, len(taxonomy)+1),
		questions: make(map[string][]Question, len(questions)),
	}
	for _, tl := range taxonomy {
		tl.Label = strings.ToUpper(strings.TrimSpace(tl.Label))
		if tl.Label == "" {
			return nil, fmt.Errorf("taxonomy entry with empty label")
		}
		if _, dup := c.hints[tl.Label]; dup {
			return nil, fmt.Errorf("duplicate taxonomy label %q", tl.Label)
		}
		c.taxonomy = append(c.taxonomy, tl)
		c.hints[tl.Label] = tl
	}
	if _, ok := c.hints[domain.LabelUnknown]; !ok {
		tl := TypeLabel{Label: domain.LabelUnknown, Hint: "Unknown"}
		c.taxonomy = append(c.taxonomy, tl)
		c.hints[domain.LabelUnknown] = tl
	}
	for docType, qs := range questions {
		docType = strings.ToUpper(strings.TrimSpace(docType))
		if _, ok := c.hints[docType]; !ok {
			return nil, fmt.Errorf("questions configured for unknown type %q", docType)
		}
		seen := make(map[string]bool, len(qs))
		for _, q := range qs {
			if q.Identifier == "" || q.Identifier == domain.ClassificationIdentifier {
				return nil, fmt.Errorf("type %q: invalid question identifier %q", docType, q.Identifier)
			}
			if seen[q.Identifier] {
				return nil, fmt.Errorf("type %q: duplicate question identifier %q", docType, q.Identifier)
			}
			seen[q.Identifier] = true
			c.questions[docType] = append(c.questions[docType], q)
		}
	}
	return c, nil
}

// Contains reports taxonomy membership; labels compare case-insensitively.
func (c *Catalog) Contains(label string) bool {
	_, ok := c.hints[strings.ToUpper(strings.TrimSpace(label))]
	return ok
}

// PromptList renders the taxonomy as "- LABEL: hint" lines for the
// classification system prompt, in declaration order.
func (c *Catalog) PromptList() string {
	lines := make([]string, 0, len(c.taxonomy))
	for _, tl := range c.taxonomy {
		lines = append(lines, fmt.Sprintf("- %s: %s", tl.Label, tl.Hint))
	}
	return strings.Join(lines, "\n")
}

// Questions returns the configured questions for a classified type. Unknown
// and ignored types have none; that is not an error.
func (c *Catalog) Questions(docType string) []Question {
	docType = strings.ToUpper(strings.TrimSpace(docType))
	if tl, ok := c.hints[docType]; !ok || tl.Ignore {
		return nil
	}
	return c.questions[docType]
}

// QuestionLabel returns the display label for one configured question, or
// the identifier itself when no label was configured.
func (c *Catalog) QuestionLabel(docType, identifier string) string {
	for _, q := range c.Questions(docType) {
		if q.Identifier == identifier {
			if q.Label != "" {
				return q.Label
			}
			return q.Identifier
		}
	}
	return identifier
}

// Types returns the taxonomy labels in sorted order, for diagnostics.
func (c *Catalog) Types() []string {
	labels := make([]string, 0, len(c.taxonomy))
	for _, tl := range c.taxonomy {
		labels = append(labels, tl.Label)
	}
	sort.Strings(labels)
	return labels
}
