package sports

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Sport is one row of the keyword table.
//
// A sport with an Exclude list is staged: exclusions reject outright, Strong
// terms accept, and Weak terms accept only alongside a Context word.
type Sport struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Exclude  []string `yaml:"exclude"`
	Strong   []string `yaml:"strong"`
	Weak     []string `yaml:"weak"`
	Context  []string `yaml:"context"`
}

// Staged reports whether the sport uses the exclude/strong/weak pipeline.
func (s Sport) Staged() bool {
	return len(s.Exclude) > 0
}

// Terms returns every term that counts as evidence for the sport.
func (s Sport) Terms() []string {
	out := make([]string, 0, len(s.Keywords)+len(s.Strong)+len(s.Weak))
	out = append(out, s.Keywords...)
	out = append(out, s.Strong...)
	out = append(out, s.Weak...)
	return out
}

// Table is the immutable sport keyword table.
type Table struct {
	sports []Sport
	index  map[string]int
	union  []string
}

type tableFile struct {
	Sports []Sport `yaml:"sports"`
}

// Default parses the keyword table compiled into the binary.
func Default() *Table {
	t, err := Parse(defaultKeywords)
	if err != nil {
		panic(fmt.Sprintf("embedded keyword table: %v", err))
	}
	return t
}

// Load reads a keyword table from path, or returns Default when path is empty.
func Load(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("keyword table %s: %w", path, err)
	}
	return t, nil
}

// Parse builds a Table from its YAML form. Every term is lower-cased.
func Parse(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal keyword table: %w", err)
	}
	if len(file.Sports) == 0 {
		return nil, fmt.Errorf("keyword table has no sports")
	}

	t := &Table{
		sports: make([]Sport, 0, len(file.Sports)),
		index:  make(map[string]int, len(file.Sports)),
	}
	seen := make(map[string]struct{})

	for _, raw := range file.Sports {
		s := Sport{
			Name:     Normalize(raw.Name),
			Keywords: lowerAll(raw.Keywords),
			Exclude:  lowerAll(raw.Exclude),
			Strong:   lowerAll(raw.Strong),
			Weak:     lowerAll(raw.Weak),
			Context:  lowerAll(raw.Context),
		}
		if err := validate(s); err != nil {
			return nil, err
		}
		if _, dup := t.index[s.Name]; dup {
			return nil, fmt.Errorf("sport %q listed twice", s.Name)
		}

		t.index[s.Name] = len(t.sports)
		t.sports = append(t.sports, s)

		for _, term := range s.Terms() {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			t.union = append(t.union, term)
		}
	}

	return t, nil
}

func validate(s Sport) error {
	if s.Name == "" {
		return fmt.Errorf("sport without a name")
	}
	if s.Staged() {
		if len(s.Strong) == 0 {
			return fmt.Errorf("sport %q: staged sport needs strong keywords", s.Name)
		}
		if len(s.Weak) > 0 && len(s.Context) == 0 {
			return fmt.Errorf("sport %q: weak keywords need context words", s.Name)
		}
		return nil
	}
	if len(s.Keywords) == 0 {
		return fmt.Errorf("sport %q: keyword list is empty", s.Name)
	}
	return nil
}

// Names lists the supported sports in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.sports))
	for i, s := range t.sports {
		out[i] = s.Name
	}
	return out
}

// Lookup finds a sport by name, ignoring case and "table tennis" style spelling.
func (t *Table) Lookup(name string) (Sport, bool) {
	i, ok := t.index[Normalize(name)]
	if !ok {
		return Sport{}, false
	}
	return t.sports[i], true
}

// Normalize maps a sport name to its table key.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer(" ", "-", "_", "-").Replace(name)
	return name
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			out = append(out, term)
		}
	}
	return out
}
