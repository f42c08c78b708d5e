// Package pollconfig loads poll definitions from a local YAML file, for
// working against a platform whose poll endpoint is unreachable or for tests.
package pollconfig

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tournesol-app/comparo/internal/domain"
	"gopkg.in/yaml.v3"
)

// File is the top-level YAML document.
type File struct {
	Polls []PollConfig `yaml:"polls"`
}

type PollConfig struct {
	Name          string            `yaml:"name"`
	MainCriterion string            `yaml:"main_criterion,omitempty"`
	Criteria      []CriterionConfig `yaml:"criteria"`
}

type CriterionConfig struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
}

// Load reads and validates a poll file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a poll document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing poll file: %w", err)
	}
	if errs := Validate(&f); len(errs) > 0 {
		return nil, fmt.Errorf("invalid poll file: %w", errors.Join(errs...))
	}
	return &f, nil
}

// Validate checks a poll file for structural errors.
func Validate(f *File) []error {
	var errs []error
	if len(f.Polls) == 0 {
		errs = append(errs, fmt.Errorf("at least one poll is required"))
	}

	pollNames := map[string]bool{}
	for i, p := range f.Polls {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("poll[%d]: name is required", i))
		}
		if pollNames[p.Name] {
			errs = append(errs, fmt.Errorf("poll[%d]: duplicate name %q", i, p.Name))
		}
		pollNames[p.Name] = true
		if len(p.Criteria) == 0 {
			errs = append(errs, fmt.Errorf("poll %q: at least one criterion is required", p.Name))
		}

		names := map[string]bool{}
		for j, c := range p.Criteria {
			if c.Name == "" {
				errs = append(errs, fmt.Errorf("poll %q criterion[%d]: name is required", p.Name, j))
			}
			if names[c.Name] {
				errs = append(errs, fmt.Errorf("poll %q criterion[%d]: duplicate name %q", p.Name, j, c.Name))
			}
			names[c.Name] = true
		}

		main := p.mainCriterion()
		if main != "" && !names[main] {
			errs = append(errs, fmt.Errorf("poll %q: main criterion %q is not a criterion", p.Name, main))
		}
		for _, c := range p.Criteria {
			if c.Name == main && c.Optional {
				errs = append(errs, fmt.Errorf("poll %q: main criterion %q cannot be optional", p.Name, main))
			}
		}
	}
	return errs
}

func (p PollConfig) mainCriterion() string {
	if p.MainCriterion != "" {
		return p.MainCriterion
	}
	if len(p.Criteria) > 0 {
		return p.Criteria[0].Name
	}
	return ""
}

// Poll converts the entry into a domain poll. Criterion positions follow
// declaration order.
func (p PollConfig) Poll() *domain.Poll {
	out := &domain.Poll{Name: p.Name, MainCriterion: p.mainCriterion()}
	for i, c := range p.Criteria {
		label := c.Label
		if label == "" {
			label = c.Name
		}
		out.Criteria = append(out.Criteria, domain.Criterion{
			Name:     c.Name,
			Label:    label,
			Optional: c.Optional,
			Position: i,
		})
	}
	return out
}

// Source serves polls from a loaded file.
type Source struct {
	polls map[string]*domain.Poll
}

func NewSource(f *File) *Source {
	s := &Source{polls: make(map[string]*domain.Poll, len(f.Polls))}
	for _, p := range f.Polls {
		s.polls[p.Name] = p.Poll()
	}
	return s
}

// GetPoll returns a copy of the named poll.
func (s *Source) GetPoll(_ context.Context, name string) (*domain.Poll, error) {
	p, ok := s.polls[name]
	if !ok {
		return nil, fmt.Errorf("poll %s: %w", name, domain.ErrNotFound)
	}
	out := *p
	out.Criteria = append([]domain.Criterion(nil), p.Criteria...)
	return &out, nil
}
