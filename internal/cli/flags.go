package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// scoresFlag collects repeated criterion=score assignments.
type scoresFlag struct {
	values map[string]int
	order  []string
}

var _ pflag.Value = (*scoresFlag)(nil)

func newScoresFlag() *scoresFlag {
	return &scoresFlag{values: make(map[string]int)}
}

func (f *scoresFlag) String() string {
	parts := make([]string, 0, len(f.order))
	for _, name := range f.order {
		parts = append(parts, fmt.Sprintf("%s=%d", name, f.values[name]))
	}
	return strings.Join(parts, ",")
}

// Set accepts "name=score" or a comma separated list of them. A later
// assignment to the same criterion wins.
func (f *scoresFlag) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, raw, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("expected criterion=score, got %q", part)
		}
		score, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("score for %s: %q is not an integer", name, raw)
		}
		if _, seen := f.values[name]; !seen {
			f.order = append(f.order, name)
		}
		f.values[name] = score
	}
	return nil
}

func (f *scoresFlag) Type() string { return "criterion=score" }

// Assignments returns the parsed scores in the order first given.
func (f *scoresFlag) Assignments() []assignment {
	out := make([]assignment, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, assignment{criterion: name, score: f.values[name]})
	}
	return out
}

type assignment struct {
	criterion string
	score     int
}

// parseList splits a comma separated flag value, dropping blanks and
// duplicates while keeping the first occurrence.
func parseList(s string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
