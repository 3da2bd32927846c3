package scriptlang

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Word is unquoted argument, like force in "anchor 1 10 force"
type Word string

type Command struct {
	Name    string
	Args    []interface{}
	Line    int
	Comment string
}

func (c *Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		switch v := a.(type) {
		case string:
			s += fmt.Sprintf(" %q", v)
		default:
			s += fmt.Sprint(" ", v)
		}
	}
	return s
}

func (c *Command) AddArgs(args ...interface{}) {
	c.Args = append(c.Args, args...)
}

func (c *Command) Int(i int) (int, error) {
	if i >= len(c.Args) {
		return 0, errors.Errorf("Line %d: %s expects argument %d", c.Line, c.Name, i+1)
	}
	switch v := c.Args[i].(type) {
	case int:
		return v, nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, errors.Errorf("Line %d: %s argument %d is not integer: %v", c.Line, c.Name, i+1, c.Args[i])
}

func (c *Command) Float(i int) (float64, error) {
	if i >= len(c.Args) {
		return 0, errors.Errorf("Line %d: %s expects argument %d", c.Line, c.Name, i+1)
	}
	switch v := c.Args[i].(type) {
	case int:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, errors.Errorf("Line %d: %s argument %d is not number: %v", c.Line, c.Name, i+1, c.Args[i])
}

// Strings returns quoted arguments starting from i
func (c *Command) Strings(from int) []string {
	result := make([]string, 0, len(c.Args))
	for i := from; i < len(c.Args); i++ {
		if s, ok := c.Args[i].(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func (c *Command) HasWord(w string) bool {
	for _, a := range c.Args {
		if v, ok := a.(Word); ok && strings.EqualFold(string(v), w) {
			return true
		}
	}
	return false
}

func RenderScriptLines(commands []*Command) []string {
	result := make([]string, 0, len(commands))
	for _, c := range commands {
		if c.Comment == "" {
			result = append(result, c.String())
		} else {
			result = append(result, fmt.Sprintf("%-20s // %s", c.String(), c.Comment))
		}
	}
	return result
}

func RenderScript(commands []*Command) string {
	return strings.Join(RenderScriptLines(commands), "\n")
}
