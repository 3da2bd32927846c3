package anchor

import (
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scriptlang"
)

// ScriptHost is host the script runner can also select and scrub on
type ScriptHost interface {
	scene.Host
	Select(names ...string) error
	SetCurrentTime(t float64)
}

// RunScript executes parsed commands in order and stops on first error:
//
//	select "foot_L" "foot_R"
//	time 1001
//	anchor 1001 1010 "hips"
//	anchor 1001 1010 force
//	undo
func (s *Solver) RunScript(host ScriptHost, commands []*scriptlang.Command, confirmer Confirmer) ([]*SelectionReport, error) {
	reports := make([]*SelectionReport, 0)
	for _, c := range commands {
		log.Printf("[script] %d: %v", c.Line, c)
		switch c.Name {
		case "select":
			if err := host.Select(c.Strings(0)...); err != nil {
				return reports, errors.Wrapf(err, "Line %d", c.Line)
			}
		case "time":
			t, err := c.Float(0)
			if err != nil {
				return reports, err
			}
			host.SetCurrentTime(t)
		case "anchor":
			start, err := c.Int(0)
			if err != nil {
				return reports, err
			}
			end, err := c.Int(1)
			if err != nil {
				return reports, err
			}
			driver := ""
			if names := c.Strings(2); len(names) != 0 {
				driver = names[0]
			}
			cf := confirmer
			if c.HasWord("force") {
				cf = AlwaysConfirm
			}
			r, err := s.AnchorSelection(driver, start, end, cf)
			if err != nil {
				return reports, errors.Wrapf(err, "Line %d", c.Line)
			}
			reports = append(reports, r)
		case "undo":
			undoer, ok := host.(scene.Undoer)
			if !ok {
				return reports, errors.Errorf("Line %d: host cannot undo", c.Line)
			}
			if err := undoer.Undo(); err != nil {
				return reports, errors.Wrapf(err, "Line %d", c.Line)
			}
		default:
			return reports, errors.Errorf("Line %d: unknown command %q", c.Line, c.Name)
		}
	}
	return reports, nil
}
