package anchor

import (
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
)

var (
	ErrInvalidRange = errors.New("start frame must be less than end frame")
	ErrCancelled    = errors.New("anchoring cancelled")
)

func CheckRange(start, end int) error {
	if start >= end {
		return errors.Wrapf(ErrInvalidRange, "[%d, %d]", start, end)
	}
	return nil
}

// Confirmer decides whether anchoring proceeds while listed channels
// are skipped
type Confirmer interface {
	Confirm(invalid []scene.Plug) (bool, error)
}

type ConfirmFunc func(invalid []scene.Plug) (bool, error)

func (f ConfirmFunc) Confirm(invalid []scene.Plug) (bool, error) { return f(invalid) }

// AlwaysConfirm proceeds without asking
var AlwaysConfirm = ConfirmFunc(func([]scene.Plug) (bool, error) { return true, nil })

type NodeResult struct {
	Node   string
	Report *Report
	Err    error
}

type SelectionReport struct {
	Driver  string
	Start   int
	End     int
	Invalid []scene.Plug
	Results []NodeResult
}

// Failed lists nodes whose anchoring returned error
func (r *SelectionReport) Failed() []NodeResult {
	failed := make([]NodeResult, 0)
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// AnchorSelection anchors every selected transform except driver
func (s *Solver) AnchorSelection(driver string, start, end int, confirmer Confirmer) (*SelectionReport, error) {
	selection, err := s.host.Selection(true)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get selection")
	}
	return s.AnchorNodes(selection, driver, start, end, confirmer)
}

// AnchorNodes asks confirmer once when any node has invalid channels, then
// anchors nodes one by one. Failure of one node does not stop the rest,
// nodes that can not be inspected are reported as failed up front.
func (s *Solver) AnchorNodes(nodes []string, driver string, start, end int, confirmer Confirmer) (*SelectionReport, error) {
	if err := CheckRange(start, end); err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if driver != "" && node == driver {
			continue
		}
		targets = append(targets, node)
	}
	if len(targets) == 0 {
		return nil, errors.New("No nodes to anchor")
	}

	report := &SelectionReport{Driver: driver, Start: start, End: end}
	runnable := make([]string, 0, len(targets))
	var firstErr error
	for _, node := range targets {
		invalid, err := s.sampler.InvalidChannels(node)
		if err != nil {
			log.Printf("[anchor] Failed to inspect %q: %v", node, err)
			report.Results = append(report.Results, NodeResult{Node: node, Err: err})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		runnable = append(runnable, node)
		report.Invalid = append(report.Invalid, invalid.Plugs(node)...)
	}
	if len(runnable) == 0 {
		return report, errors.Wrapf(firstErr, "No nodes to anchor")
	}
	targets = runnable

	if len(report.Invalid) != 0 {
		if confirmer == nil {
			return report, errors.Wrapf(ErrCancelled, "%d invalid channels and nobody to confirm", len(report.Invalid))
		}
		ok, err := confirmer.Confirm(report.Invalid)
		if err != nil {
			return report, errors.Wrapf(err, "Confirmation failed")
		}
		if !ok {
			return report, ErrCancelled
		}
	}

	for _, node := range targets {
		r, err := s.AnchorTransform(node, driver, start, end)
		if err != nil {
			log.Printf("[anchor] Failed to anchor %q: %v", node, err)
		}
		report.Results = append(report.Results, NodeResult{Node: node, Report: r, Err: err})
	}
	return report, nil
}
