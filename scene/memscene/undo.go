package memscene

import (
	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
)

type undoChunk struct {
	name string
	ops  []func()
}

type undoStack struct {
	chunks []*undoChunk
	open   *undoChunk
	depth  int
}

// record stores revert step in open chunk or as standalone step
func (s *Scene) record(name string, revert func()) {
	if s.undo.open != nil {
		s.undo.open.ops = append(s.undo.open.ops, revert)
		return
	}
	s.undo.chunks = append(s.undo.chunks, &undoChunk{name: name, ops: []func(){revert}})
}

func (s *Scene) OpenUndoChunk(name string) error {
	s.undo.depth++
	if s.undo.depth == 1 {
		s.undo.open = &undoChunk{name: name}
	}
	return nil
}

func (s *Scene) CloseUndoChunk() error {
	if s.undo.depth == 0 {
		return scene.ErrNoUndoChunk
	}
	s.undo.depth--
	if s.undo.depth == 0 {
		if len(s.undo.open.ops) != 0 {
			s.undo.chunks = append(s.undo.chunks, s.undo.open)
		}
		s.undo.open = nil
	}
	return nil
}

// UndoSteps returns names of undoable steps, oldest first
func (s *Scene) UndoSteps() []string {
	names := make([]string, len(s.undo.chunks))
	for i, c := range s.undo.chunks {
		names[i] = c.name
	}
	return names
}

func (s *Scene) Undo() error {
	if s.undo.depth != 0 {
		return errors.Errorf("Cannot undo while chunk %q is open", s.undo.open.name)
	}
	if len(s.undo.chunks) == 0 {
		return errors.New("Nothing to undo")
	}
	last := s.undo.chunks[len(s.undo.chunks)-1]
	s.undo.chunks = s.undo.chunks[:len(s.undo.chunks)-1]
	for i := len(last.ops) - 1; i >= 0; i-- {
		last.ops[i]()
	}
	return nil
}
