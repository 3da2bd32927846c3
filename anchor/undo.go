package anchor

import (
	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
)

// UndoChunk keeps host undo chunk open until Close.
// Close is safe to call more than once.
type UndoChunk struct {
	q      scene.UndoQueue
	name   string
	closed bool
}

func OpenUndoChunk(q scene.UndoQueue, name string) (*UndoChunk, error) {
	if err := q.OpenUndoChunk(name); err != nil {
		return nil, errors.Wrapf(err, "Failed to open undo chunk %q", name)
	}
	return &UndoChunk{q: q, name: name}, nil
}

func (c *UndoChunk) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.q.CloseUndoChunk(); err != nil {
		return errors.Wrapf(err, "Failed to close undo chunk %q", c.name)
	}
	return nil
}
