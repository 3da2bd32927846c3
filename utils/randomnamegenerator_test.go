package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameGeneratorUnique(t *testing.T) {
	g := NewNameGenerator(0)
	assert.Equal(t, "root", g.Unique("root"))

	dup := g.Unique("root")
	assert.NotEqual(t, "root", dup)
	assert.Contains(t, dup, "root_")

	a, b := g.Unique(""), g.Unique("")
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)

	first := NewNameGenerator(7).Unique("")
	assert.Equal(t, first, NewNameGenerator(7).Unique(""), "same seed gives same names")
}
