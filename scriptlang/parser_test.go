package scriptlang_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/anchor_transform/scriptlang"
)

func TestParser(t *testing.T) {
	const test = `
// feet stay on ground during contact
select "foot_L" "foot_R" // both feet
time 1001
anchor 1001 1010 "hips" force
anchor -5 10.5
undo

TIME 12 //
`
	commands, err := scriptlang.ParseScript([]byte(test))
	require.NoError(t, err)
	require.Len(t, commands, 6)

	assert.Equal(t, "select", commands[0].Name)
	assert.Equal(t, []string{"foot_L", "foot_R"}, commands[0].Strings(0))
	assert.Equal(t, "both feet", commands[0].Comment)

	v, err := commands[1].Int(0)
	require.NoError(t, err)
	assert.Equal(t, 1001, v)

	anchor := commands[2]
	start, err := anchor.Int(0)
	require.NoError(t, err)
	end, err := anchor.Int(1)
	require.NoError(t, err)
	assert.Equal(t, 1001, start)
	assert.Equal(t, 1010, end)
	assert.Equal(t, []string{"hips"}, anchor.Strings(2))
	assert.True(t, anchor.HasWord("force"))

	_, err = commands[3].Int(1)
	assert.Error(t, err)
	f, err := commands[3].Float(1)
	require.NoError(t, err)
	assert.Equal(t, 10.5, f)

	assert.Equal(t, "undo", commands[4].Name)
	assert.Empty(t, commands[4].Args)
	assert.Equal(t, "time", commands[5].Name)
}

func TestParserErrors(t *testing.T) {
	_, err := scriptlang.ParseScript([]byte(`1001 anchor`))
	assert.Error(t, err)

	_, err = scriptlang.ParseScript([]byte(`"foot" select`))
	assert.Error(t, err)
}

func TestRenderScript(t *testing.T) {
	commands, err := scriptlang.ParseScript([]byte("select \"a b\"\nanchor 1 10 // go\n"))
	require.NoError(t, err)
	assert.Equal(t, "select \"a b\"\nanchor 1 10          // go", scriptlang.RenderScript(commands))

	again, err := scriptlang.ParseScript([]byte(scriptlang.RenderScript(commands)))
	require.NoError(t, err)
	assert.Equal(t, commands[1].Args, again[1].Args)
}
