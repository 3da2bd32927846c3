package main

import (
	"bytes"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/anchor_transform/anchor"
	"github.com/mogaika/anchor_transform/config"
	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
)

func TestPromptConfirmer(t *testing.T) {
	invalid := []scene.Plug{{Node: "M", Attr: "translateY"}}
	for _, tc := range []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Yes\n", true},
		{"\n", false},
		{"n\n", false},
		{"", false},
	} {
		var out bytes.Buffer
		ok, err := promptConfirmer(strings.NewReader(tc.input), &out).Confirm(invalid)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "input %q", tc.input)
		assert.Contains(t, out.String(), "M.translateY")
	}
}

func TestSplitNodes(t *testing.T) {
	assert.Equal(t, []string{"foot_L", "foot_R"}, splitNodes(" foot_L, ,foot_R,"))
	assert.Empty(t, splitNodes(""))
}

func TestSaveLoadScene(t *testing.T) {
	sc := memscene.New()
	_, err := sc.AddNode(memscene.NewTransform("P", ""))
	require.NoError(t, err)
	_, err = sc.AddCurve(memscene.Curve{
		Name:   "P_translateX",
		Output: scene.Plug{Node: "P", Attr: "translateX"},
		Keys: []memscene.Key{
			{Time: 1, Value: 0, In: "linear", Out: "linear"},
			{Time: 10, Value: 10, In: "linear", Out: "linear"},
		},
	})
	require.NoError(t, err)
	_, err = sc.AddNode(memscene.NewTransform("N", "P"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Start, cfg.End = 1, 10
	_, err = anchor.NewSolver(sc).AnchorNodes([]string{"N"}, "", 1, 10, anchor.AlwaysConfirm)
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"out.yaml", "out.glb", "out.gltf"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, saveScene(path, sc, cfg))
			loaded, err := loadScene(path, cfg)
			require.NoError(t, err)
			for f := 1.0; f <= 10; f++ {
				m, err := loaded.Matrix("N", scene.WorldMatrix, f)
				require.NoError(t, err)
				assert.InDelta(t, 0.0, m.At(0, 3), 1e-4, "frame %v", f)
			}
		})
	}

	require.NoError(t, saveScene(filepath.Join(dir, "out.fbx"), sc, cfg))
	assert.Error(t, saveScene(filepath.Join(dir, "out.obj"), sc, cfg))
	_, err = loadScene(filepath.Join(dir, "out.fbx"), cfg)
	assert.Error(t, err)
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	parse := func(args ...string) *config.Config {
		var opts options
		fs := flag.NewFlagSet("anchor_transform", flag.ContinueOnError)
		opts.register(fs)
		require.NoError(t, fs.Parse(args))
		cfg := config.Default()
		opts.apply(cfg, fs)
		return cfg
	}

	cfg := parse("-start", "5")
	assert.Equal(t, 5, cfg.Start)
	assert.Equal(t, 1010, cfg.End)

	cfg = parse("-end", "2000")
	assert.Equal(t, 1001, cfg.Start)
	assert.Equal(t, 2000, cfg.End)

	cfg = parse("-start", "0", "-end", "24", "-driver", "hand", "-yes")
	assert.Equal(t, 0, cfg.Start)
	assert.Equal(t, 24, cfg.End)
	assert.Equal(t, "hand", cfg.Driver)
	assert.True(t, cfg.AutoConfirm)

	def := config.Default()
	cfg = parse("-scene", "shot.yaml")
	assert.Equal(t, def.Start, cfg.Start)
	assert.Equal(t, def.Driver, cfg.Driver)
	assert.Equal(t, def.AutoConfirm, cfg.AutoConfirm)
	assert.Equal(t, def.Server.Addr, cfg.Server.Addr)
}
