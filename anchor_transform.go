package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/anchor"
	"github.com/mogaika/anchor_transform/config"
	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/scene/scenefile"
	"github.com/mogaika/anchor_transform/scriptlang"
	"github.com/mogaika/anchor_transform/status"
	"github.com/mogaika/anchor_transform/utils"
	"github.com/mogaika/anchor_transform/utils/fbxbuilder"
	"github.com/mogaika/anchor_transform/utils/gltfutils"
	"github.com/mogaika/anchor_transform/web"
)

func timing(cfg *config.Config) gltfutils.Timing {
	return gltfutils.Timing{FPS: cfg.FPS, StartFrame: float64(cfg.Start)}
}

func loadScene(path string, cfg *config.Config) (*memscene.Scene, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return scenefile.LoadFile(path)
	case ".gltf", ".glb":
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to open scene")
		}
		defer f.Close()
		return gltfutils.Import(f, timing(cfg))
	default:
		return nil, errors.Errorf("Unknown scene format %q", path)
	}
}

func writeScene(w io.Writer, ext string, sc *memscene.Scene, cfg *config.Config, name string) error {
	switch ext {
	case ".yaml", ".yml":
		return scenefile.Save(w, sc)
	case ".gltf", ".glb":
		doc, err := gltfutils.ExportDocument(sc, timing(cfg), cfg.Start, cfg.End)
		if err != nil {
			return err
		}
		if ext == ".glb" {
			return gltfutils.ExportBinary(w, doc)
		}
		return gltfutils.ExportText(w, doc)
	case ".fbx":
		frame := cfg.ExportFrame
		if frame == 0 {
			frame = sc.CurrentTime()
		}
		return fbxbuilder.ExportPose(w, sc, name, frame)
	default:
		return errors.Errorf("Unknown output format %q", ext)
	}
}

func saveScene(path string, sc *memscene.Scene, cfg *config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create output")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeScene(w, strings.ToLower(filepath.Ext(path)), sc, cfg, path); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// promptConfirmer lists channels that will be skipped and waits for y/N
func promptConfirmer(in io.Reader, out io.Writer) anchor.Confirmer {
	reader := bufio.NewReader(in)
	return anchor.ConfirmFunc(func(invalid []scene.Plug) (bool, error) {
		fmt.Fprintf(out, "Channels that can not be keyed and will be skipped:\n")
		for _, p := range invalid {
			fmt.Fprintf(out, "  %v\n", p)
		}
		fmt.Fprintf(out, "Continue? [y/N] ")
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	})
}

func splitNodes(list string) []string {
	nodes := make([]string, 0)
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func runScript(solver *anchor.Solver, sc *memscene.Scene, path string, cfg *config.Config, confirmer anchor.Confirmer) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read script")
	}
	text, err := cfg.DecodeScript(data)
	if err != nil {
		return err
	}
	commands, err := scriptlang.ParseScript([]byte(text))
	if err != nil {
		return errors.Wrapf(err, "Failed to parse script %q", path)
	}
	reports, err := solver.RunScript(sc, commands, confirmer)
	for _, r := range reports {
		for _, failed := range r.Failed() {
			log.Printf("[script] %q failed: %v", failed.Node, failed.Err)
		}
	}
	return err
}

type options struct {
	configPath, scenePath, nodes, driver, out, script, addr string
	start, end                                              int
	yes                                                     bool
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Path to yaml config")
	fs.StringVar(&o.scenePath, "scene", "", "Scene to load (.yaml, .gltf, .glb)")
	fs.StringVar(&o.nodes, "nodes", "", "Comma separated nodes to anchor, scene selection when empty")
	fs.StringVar(&o.driver, "driver", "", "Driver node, anchor to world when empty")
	fs.IntVar(&o.start, "start", 0, "Start frame, config default when not set")
	fs.IntVar(&o.end, "end", 0, "End frame (inclusive), config default when not set")
	fs.StringVar(&o.out, "out", "", "Save result (.yaml, .gltf, .glb, .fbx)")
	fs.StringVar(&o.script, "script", "", "Run anchor script instead of single anchoring")
	fs.StringVar(&o.addr, "i", "", "Address of server, e.g. :8000")
	fs.BoolVar(&o.yes, "yes", false, "Do not ask before skipping channels that can not be keyed")
}

// apply overrides cfg only with flags given on the command line
func (o *options) apply(cfg *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = o.driver
		case "start":
			cfg.Start = o.start
		case "end":
			cfg.End = o.end
		case "yes":
			cfg.AutoConfirm = o.yes
		case "i":
			cfg.Server.Addr = o.addr
		}
	})
}

func main() {
	var opts options
	opts.register(flag.CommandLine)
	flag.Parse()

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			log.Fatal(err)
		}
	}
	opts.apply(cfg, flag.CommandLine)
	scenePath, nodes, out, script, addr := opts.scenePath, opts.nodes, opts.out, opts.script, opts.addr

	if scenePath == "" {
		flag.PrintDefaults()
		return
	}
	if err := anchor.CheckRange(cfg.Start, cfg.End); err != nil {
		log.Fatal(err)
	}

	sc, err := loadScene(scenePath, cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Loaded %q: %d nodes, %d curves", scenePath, len(sc.Nodes()), len(sc.Curves()))

	if addr != "" {
		s := web.NewServer(cfg, sc, status.NewHub())
		if err := s.ListenAndServe(); err != nil {
			log.Fatal(err)
		}
		return
	}

	confirmer := promptConfirmer(os.Stdin, os.Stdout)
	if cfg.AutoConfirm {
		confirmer = anchor.AlwaysConfirm
	}

	solver := anchor.NewSolver(sc)
	solver.Debug = cfg.Debug
	exitCode := 0

	if script != "" {
		if err := runScript(solver, sc, script, cfg, confirmer); err != nil {
			log.Fatal(err)
		}
	} else {
		var report *anchor.SelectionReport
		if targets := splitNodes(nodes); len(targets) != 0 {
			report, err = solver.AnchorNodes(targets, cfg.Driver, cfg.Start, cfg.End, confirmer)
		} else {
			report, err = solver.AnchorSelection(cfg.Driver, cfg.Start, cfg.End, confirmer)
		}
		if err != nil {
			log.Fatal(err)
		}
		if cfg.Debug {
			utils.LogDump(report)
		}
		if failed := report.Failed(); len(failed) != 0 {
			for _, f := range failed {
				log.Printf("%q failed: %v", f.Node, f.Err)
			}
			exitCode = 1
		}
	}

	if out != "" {
		if err := saveScene(out, sc, cfg); err != nil {
			log.Fatal(err)
		}
		log.Printf("Saved %q", out)
	}
	os.Exit(exitCode)
}
