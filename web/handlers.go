package web

import (
	"bytes"
	"log"
	"net/http"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/anchor"
	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/scenefile"
	"github.com/mogaika/anchor_transform/utils/fbxbuilder"
	"github.com/mogaika/anchor_transform/utils/gltfutils"
	"github.com/mogaika/anchor_transform/webutils"
)

type nodeInfo struct {
	Name   string
	Kind   scene.NodeKind
	Parent string `json:",omitempty"`
}

type sceneInfo struct {
	Time      float64
	Selection []string
	Nodes     []nodeInfo
	Curves    int
	UndoSteps []string
}

type channelInfo struct {
	Plug    scene.Plug
	Value   float64
	Curve   string `json:",omitempty"`
	Locked  bool
	Invalid bool
}

type nodeDetails struct {
	nodeInfo
	Children    []string
	RotateOrder string
	RotatePivot mgl64.Vec3
	World       mgl64.Mat4
	Channels    []channelInfo
}

func (s *Server) HandlerAjaxScene(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	selection, err := s.scene.Selection(false)
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	info := sceneInfo{
		Time:      s.scene.CurrentTime(),
		Selection: selection,
		Nodes:     make([]nodeInfo, 0),
		Curves:    len(s.scene.Curves()),
		UndoSteps: s.scene.UndoSteps(),
	}
	for _, n := range s.scene.Nodes() {
		info.Nodes = append(info.Nodes, nodeInfo{Name: n.Name, Kind: n.Kind, Parent: n.Parent})
	}
	webutils.WriteJson(w, info)
}

func (s *Server) HandlerAjaxNode(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	name := mux.Vars(r)["node"]
	n, ok := s.scene.Node(name)
	if !ok {
		webutils.WriteError(w, http.StatusNotFound, errors.Wrapf(scene.ErrNodeNotFound, "%q", name))
		return
	}

	t := s.scene.CurrentTime()
	world, err := s.scene.Matrix(n.Name, scene.WorldMatrix, t)
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	invalid, err := s.solver.Sampler().InvalidChannels(n.Name)
	if err != nil {
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	details := nodeDetails{
		nodeInfo:    nodeInfo{Name: n.Name, Kind: n.Kind, Parent: n.Parent},
		Children:    s.scene.Children(n.Name),
		RotateOrder: n.RotateOrder.String(),
		RotatePivot: n.RotatePivot,
		World:       world,
		Channels:    make([]channelInfo, 0, scene.NumChannels),
	}
	for c := scene.Channel(0); c < scene.NumChannels; c++ {
		ci := channelInfo{
			Plug:    c.Plug(n.Name),
			Value:   s.scene.ChannelValue(n, c, t),
			Locked:  n.Locked.Has(c),
			Invalid: invalid.Has(c),
		}
		if curves, err := s.scene.Inputs(ci.Plug, scene.SourceAnimCurve); err == nil && len(curves) != 0 {
			ci.Curve = curves[0]
		}
		details.Channels = append(details.Channels, ci)
	}
	webutils.WriteJson(w, details)
}

type selectRequest struct {
	Nodes []string `json:"nodes"`
}

func (s *Server) HandlerActionSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := webutils.ReadJson(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.scene.Select(req.Nodes...); err != nil {
		webutils.WriteError(w, http.StatusNotFound, err)
		return
	}
	selection, _ := s.scene.Selection(false)
	webutils.WriteJson(w, selection)
}

type timeRequest struct {
	Time float64 `json:"time"`
}

func (s *Server) HandlerActionTime(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if err := webutils.ReadJson(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.scene.SetCurrentTime(req.Time)
	webutils.WriteJson(w, req)
}

type anchorRequest struct {
	// selected transforms when empty
	Nodes  []string `json:"nodes"`
	Driver string   `json:"driver"`
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Force  bool     `json:"force"`
}

type anchorResult struct {
	Node   string
	Keys   int
	Curves []string `json:",omitempty"`
	Error  string   `json:",omitempty"`
}

type anchorResponse struct {
	Driver  string
	Start   int
	End     int
	Invalid []scene.Plug
	Results []anchorResult
}

func newAnchorResponse(report *anchor.SelectionReport) *anchorResponse {
	resp := &anchorResponse{
		Driver:  report.Driver,
		Start:   report.Start,
		End:     report.End,
		Invalid: report.Invalid,
		Results: make([]anchorResult, 0, len(report.Results)),
	}
	if resp.Invalid == nil {
		resp.Invalid = make([]scene.Plug, 0)
	}
	for _, res := range report.Results {
		ar := anchorResult{Node: res.Node}
		if res.Report != nil {
			ar.Keys = res.Report.Keys
			ar.Curves = res.Report.Curves
		}
		if res.Err != nil {
			ar.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, ar)
	}
	return resp
}

// HandlerActionAnchor anchors nodes. Without force, request touching
// channels that can not be keyed is refused with 409 and list of channels.
func (s *Server) HandlerActionAnchor(w http.ResponseWriter, r *http.Request) {
	req := anchorRequest{Driver: s.cfg.Driver}
	if err := webutils.ReadJson(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if req.Start == 0 && req.End == 0 {
		req.Start, req.End = s.cfg.Start, s.cfg.End
	}

	var confirmer anchor.Confirmer = anchor.ConfirmFunc(func([]scene.Plug) (bool, error) { return false, nil })
	if req.Force || s.cfg.AutoConfirm {
		confirmer = anchor.AlwaysConfirm
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	var report *anchor.SelectionReport
	var err error
	if len(req.Nodes) == 0 {
		report, err = s.solver.AnchorSelection(req.Driver, req.Start, req.End, confirmer)
	} else {
		report, err = s.solver.AnchorNodes(req.Nodes, req.Driver, req.Start, req.End, confirmer)
	}

	switch {
	case errors.Is(err, anchor.ErrCancelled):
		s.hub.Info("Anchoring cancelled: %d channels can not be keyed", len(report.Invalid))
		webutils.WriteJsonStatus(w, http.StatusConflict, newAnchorResponse(report))
	case errors.Is(err, anchor.ErrInvalidRange):
		webutils.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, scene.ErrNodeNotFound):
		webutils.WriteError(w, http.StatusNotFound, err)
	case err != nil:
		s.hub.Error("Anchoring failed: %v", err)
		webutils.WriteError(w, http.StatusBadRequest, err)
	default:
		if failed := report.Failed(); len(failed) != 0 {
			s.hub.Error("Failed to anchor %d of %d nodes", len(failed), len(report.Results))
		} else {
			s.hub.Info("Anchored %d nodes over [%d, %d]", len(report.Results), report.Start, report.End)
		}
		webutils.WriteJson(w, newAnchorResponse(report))
	}
}

func (s *Server) HandlerActionUndo(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.scene.Undo(); err != nil {
		webutils.WriteError(w, http.StatusConflict, err)
		return
	}
	webutils.WriteJson(w, s.scene.UndoSteps())
}

func (s *Server) HandlerDumpScene(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]

	s.lock.Lock()
	defer s.lock.Unlock()

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "yaml":
		contentType = "application/yaml"
		if err := scenefile.Save(&buf, s.scene); err != nil {
			webutils.WriteError(w, http.StatusInternalServerError, err)
			return
		}
	case "glb":
		contentType = "model/gltf-binary"
		doc, err := gltfutils.ExportDocument(s.scene, gltfutils.Timing{FPS: s.cfg.FPS, StartFrame: float64(s.cfg.Start)}, s.cfg.Start, s.cfg.End)
		if err == nil {
			err = gltfutils.ExportBinary(&buf, doc)
		}
		if err != nil {
			webutils.WriteError(w, http.StatusInternalServerError, err)
			return
		}
	case "fbx":
		frame := s.cfg.ExportFrame
		if frame == 0 {
			frame = s.scene.CurrentTime()
		}
		if err := fbxbuilder.ExportPose(&buf, s.scene, "scene.fbx", frame); err != nil {
			webutils.WriteError(w, http.StatusInternalServerError, err)
			return
		}
	default:
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("Unknown format %q", format))
		return
	}
	webutils.WriteFile(w, &buf, "scene."+format, contentType)
}

func (s *Server) HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] Failed to upgrade status connection: %v", err)
		return
	}
	s.hub.Serve(conn)
}
