package web

import (
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/mogaika/anchor_transform/anchor"
	"github.com/mogaika/anchor_transform/config"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/status"
)

// Server exposes one scene over http. Requests touching scene are
// serialized by lock.
type Server struct {
	lock   sync.Mutex
	cfg    *config.Config
	scene  *memscene.Scene
	solver *anchor.Solver
	hub    *status.Hub

	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, sc *memscene.Scene, hub *status.Hub) *Server {
	solver := anchor.NewSolver(sc)
	solver.Debug = cfg.Debug
	solver.Progress = hub.AnchorProgress
	return &Server{
		cfg:    cfg,
		scene:  sc,
		solver: solver,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/scene", s.HandlerAjaxScene).Methods(http.MethodGet)
	r.HandleFunc("/json/node/{node}", s.HandlerAjaxNode).Methods(http.MethodGet)
	r.HandleFunc("/action/select", s.HandlerActionSelect).Methods(http.MethodPost)
	r.HandleFunc("/action/time", s.HandlerActionTime).Methods(http.MethodPost)
	r.HandleFunc("/action/anchor", s.HandlerActionAnchor).Methods(http.MethodPost)
	r.HandleFunc("/action/undo", s.HandlerActionUndo).Methods(http.MethodPost)
	r.HandleFunc("/dump/scene.{format}", s.HandlerDumpScene).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", s.HandlerStatus)

	if s.cfg.Server.Data != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.Server.Data)))
	}
	return r
}

func (s *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.Router())
	return handlers.LoggingHandler(os.Stdout, h)
}

func (s *Server) ListenAndServe() error {
	log.Printf("[web] Starting server %v", s.cfg.Server.Addr)
	return http.ListenAndServe(s.cfg.Server.Addr, s.Handler())
}
