// Package server exposes the engine over HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ftahirops/sensetop/engine"
	"github.com/ftahirops/sensetop/model"
)

// Controller is the part of the engine the server drives.
type Controller interface {
	View() model.View
	RefreshNow()
	SetInterval(sec int) error
	DismissAlert() bool
	ClearNotifications()
	Notifications() []model.Notification
}

// Server routes REST calls to a Controller and pushes updates over /ws.
type Server struct {
	ctrl     Controller
	hub      *Hub
	metrics  http.Handler
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a server. metrics may be nil.
func New(ctrl Controller, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		ctrl:    ctrl,
		hub:     NewHub(log),
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// PushView broadcasts a view update.
func (s *Server) PushView(v model.View) { s.hub.Broadcast("view", v) }

// PushAlert broadcasts an alert activation or close.
func (s *Server) PushAlert(ev model.AlertEvent) { s.hub.Broadcast("alert", ev) }

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/sensors", s.handleView)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/interval", s.handleGetInterval)
		r.Put("/interval", s.handleSetInterval)
		r.Post("/alert/dismiss", s.handleDismiss)
		r.Get("/notifications", s.handleNotifications)
		r.Delete("/notifications", s.handleClearNotifications)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.ctrl.RefreshNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

type intervalBody struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleGetInterval(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, intervalBody{Seconds: s.ctrl.View().IntervalSeconds})
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var body intervalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.ctrl.SetInterval(body.Seconds); err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidInterval):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"dismissed": s.ctrl.DismissAlert()})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Notifications())
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ClearNotifications()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := NewClient(s.hub, conn)
	if msg, err := Encode("view", s.ctrl.View()); err == nil {
		c.Send <- msg
	}
	if !s.hub.Register(c) {
		conn.Close()
		return
	}
	go c.WritePump()
	go c.ReadPump()
}
