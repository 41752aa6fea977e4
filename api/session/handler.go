// Package session exposes the trip session over HTTP and a websocket
// stream.
package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kilianp07/mg4dash/api/envelope"
	"github.com/kilianp07/mg4dash/api/route"
	"github.com/kilianp07/mg4dash/core/logger"
	"github.com/kilianp07/mg4dash/core/model"
	"github.com/kilianp07/mg4dash/core/routing"
	coresession "github.com/kilianp07/mg4dash/core/session"
)

// Path is where the session routes are mounted.
const Path = "/api/session"

const (
	maxRequestBody = 1 << 20
	writeWait      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// PlanResponse answers a plan request.
type PlanResponse struct {
	Token   coresession.PlanToken `json:"token"`
	Summary *routing.RouteSummary `json:"summary,omitempty"`
	Route   model.RouteDocument   `json:"route"`
}

// Handler serves the session endpoints.
type Handler struct {
	sess    *coresession.Session
	planner route.Planner
	pricing routing.Pricing
	log     logger.Logger
}

func NewHandler(s *coresession.Session, p route.Planner, pricing routing.Pricing, log logger.Logger) *Handler {
	return &Handler{sess: s, planner: p, pricing: pricing, log: log}
}

// Routes returns a chi.Router for the Path mount point.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.State)
	r.Post("/plan", h.Plan)
	r.Post("/navigation/start", h.StartNavigation)
	r.Post("/navigation/stop", h.StopNavigation)
	r.Post("/trip/reset", h.ResetTrip)
	r.Get("/stream", h.Stream)
	return r
}

func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	envelope.JSON(w, http.StatusOK, h.sess.View())
}

// Plan plans a trip and records it as the session's planned route. A
// response overtaken by a newer plan request is answered with 409.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req model.TripRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		envelope.Error(w, http.StatusBadRequest, envelope.MsgInvalidBody, err.Error())
		return
	}

	token := h.sess.BeginPlanning()
	doc, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		envelope.RoutingError(w, err)
		return
	}
	if err := h.sess.CompletePlan(token, doc); err != nil {
		envelope.Error(w, http.StatusConflict, err.Error(), nil)
		return
	}

	resp := PlanResponse{Token: token, Route: doc}
	if sum, err := routing.Summarize(doc, h.pricing); err == nil {
		resp.Summary = &sum
	} else {
		h.log.Warnf("route summary unavailable: %v", err)
	}
	envelope.JSON(w, http.StatusOK, resp)
}

func (h *Handler) StartNavigation(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.StartNavigation(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, coresession.ErrNoPlannedRoute) || errors.Is(err, coresession.ErrAlreadyNavigating) {
			status = http.StatusConflict
		}
		envelope.Error(w, status, err.Error(), nil)
		return
	}
	envelope.JSON(w, http.StatusOK, h.sess.Navigation())
}

func (h *Handler) StopNavigation(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.StopNavigation(r.Context()); err != nil {
		envelope.Error(w, http.StatusInternalServerError, envelope.MsgUnexpected, err.Error())
		return
	}
	envelope.JSON(w, http.StatusOK, h.sess.Navigation())
}

func (h *Handler) ResetTrip(w http.ResponseWriter, _ *http.Request) {
	envelope.JSON(w, http.StatusOK, h.sess.ResetTrip())
}

// Stream upgrades to a websocket, sends the current state and then every
// session event until the client goes away or the session closes.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade: %v", err)
		return
	}
	defer ws.Close()

	snap, sub := h.sess.Watch()
	defer h.sess.Unsubscribe(sub)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeEvent(ws, snap); err != nil {
		return
	}
	h.log.Debugf("stream client connected from %s", r.RemoteAddr)
	for {
		select {
		case <-gone:
			h.log.Debugf("stream client %s disconnected", r.RemoteAddr)
			return
		case ev, ok := <-sub:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeEvent(ws, ev); err != nil {
				h.log.Debugf("stream write: %v", err)
				return
			}
		}
	}
}

func writeEvent(ws *websocket.Conn, ev coresession.Event) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(ev)
}
