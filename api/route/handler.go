// Package route serves the EV routing gateway endpoint.
package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/mg4dash/api/envelope"
	"github.com/kilianp07/mg4dash/core/logger"
	coremetrics "github.com/kilianp07/mg4dash/core/metrics"
	"github.com/kilianp07/mg4dash/core/model"
	"github.com/kilianp07/mg4dash/core/routing"
)

// Path is where the gateway is mounted.
const Path = "/api/ev-route"

const maxRequestBody = 1 << 20

// Planner plans a route. *routing.Planner implements it.
type Planner interface {
	Plan(ctx context.Context, req model.TripRequest) (model.RouteDocument, error)
}

// Handler relays trip requests to the routing provider. GET reads the
// query string, POST a JSON body and OPTIONS answers the CORS preflight.
type Handler struct {
	planner Planner
	sink    coremetrics.RouteRecorder
	log     logger.Logger
	now     func() time.Time
}

// NewHandler returns the gateway handler. A nil sink records nothing.
func NewHandler(p Planner, sink coremetrics.RouteRecorder, log logger.Logger) *Handler {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Handler{planner: p, sink: sink, log: log, now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	start := h.now()
	var upstream time.Duration
	defer func() {
		ev := coremetrics.RouteEvent{Endpoint: Path, Method: r.Method, Status: ww.Status(), Upstream: upstream, Time: start}
		if err := h.sink.RecordRoute(ev); err != nil {
			h.log.Warnf("record route metrics: %v", err)
		}
	}()
	defer func() {
		if v := recover(); v != nil {
			h.log.Errorf("panic in route handler: %v", v)
			envelope.Error(ww, http.StatusInternalServerError, envelope.MsgUnexpected, fmt.Sprint(v))
		}
	}()

	envelope.AllowOrigin(ww.Header())
	var req model.TripRequest
	switch r.Method {
	case http.MethodOptions:
		envelope.Preflight(ww)
		return
	case http.MethodGet:
		req = model.TripRequestFromQuery(r.URL.Query())
	case http.MethodPost:
		err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			envelope.Error(ww, http.StatusBadRequest, envelope.MsgInvalidBody, err.Error())
			return
		}
	default:
		ww.Header().Set("Allow", envelope.AllowedMethods)
		envelope.Error(ww, http.StatusMethodNotAllowed, envelope.MsgMethodNotAllowed, nil)
		return
	}

	called := h.now()
	doc, err := h.planner.Plan(r.Context(), req)
	if reachedProvider(err) {
		upstream = h.now().Sub(called)
	}
	if err != nil {
		h.log.Debugw("route request failed", map[string]any{
			"request_id": r.Header.Get(envelope.RequestIDHeader),
			"error":      err.Error(),
		})
		envelope.RoutingError(ww, err)
		return
	}
	ww.Header().Set("Content-Type", "application/json")
	ww.WriteHeader(http.StatusOK)
	if _, err := ww.Write(doc); err != nil {
		h.log.Warnf("write route response: %v", err)
	}
}

func reachedProvider(err error) bool {
	return !errors.Is(err, routing.ErrInvalidRequest) && !errors.Is(err, routing.ErrMissingCredential)
}
