package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/mg4dash/core/model"
	"github.com/kilianp07/mg4dash/core/routing"
	coresession "github.com/kilianp07/mg4dash/core/session"
	"github.com/kilianp07/mg4dash/infra/logger"
)

const routeDoc = `{"routes":[{"sections":[{"summary":{"duration":600,"length":12000,"consumption":2.5},
"actions":[{"action":"depart","instruction":"Head east."}]}]}]}`

type plannerFunc func(context.Context, model.TripRequest) (model.RouteDocument, error)

func (f plannerFunc) Plan(ctx context.Context, req model.TripRequest) (model.RouteDocument, error) {
	return f(ctx, req)
}

func staticPlanner(doc string) plannerFunc {
	return func(_ context.Context, req model.TripRequest) (model.RouteDocument, error) {
		if !req.HasEndpoints() {
			return nil, routing.ErrInvalidRequest
		}
		return model.RouteDocument(doc), nil
	}
}

func newServer(t *testing.T, p plannerFunc) (*coresession.Session, *httptest.Server) {
	t.Helper()
	s := coresession.New(logger.NopLogger{})
	h := NewHandler(s, p, routing.Pricing{PerKWh: 0.4, Currency: "GBP"}, logger.NopLogger{})
	r := chi.NewRouter()
	r.Mount(Path, h.Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		s.Close()
		srv.Close()
	})
	return s, srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestStateReturnsView(t *testing.T) {
	_, srv := newServer(t, staticPlanner(routeDoc))

	resp, err := http.Get(srv.URL + Path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var v coresession.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, 85.0, v.Telemetry.BatteryPercent)
	assert.False(t, v.Navigation.IsNavigating)
	assert.Nil(t, v.Planned)
}

func TestPlanThenNavigate(t *testing.T) {
	s, srv := newServer(t, staticPlanner(routeDoc))

	resp, body := post(t, srv.URL+Path+"/navigation/start", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, coresession.ErrNoPlannedRoute.Error(), body["error"])

	resp, body = post(t, srv.URL+Path+"/plan", `{"origin":"51.5,-0.1","destination":"51.6,-0.2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 12.0, summary["distanceKm"])
	assert.Equal(t, 0.0, summary["estimatedCost"])
	assert.Equal(t, []any{"Head east."}, summary["instructions"])
	_, planned := s.Planned()
	assert.True(t, planned)
	assert.False(t, s.Navigation().IsNavigating)

	resp, body = post(t, srv.URL+Path+"/navigation/start", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isNavigating"])
	assert.NotNil(t, body["activeRoute"])

	resp, body = post(t, srv.URL+Path+"/navigation/start", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, coresession.ErrAlreadyNavigating.Error(), body["error"])

	resp, body = post(t, srv.URL+Path+"/navigation/stop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["isNavigating"])
	assert.Nil(t, body["activeRoute"])
}

func TestPlanErrorsUseGatewayEnvelope(t *testing.T) {
	_, srv := newServer(t, staticPlanner(routeDoc))

	resp, body := post(t, srv.URL+Path+"/plan", `{"origin":"51.5,-0.1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, routing.ErrInvalidRequest.Error(), body["error"])

	resp, body = post(t, srv.URL+Path+"/plan", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid request body", body["error"])
}

func TestPlanWithoutRoutesHasNoSummary(t *testing.T) {
	_, srv := newServer(t, staticPlanner(`{"routes":[]}`))

	resp, body := post(t, srv.URL+Path+"/plan", `{"origin":"1,1","destination":"2,2"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "summary")
	assert.Equal(t, map[string]any{"routes": []any{}}, body["route"])
}

func TestStalePlanAnswersConflict(t *testing.T) {
	var s *coresession.Session
	p := plannerFunc(func(context.Context, model.TripRequest) (model.RouteDocument, error) {
		// A newer request starts while this one is in flight.
		s.BeginPlanning()
		return model.RouteDocument(routeDoc), nil
	})
	s, srv := newServer(t, p)

	resp, body := post(t, srv.URL+Path+"/plan", `{"origin":"1,1","destination":"2,2"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, coresession.ErrStalePlan.Error(), body["error"])
	_, planned := s.Planned()
	assert.False(t, planned)
}

func TestResetTrip(t *testing.T) {
	s, srv := newServer(t, staticPlanner(routeDoc))
	s.Tick()

	resp, body := post(t, srv.URL+Path+"/trip/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, body["distanceKm"])
	assert.Equal(t, 0.0, body["samples"])
}

func TestStreamSendsSnapshotThenEvents(t *testing.T) {
	s, srv := newServer(t, staticPlanner(routeDoc))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + Path + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev coresession.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, coresession.EventSnapshot, ev.Kind)
	assert.Equal(t, 85.0, ev.Telemetry.BatteryPercent)

	s.Tick()
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, coresession.EventTelemetry, ev.Kind)
	assert.Less(t, ev.Telemetry.BatteryPercent, 85.0+1e-9)

	s.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
