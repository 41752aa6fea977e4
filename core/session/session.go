package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/kilianp07/mg4dash/core/logger"
	"github.com/kilianp07/mg4dash/core/model"
	"github.com/kilianp07/mg4dash/internal/eventbus"
)

// Simulation bounds.
const (
	BatteryFloorPercent = 10.0
	RangeFloorKm        = 50.0
	BaseEfficiency      = 4.2

	maxBatteryStep    = 0.1
	maxRangeStep      = 0.5
	efficiencyBand    = 0.2
	maxHeadingStep    = 2.0
	speedJitterBand   = 2.0
	defaultTickPeriod = 5 * time.Second
)

var (
	ErrNoPlannedRoute    = errors.New("no route has been planned")
	ErrAlreadyNavigating = errors.New("navigation already in progress")
	ErrStalePlan         = errors.New("plan superseded by a newer request")
)

// Rand is the random source used by Tick. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// EventKind names what changed.
type EventKind string

const (
	EventTelemetry    EventKind = "telemetry"
	EventConnection   EventKind = "connection"
	EventRoutePlanned EventKind = "route_planned"
	EventNavigation   EventKind = "navigation"
	EventTripReset    EventKind = "trip_reset"
	// EventSnapshot is never published; it labels the current state sent
	// to a new observer.
	EventSnapshot EventKind = "snapshot"
)

// Event is published after every mutation and carries the full state.
type Event struct {
	Kind       EventKind               `json:"kind"`
	Telemetry  model.TelemetrySnapshot `json:"telemetry"`
	Navigation model.NavigationState   `json:"navigation"`
	Trip       TripStats               `json:"trip"`
	At         time.Time               `json:"at"`
}

// PlanToken identifies a planning request.
type PlanToken uint64

// PlannedRoute is the most recently planned route.
type PlannedRoute struct {
	Token     PlanToken           `json:"token"`
	Document  model.RouteDocument `json:"document"`
	PlannedAt time.Time           `json:"plannedAt"`
}

// View is a read-only projection of the whole session.
type View struct {
	Telemetry  model.TelemetrySnapshot `json:"telemetry"`
	Navigation model.NavigationState   `json:"navigation"`
	Trip       TripStats               `json:"trip"`
	Planned    *PlannedRoute           `json:"planned,omitempty"`
}

// Session owns the telemetry snapshot and navigation state of one vehicle.
// It is safe for concurrent use; every read returns a copy.
type Session struct {
	mu        sync.Mutex
	telemetry model.TelemetrySnapshot
	nav       *fsm.FSM
	planned   *PlannedRoute
	active    model.RouteDocument
	trip      *trip
	token     PlanToken

	rng      Rand
	now      func() time.Time
	interval time.Duration
	window   int
	bus      *eventbus.Bus[Event]
	log      logger.Logger
}

// Option customises a Session.
type Option func(*Session)

// WithRand injects the random source, e.g. a seeded *rand.Rand in tests.
func WithRand(r Rand) Option { return func(s *Session) { s.rng = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithTickInterval sets the period Tick is expected to run at. It scales
// the trip distance accumulated per tick.
func WithTickInterval(d time.Duration) Option { return func(s *Session) { s.interval = d } }

// WithWindow bounds the samples kept for trip averages.
func WithWindow(n int) Option { return func(s *Session) { s.window = n } }

// New creates a session seeded with the default telemetry snapshot.
func New(log logger.Logger, opts ...Option) *Session {
	s := &Session{
		telemetry: model.SeedTelemetry(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		interval:  defaultTickPeriod,
		window:    720,
		bus:       eventbus.New[Event](eventbus.DefaultBuffer),
		log:       log,
	}
	for _, o := range opts {
		o(s)
	}
	s.nav = newNavigationFSM(log)
	s.trip = newTrip(s.now(), s.window)
	s.telemetry.UpdatedAt = s.now()
	return s
}

// Tick advances the simulated telemetry by one period. Battery and range
// drift down but never below their floors; efficiency, heading and speed
// jitter within fixed bands.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &s.telemetry
	t.BatteryPercent = math.Max(BatteryFloorPercent, t.BatteryPercent-s.rng.Float64()*maxBatteryStep)
	t.RangeKm = math.Max(RangeFloorKm, t.RangeKm-s.rng.Float64()*maxRangeStep)
	t.EfficiencyKmPerKWh = BaseEfficiency + (s.rng.Float64()-0.5)*efficiencyBand
	t.Location.HeadingDeg = normalizeHeading(t.Location.HeadingDeg + s.rng.Float64()*maxHeadingStep)
	t.Location.SpeedKmh = math.Max(0, t.Location.SpeedKmh+(s.rng.Float64()-0.5)*speedJitterBand)
	t.UpdatedAt = s.now()
	s.trip.record(t.Location.SpeedKmh, t.EfficiencyKmPerKWh, s.interval)
	s.publishLocked(EventTelemetry)
}

// Apply merges a reading from a vehicle data source into the snapshot.
func (s *Session) Apply(r model.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &s.telemetry
	if v, ok := finite(r.BatteryPercent); ok {
		t.BatteryPercent = clamp(v, 0, 100)
	}
	if v, ok := finite(r.RangeKm); ok {
		t.RangeKm = math.Max(0, v)
	}
	if v, ok := finite(r.EfficiencyKmPerKWh); ok && v > 0 {
		t.EfficiencyKmPerKWh = v
	}
	if v, ok := finite(r.SpeedKmh); ok {
		t.Location.SpeedKmh = math.Max(0, v)
	}
	if v, ok := finite(r.HeadingDeg); ok {
		t.Location.HeadingDeg = normalizeHeading(v)
	}
	if v, ok := finite(r.Lat); ok {
		t.Location.Lat = v
	}
	if v, ok := finite(r.Lng); ok {
		t.Location.Lng = v
	}
	if v, ok := finite(r.BatteryTempC); ok {
		t.TemperatureC.Battery = v
	}
	if v, ok := finite(r.CabinTempC); ok {
		t.TemperatureC.Cabin = v
	}
	if v, ok := finite(r.MotorTempC); ok {
		t.TemperatureC.Motor = v
	}
	if r.Tires != nil {
		t.TirePressureBar = *r.Tires
	}
	at := r.At
	if at.IsZero() {
		at = s.now()
	}
	// Late readings still merge but never rewind the clock.
	if at.After(t.UpdatedAt) {
		s.trip.record(t.Location.SpeedKmh, t.EfficiencyKmPerKWh, at.Sub(t.UpdatedAt))
		t.UpdatedAt = at
	}
	s.publishLocked(EventTelemetry)
}

// SetConnected records whether a data source is attached.
func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.telemetry.IsConnected == connected {
		return
	}
	s.telemetry.IsConnected = connected
	s.publishLocked(EventConnection)
}

// PlanRoute records doc as the latest planned route. Navigation is not
// affected, and any planning request still in flight becomes stale.
func (s *Session) PlanRoute(doc model.RouteDocument) PlanToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.recordPlanLocked(s.token, doc)
	return s.token
}

// BeginPlanning reserves a token for an asynchronous planning request.
// Only the most recent token may complete.
func (s *Session) BeginPlanning() PlanToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	return s.token
}

// CompletePlan records doc if token is still the latest one, and returns
// ErrStalePlan otherwise.
func (s *Session) CompletePlan(token PlanToken, doc model.RouteDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		s.log.Debugf("discarding plan %d, latest is %d", token, s.token)
		return ErrStalePlan
	}
	s.recordPlanLocked(token, doc)
	return nil
}

func (s *Session) recordPlanLocked(token PlanToken, doc model.RouteDocument) {
	s.planned = &PlannedRoute{Token: token, Document: doc.Clone(), PlannedAt: s.now()}
	s.publishLocked(EventRoutePlanned)
}

// StartNavigation activates the most recently planned route. It fails
// with ErrNoPlannedRoute before any PlanRoute, and with
// ErrAlreadyNavigating while a route is active.
func (s *Session) StartNavigation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planned == nil {
		return ErrNoPlannedRoute
	}
	if !s.nav.Can(eventStart) {
		return ErrAlreadyNavigating
	}
	if err := s.nav.Event(ctx, eventStart); err != nil {
		return fmt.Errorf("start navigation: %w", err)
	}
	s.active = s.planned.Document.Clone()
	s.publishLocked(EventNavigation)
	return nil
}

// StopNavigation returns to idle and clears the active route. Stopping
// while idle is a no-op.
func (s *Session) StopNavigation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.nav.Can(eventStop) {
		return nil
	}
	if err := s.nav.Event(ctx, eventStop); err != nil {
		return fmt.Errorf("stop navigation: %w", err)
	}
	s.active = nil
	s.publishLocked(EventNavigation)
	return nil
}

// ResetTrip zeroes the trip counters and restarts the trip clock.
func (s *Session) ResetTrip() TripStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trip = newTrip(s.now(), s.window)
	s.publishLocked(EventTripReset)
	return s.trip.stats()
}

// Snapshot returns a copy of the current telemetry.
func (s *Session) Snapshot() model.TelemetrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry
}

// Navigation returns a copy of the navigation state.
func (s *Session) Navigation() model.NavigationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigationLocked()
}

// Planned returns the latest planned route, if any.
func (s *Session) Planned() (PlannedRoute, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planned == nil {
		return PlannedRoute{}, false
	}
	p := *s.planned
	p.Document = p.Document.Clone()
	return p, true
}

// Trip returns the current trip statistics.
func (s *Session) Trip() TripStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trip.stats()
}

// View returns the whole session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Telemetry:  s.telemetry,
		Navigation: s.navigationLocked(),
		Trip:       s.trip.stats(),
	}
	if s.planned != nil {
		p := *s.planned
		p.Document = p.Document.Clone()
		v.Planned = &p
	}
	return v
}

// Subscribe returns a channel receiving an Event after every mutation.
func (s *Session) Subscribe() <-chan Event { return s.bus.Subscribe() }

// Watch subscribes and returns the current state as an EventSnapshot.
// No mutation can fall between the snapshot and the first event received.
func (s *Session) Watch() (Event, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventLocked(EventSnapshot), s.bus.Subscribe()
}

// Unsubscribe releases a channel obtained from Subscribe.
func (s *Session) Unsubscribe(ch <-chan Event) { s.bus.Unsubscribe(ch) }

// Close closes every subscription.
func (s *Session) Close() { s.bus.Close() }

func (s *Session) navigationLocked() model.NavigationState {
	return model.NavigationState{
		IsNavigating: s.nav.Is(StateNavigating),
		ActiveRoute:  s.active.Clone(),
	}
}

func (s *Session) eventLocked(kind EventKind) Event {
	return Event{
		Kind:       kind,
		Telemetry:  s.telemetry,
		Navigation: s.navigationLocked(),
		Trip:       s.trip.stats(),
		At:         s.now(),
	}
}

func (s *Session) publishLocked(kind EventKind) {
	s.bus.Publish(s.eventLocked(kind))
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

func finite(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
