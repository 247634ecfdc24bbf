package dispatch

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Engine defaults
const (
	DefaultTTL             = 5 * time.Minute
	DefaultMaxRadiusMeters = 20000.0
	DefaultActionTimeout   = 10 * time.Second
)

// Options configures an Engine. Directory and Store are required.
type Options struct {
	Directory Directory
	Store     Store
	Citizens  Citizens
	Notifier  Notifier
	Clock     Clock
	Metrics   Metrics

	TTL              time.Duration
	MaxRadiusMeters  float64
	MaxReassignments int
	// ActionTimeout bounds the work done by timers and background notifications
	ActionTimeout time.Duration
	// Retention sets purgeAt on finished records; zero keeps them forever
	Retention time.Duration
}

// CreateParams is a citizen's request for help
type CreateParams struct {
	CitizenPhone string
	ServiceType  models.ServiceType
	Point        models.GeoPoint
}

// DeclineResult describes what happened to the chain after a decline
type DeclineResult struct {
	Request   *models.DispatchRequest
	Successor *models.DispatchRequest
	Outcome   models.ChainOutcome
}

// Engine runs the dispatch state machine
type Engine struct {
	directory Directory
	store     Store
	citizens  Citizens
	notifier  Notifier
	clock     Clock
	metrics   Metrics

	ttl              time.Duration
	maxRadius        float64
	maxReassignments int
	actionTimeout    time.Duration
	retention        time.Duration

	timers *timerRegistry
}

// NewEngine builds an Engine, filling defaults for unset options
func NewEngine(o Options) (*Engine, error) {
	if o.Directory == nil || o.Store == nil {
		return nil, invalidf("engine needs a directory and a store")
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxRadiusMeters <= 0 {
		o.MaxRadiusMeters = DefaultMaxRadiusMeters
	}
	if o.MaxReassignments < 0 {
		o.MaxReassignments = 0
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	return &Engine{
		directory:        o.Directory,
		store:            o.Store,
		citizens:         o.Citizens,
		notifier:         o.Notifier,
		clock:            o.Clock,
		metrics:          o.Metrics,
		ttl:              o.TTL,
		maxRadius:        o.MaxRadiusMeters,
		maxReassignments: o.MaxReassignments,
		actionTimeout:    o.ActionTimeout,
		retention:        o.Retention,
		timers:           newTimerRegistry(o.Clock),
	}, nil
}

// TTL returns how long a responder has to answer a request
func (e *Engine) TTL() time.Duration { return e.ttl }

// Create assigns a new request to the nearest available responder and starts
// its deadline.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*models.DispatchRequest, error) {
	if !models.ValidPhone(p.CitizenPhone) {
		return nil, invalidf("citizen phone %q is not E.164", p.CitizenPhone)
	}
	kind, ok := models.KindForService(p.ServiceType)
	if !ok {
		return nil, invalidf("unknown service type %q", p.ServiceType)
	}
	if !p.Point.Valid() {
		return nil, invalidf("location out of range")
	}

	c, err := e.directory.FindNearestAvailable(ctx, kind, p.Point, e.maxRadius, nil)
	if err != nil {
		return nil, unavailable("find nearest responder", err)
	}
	if c == nil {
		e.metrics.NoResponder(p.ServiceType)
		return nil, ErrNoResponderAvailable
	}

	now := e.clock.Now()
	id := NewRequestID()
	r := &models.DispatchRequest{
		ID:              id,
		ChainID:         id,
		TriedResponders: []string{c.Responder.Phone},
		CitizenPhone:    p.CitizenPhone,
		ServiceType:     p.ServiceType,
		CitizenLocation: p.Point,
		MapsURL:         p.Point.MapsURL(),
		ResponderKind:   kind,
		ResponderPhone:  c.Responder.Phone,
		DistanceMeters:  math.Round(c.DistanceMeters),
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(e.ttl),
	}
	if err := e.store.Create(ctx, r); err != nil {
		return nil, unavailable("create request", err)
	}
	e.arm(r)
	e.metrics.RequestCreated(r.ServiceType, r.Hop)
	zap.S().Infow("dispatch request created",
		"requestId", r.ID,
		"service", r.ServiceType,
		"responder", r.ResponderPhone,
		"distanceMeters", r.DistanceMeters)

	e.notifyContacts(r)
	return r, nil
}

// Accept records the assigned responder taking the request
func (e *Engine) Accept(ctx context.Context, id, responderPhone string) (*models.DispatchRequest, error) {
	r, err := e.pendingFor(ctx, id, responderPhone)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if !now.Before(r.ExpiresAt) {
		if err := e.Timeout(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrRequestNotPending
	}

	caps, _ := models.CapabilitiesFor(r.ResponderKind)
	eta := caps.ArrivalMinutes(r.DistanceMeters)
	updated, err := e.store.ConditionalTransition(ctx, id, models.StatusPending, models.Transition{
		To:                      models.StatusAccepted,
		At:                      now,
		EstimatedArrivalMinutes: &eta,
		PurgeAt:                 e.purgeAt(now),
	})
	if err != nil {
		return nil, e.transitionError("accept request", err)
	}
	e.timers.cancel(id)
	e.metrics.RequestTransitioned(updated.ServiceType, models.StatusAccepted)

	if err := e.directory.UpdateAvailability(ctx, r.ResponderKind, responderPhone, caps.Engaged, nil); err != nil {
		zap.S().Warnw("failed to mark responder engaged",
			"requestId", id,
			"responder", responderPhone,
			"error", err)
	}
	zap.S().Infow("dispatch request accepted", "requestId", id, "responder", responderPhone, "eta", eta)
	return updated, nil
}

// Decline records the assigned responder refusing the request and hands the
// chain to the next-nearest responder.
func (e *Engine) Decline(ctx context.Context, id, responderPhone string) (*DeclineResult, error) {
	r, err := e.pendingFor(ctx, id, responderPhone)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if !now.Before(r.ExpiresAt) {
		if err := e.Timeout(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrRequestNotPending
	}

	updated, err := e.store.ConditionalTransition(ctx, id, models.StatusPending, models.Transition{
		To:      models.StatusDeclined,
		At:      now,
		PurgeAt: e.purgeAt(now),
	})
	if err != nil {
		return nil, e.transitionError("decline request", err)
	}
	e.timers.cancel(id)
	e.metrics.RequestTransitioned(updated.ServiceType, models.StatusDeclined)
	zap.S().Infow("dispatch request declined", "requestId", id, "responder", responderPhone)

	res := &DeclineResult{Request: updated}
	succ, outcome, err := e.reassign(ctx, updated)
	if err != nil {
		// the decline stands, the sweeper picks the chain up again
		zap.S().Errorw("reassignment after decline failed", "requestId", id, "error", err)
		return res, nil
	}
	res.Successor = succ
	res.Outcome = outcome
	updated.ChainOutcome = outcome
	return res, nil
}

// Timeout expires a pending request whose deadline has passed and reassigns
// it. A request that is no longer pending is left alone.
func (e *Engine) Timeout(ctx context.Context, id string) error {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return unavailable("get request", err)
	}
	if r == nil || r.Status != models.StatusPending {
		return nil
	}
	now := e.clock.Now()
	if now.Before(r.ExpiresAt) {
		e.timers.arm(id, r.ExpiresAt.Sub(now), e.onDeadline)
		return nil
	}

	updated, err := e.store.ConditionalTransition(ctx, id, models.StatusPending, models.Transition{
		To:      models.StatusExpired,
		At:      now,
		PurgeAt: e.purgeAt(now),
	})
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return unavailable("expire request", err)
	}
	e.timers.cancel(id)
	e.metrics.RequestTransitioned(updated.ServiceType, models.StatusExpired)
	zap.S().Infow("dispatch request expired", "requestId", id, "responder", updated.ResponderPhone)

	_, _, err = e.reassign(ctx, updated)
	return err
}

// ResumeReassignment finishes the follow-up of a declined or expired request
// that was interrupted. Requests already followed up are ignored.
func (e *Engine) ResumeReassignment(ctx context.Context, id string) error {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return unavailable("get request", err)
	}
	if r == nil {
		return ErrNotFound
	}
	if r.Status != models.StatusDeclined && r.Status != models.StatusExpired {
		return nil
	}
	if r.ChainOutcome != models.OutcomeUnresolved {
		return nil
	}
	_, _, err = e.reassign(ctx, r)
	return err
}

// Close stops every deadline timer and waits for running callbacks and
// notifications to finish.
func (e *Engine) Close() {
	e.timers.close()
}

func (e *Engine) reassign(ctx context.Context, prev *models.DispatchRequest) (*models.DispatchRequest, models.ChainOutcome, error) {
	if e.maxReassignments > 0 && prev.Hop >= e.maxReassignments {
		return nil, models.OutcomeCapped, e.resolve(ctx, prev, models.OutcomeCapped)
	}

	c, err := e.directory.FindNearestAvailable(ctx, prev.ResponderKind, prev.CitizenLocation, e.maxRadius, prev.TriedResponders)
	if err != nil {
		return nil, models.OutcomeUnresolved, unavailable("find next responder", err)
	}
	if c == nil {
		return nil, models.OutcomeExhausted, e.resolve(ctx, prev, models.OutcomeExhausted)
	}

	now := e.clock.Now()
	tried := make([]string, 0, len(prev.TriedResponders)+1)
	tried = append(tried, prev.TriedResponders...)
	tried = append(tried, c.Responder.Phone)
	succ := &models.DispatchRequest{
		ID:                SuccessorID(prev.ID),
		ChainID:           prev.ChainID,
		PreviousRequestID: prev.ID,
		Hop:               prev.Hop + 1,
		TriedResponders:   tried,
		CitizenPhone:      prev.CitizenPhone,
		ServiceType:       prev.ServiceType,
		CitizenLocation:   prev.CitizenLocation,
		MapsURL:           prev.MapsURL,
		ResponderKind:     prev.ResponderKind,
		ResponderPhone:    c.Responder.Phone,
		DistanceMeters:    math.Round(c.DistanceMeters),
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(e.ttl),
	}

	err = e.store.Create(ctx, succ)
	switch {
	case errors.Is(err, ErrDuplicate):
		// another path already reassigned this request
		existing, gerr := e.store.Get(ctx, succ.ID)
		if gerr != nil {
			return nil, models.OutcomeUnresolved, unavailable("get successor", gerr)
		}
		return existing, models.OutcomeReassigned, e.resolve(ctx, prev, models.OutcomeReassigned)
	case err != nil:
		return nil, models.OutcomeUnresolved, unavailable("create successor", err)
	}

	e.arm(succ)
	e.metrics.RequestCreated(succ.ServiceType, succ.Hop)
	zap.S().Infow("dispatch request reassigned",
		"requestId", prev.ID,
		"successorId", succ.ID,
		"hop", succ.Hop,
		"responder", succ.ResponderPhone)
	return succ, models.OutcomeReassigned, e.resolve(ctx, prev, models.OutcomeReassigned)
}

func (e *Engine) resolve(ctx context.Context, r *models.DispatchRequest, outcome models.ChainOutcome) error {
	if err := e.store.SetChainOutcome(ctx, r.ID, outcome); err != nil {
		return unavailable("record chain outcome", err)
	}
	r.ChainOutcome = outcome
	e.metrics.ChainResolved(r.ServiceType, outcome)
	if outcome != models.OutcomeReassigned {
		zap.S().Infow("dispatch chain ended without a responder",
			"chainId", r.ChainID,
			"requestId", r.ID,
			"outcome", outcome)
	}
	return nil
}

// pendingFor loads id and checks that phone is its assignee and it is still pending
func (e *Engine) pendingFor(ctx context.Context, id, phone string) (*models.DispatchRequest, error) {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get request", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	if r.ResponderPhone != phone {
		return nil, ErrNotAuthorized
	}
	if r.Status != models.StatusPending {
		return nil, ErrRequestNotPending
	}
	return r, nil
}

func (e *Engine) transitionError(op string, err error) error {
	switch {
	case errors.Is(err, ErrConflict):
		return ErrRequestNotPending
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		return unavailable(op, err)
	}
}

func (e *Engine) purgeAt(now time.Time) *time.Time {
	if e.retention <= 0 {
		return nil
	}
	t := now.Add(e.retention)
	return &t
}

func (e *Engine) arm(r *models.DispatchRequest) {
	e.timers.arm(r.ID, r.ExpiresAt.Sub(e.clock.Now()), e.onDeadline)
}

func (e *Engine) onDeadline(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.actionTimeout)
	defer cancel()
	if err := e.Timeout(ctx, id); err != nil {
		zap.S().Errorw("failed to expire request", "requestId", id, "error", err)
	}
}

func (e *Engine) notifyContacts(r *models.DispatchRequest) {
	if e.citizens == nil || e.notifier == nil {
		return
	}
	req := *r
	e.timers.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.actionTimeout)
		defer cancel()

		citizen, err := e.citizens.GetByPhone(ctx, req.CitizenPhone)
		if err != nil {
			zap.S().Warnw("failed to load citizen for notification", "requestId", req.ID, "error", err)
			return
		}
		if citizen == nil || len(citizen.EmergencyContacts) == 0 {
			return
		}
		res := e.notifier.NotifyEmergencyContacts(ctx, citizen, &req)
		e.metrics.Notified(res.Sent, res.Failed)
		zap.S().Infow("emergency contacts notified",
			"requestId", req.ID,
			"sent", res.Sent,
			"failed", res.Failed)
	})
}
