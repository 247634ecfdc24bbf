package dispatch

import (
	"context"

	"github.com/linesmerrill/sos-dispatch-api/models"
)

// maxChainWalk bounds how many successor links a citizen view follows
const maxChainWalk = 64

// Messages shown to the citizen while the chain has no current assignee
const (
	MessageSearching        = "looking for another responder"
	MessageNoResponderFound = "no other responder available"
	MessageRequestClosed    = "this request is closed, please raise a new one"
)

// Projector builds the views of a request shown to citizens and responders
type Projector struct {
	directory Directory
	store     Store
	citizens  Citizens
	clock     Clock
}

// NewProjector returns a Projector over the given collaborators
func NewProjector(directory Directory, store Store, citizens Citizens, clock Clock) *Projector {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Projector{directory: directory, store: store, citizens: citizens, clock: clock}
}

// CitizenView returns the status of the chain id belongs to, following
// reassignments to the newest request. Responder identity is only included
// once a responder has accepted.
func (p *Projector) CitizenView(ctx context.Context, id, citizenPhone string) (*models.CitizenView, error) {
	r, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get request", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	if r.CitizenPhone != citizenPhone {
		return nil, ErrNotAuthorized
	}

	purged := false
	for i := 0; i < maxChainWalk && (r.Status == models.StatusDeclined || r.Status == models.StatusExpired); i++ {
		next, err := p.store.Get(ctx, SuccessorID(r.ID))
		if err != nil {
			return nil, unavailable("get successor", err)
		}
		if next == nil {
			// a reassigned request whose successor is gone was purged by retention
			purged = r.ChainOutcome == models.OutcomeReassigned
			break
		}
		r = next
	}

	now := p.clock.Now()
	v := &models.CitizenView{
		RequestID:   r.ID,
		ChainID:     r.ChainID,
		ServiceType: r.ServiceType,
		Status:      r.Status,
		MapsURL:     r.MapsURL,
	}
	switch r.Status {
	case models.StatusPending:
		v.SecondsRemaining = r.SecondsRemaining(now)
	case models.StatusAccepted:
		v.EstimatedArrivalMinutes = r.EstimatedArrivalMinutes
		resp, err := p.directory.GetByPhone(ctx, r.ResponderKind, r.ResponderPhone)
		if err != nil {
			return nil, unavailable("get responder", err)
		}
		if resp != nil {
			pub := resp.Public()
			v.Responder = &pub
		}
	default:
		switch {
		case purged:
			v.CanRetry = true
			v.Message = MessageRequestClosed
		case r.ChainOutcome == models.OutcomeExhausted, r.ChainOutcome == models.OutcomeCapped:
			v.NoResponderFound = true
			v.CanRetry = true
			v.Message = MessageNoResponderFound
		default:
			v.Status = models.StatusPending
			v.Searching = true
			v.Message = MessageSearching
		}
	}
	return v, nil
}

// ResponderView returns the full detail of a request to its assignee. The
// citizen's medical profile is only shared while the request is pending or
// accepted.
func (p *Projector) ResponderView(ctx context.Context, id, responderPhone string) (*models.ResponderView, error) {
	r, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get request", err)
	}
	if r == nil {
		return nil, ErrNotFound
	}
	if r.ResponderPhone != responderPhone {
		return nil, ErrNotAuthorized
	}
	if r.Status != models.StatusPending && r.Status != models.StatusAccepted {
		return nil, ErrRequestNotPending
	}
	return p.responderView(ctx, r)
}

// ResponderRequests lists the pending, unexpired requests assigned to a responder
func (p *Projector) ResponderRequests(ctx context.Context, kind models.ResponderKind, phone string) ([]models.ResponderView, error) {
	rs, err := p.store.FindActiveForResponder(ctx, phone, p.clock.Now())
	if err != nil {
		return nil, unavailable("find active requests", err)
	}
	views := make([]models.ResponderView, 0, len(rs))
	for i := range rs {
		if rs[i].ResponderKind != kind {
			continue
		}
		v, err := p.responderView(ctx, &rs[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (p *Projector) responderView(ctx context.Context, r *models.DispatchRequest) (*models.ResponderView, error) {
	v := &models.ResponderView{
		RequestID:        r.ID,
		Status:           r.Status,
		ServiceType:      r.ServiceType,
		CitizenLocation:  r.CitizenLocation,
		MapsURL:          r.MapsURL,
		DistanceMeters:   r.DistanceMeters,
		CreatedAt:        r.CreatedAt,
	}
	if r.Status == models.StatusPending {
		v.SecondsRemaining = r.SecondsRemaining(p.clock.Now())
	}
	if p.citizens == nil {
		return v, nil
	}
	c, err := p.citizens.GetByPhone(ctx, r.CitizenPhone)
	if err != nil {
		return nil, unavailable("get citizen", err)
	}
	if c != nil {
		profile := c.Profile()
		v.Citizen = &profile
	} else {
		v.Citizen = &models.CitizenProfile{Phone: r.CitizenPhone}
	}
	return v, nil
}
