// Package memory holds in-process implementations of the dispatch
// collaborators, used by tests and by DB_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

type responderKey struct {
	kind  models.ResponderKind
	phone string
}

// Directory is a map backed dispatch.Directory
type Directory struct {
	mu         sync.RWMutex
	responders map[responderKey]models.Responder
	now        func() time.Time
}

// NewDirectory returns an empty Directory
func NewDirectory() *Directory {
	return &Directory{
		responders: make(map[responderKey]models.Responder),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Put inserts or replaces a responder
func (d *Directory) Put(r models.Responder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responders[responderKey{r.Kind, r.Phone}] = cloneResponder(r)
}

// FindNearestAvailable scans every responder of kind
func (d *Directory) FindNearestAvailable(ctx context.Context, kind models.ResponderKind, point models.GeoPoint, maxRadiusMeters float64, exclude []string) (*models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	caps, ok := models.CapabilitiesFor(kind)
	if !ok {
		return nil, dispatch.ErrInvalidInput
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		skip[p] = struct{}{}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	var candidates []models.Candidate
	for k, r := range d.responders {
		if k.kind != kind || !r.PhoneVerified || r.Location == nil || r.Availability != caps.Ready {
			continue
		}
		if _, ok := skip[r.Phone]; ok {
			continue
		}
		dist := point.DistanceTo(*r.Location)
		if dist > maxRadiusMeters {
			continue
		}
		candidates = append(candidates, models.Candidate{Responder: cloneResponder(r), DistanceMeters: dist})
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceMeters != candidates[j].DistanceMeters {
			return candidates[i].DistanceMeters < candidates[j].DistanceMeters
		}
		return candidates[i].Responder.Phone < candidates[j].Responder.Phone
	})
	return &candidates[0], nil
}

// UpdateAvailability sets the availability and optionally the location of a responder
func (d *Directory) UpdateAvailability(ctx context.Context, kind models.ResponderKind, phone string, state models.Availability, location *models.GeoPoint) error {
	caps, ok := models.CapabilitiesFor(kind)
	if !ok || !caps.Allows(state) {
		return dispatch.ErrInvalidInput
	}
	if location != nil && !location.Valid() {
		return dispatch.ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := responderKey{kind, phone}
	r, ok := d.responders[k]
	if !ok {
		return dispatch.ErrNotFound
	}
	now := d.now()
	r.Availability = state
	if location != nil {
		loc := *location
		r.Location = &loc
	}
	r.LastStatusAt = now
	r.UpdatedAt = now
	d.responders[k] = r
	return nil
}

// GetByPhone returns nil when the responder does not exist
func (d *Directory) GetByPhone(ctx context.Context, kind models.ResponderKind, phone string) (*models.Responder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.responders[responderKey{kind, phone}]
	if !ok {
		return nil, nil
	}
	r = cloneResponder(r)
	return &r, nil
}

// UpsertVerified marks a responder's phone verified, creating the responder
// in its kind's off state when unknown.
func (d *Directory) UpsertVerified(ctx context.Context, kind models.ResponderKind, phone string) (*models.Responder, error) {
	caps, ok := models.CapabilitiesFor(kind)
	if !ok {
		return nil, dispatch.ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	k := responderKey{kind, phone}
	now := d.now()
	r, ok := d.responders[k]
	if !ok {
		r = models.Responder{Kind: kind, Phone: phone, Availability: caps.Off, CreatedAt: now}
	}
	r.PhoneVerified = true
	r.UpdatedAt = now
	d.responders[k] = r
	out := cloneResponder(r)
	return &out, nil
}

// UpdateProfile replaces the profile of an existing responder
func (d *Directory) UpdateProfile(ctx context.Context, in *models.Responder) (*models.Responder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := responderKey{in.Kind, in.Phone}
	r, ok := d.responders[k]
	if !ok {
		return nil, dispatch.ErrNotFound
	}
	upd := cloneResponder(*in)
	r.Officer = upd.Officer
	r.Ambulance = upd.Ambulance
	r.UpdatedAt = d.now()
	d.responders[k] = r
	out := cloneResponder(r)
	return &out, nil
}

// cloneResponder copies everything r points to so callers never share
// memory with the map
func cloneResponder(r models.Responder) models.Responder {
	if r.Location != nil {
		loc := *r.Location
		r.Location = &loc
	}
	if r.Officer != nil {
		o := *r.Officer
		r.Officer = &o
	}
	if r.Ambulance != nil {
		a := *r.Ambulance
		if a.Capabilities != nil {
			c := *a.Capabilities
			a.Capabilities = &c
		}
		if a.Crew != nil {
			c := *a.Crew
			a.Crew = &c
		}
		r.Ambulance = &a
	}
	return r
}
