package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Store is a map backed dispatch.Store. The mutex makes every method atomic,
// which is what ConditionalTransition relies on.
type Store struct {
	mu       sync.Mutex
	requests map[string]models.DispatchRequest
}

// NewStore returns an empty Store
func NewStore() *Store {
	return &Store{requests: make(map[string]models.DispatchRequest)}
}

// Create inserts r; dispatch.ErrDuplicate when the id exists
func (s *Store) Create(ctx context.Context, r *models.DispatchRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return dispatch.ErrDuplicate
	}
	s.requests[r.ID] = clone(*r)
	return nil
}

// ConditionalTransition applies t when the stored status equals expected
func (s *Store) ConditionalTransition(ctx context.Context, id string, expected models.RequestStatus, t models.Transition) (*models.DispatchRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, dispatch.ErrNotFound
	}
	if r.Status != expected {
		return nil, dispatch.ErrConflict
	}
	at := t.At
	r.Status = t.To
	r.UpdatedAt = at
	switch t.To {
	case models.StatusAccepted:
		r.AcceptedAt = &at
	case models.StatusDeclined:
		r.DeclinedAt = &at
	case models.StatusExpired:
		r.ExpiredAt = &at
	}
	if t.EstimatedArrivalMinutes != nil {
		eta := *t.EstimatedArrivalMinutes
		r.EstimatedArrivalMinutes = &eta
	}
	if t.PurgeAt != nil {
		p := *t.PurgeAt
		r.PurgeAt = &p
	}
	s.requests[id] = r
	out := clone(r)
	return &out, nil
}

// Get returns nil when the id is unknown
func (s *Store) Get(ctx context.Context, id string) (*models.DispatchRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	out := clone(r)
	return &out, nil
}

// FindActiveForResponder lists pending unexpired requests for phone, newest first
func (s *Store) FindActiveForResponder(ctx context.Context, phone string, now time.Time) ([]models.DispatchRequest, error) {
	out := s.filter(func(r models.DispatchRequest) bool {
		return r.ResponderPhone == phone && r.Status == models.StatusPending && r.ExpiresAt.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// FindOverdue lists pending requests whose deadline has passed, oldest deadline first
func (s *Store) FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.DispatchRequest, error) {
	out := s.filter(func(r models.DispatchRequest) bool {
		return r.Status == models.StatusPending && !r.ExpiresAt.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return truncate(out, limit), nil
}

// FindUnresolved lists declined or expired requests without a chain outcome
// last updated before the cutoff
func (s *Store) FindUnresolved(ctx context.Context, before time.Time, limit int) ([]models.DispatchRequest, error) {
	out := s.filter(func(r models.DispatchRequest) bool {
		return (r.Status == models.StatusDeclined || r.Status == models.StatusExpired) &&
			r.ChainOutcome == models.OutcomeUnresolved &&
			r.UpdatedAt.Before(before)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return truncate(out, limit), nil
}

// SetChainOutcome records how a declined or expired request was followed up
func (s *Store) SetChainOutcome(ctx context.Context, id string, outcome models.ChainOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return dispatch.ErrNotFound
	}
	r.ChainOutcome = outcome
	s.requests[id] = r
	return nil
}

// Purge removes records whose purgeAt has passed, like the mongo TTL index does
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, r := range s.requests {
		if r.PurgeAt != nil && !r.PurgeAt.After(now) {
			delete(s.requests, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored requests
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Store) filter(keep func(models.DispatchRequest) bool) []models.DispatchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DispatchRequest
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	return out
}

func truncate(rs []models.DispatchRequest, limit int) []models.DispatchRequest {
	if limit > 0 && len(rs) > limit {
		return rs[:limit]
	}
	return rs
}

func clone(r models.DispatchRequest) models.DispatchRequest {
	r.TriedResponders = append([]string(nil), r.TriedResponders...)
	return r
}
