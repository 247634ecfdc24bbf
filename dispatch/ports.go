package dispatch

import (
	"context"
	"time"

	"github.com/linesmerrill/sos-dispatch-api/models"
	"github.com/linesmerrill/sos-dispatch-api/notifications"
)

// Directory looks up and updates responders
type Directory interface {
	// FindNearestAvailable returns the closest ready, verified responder of kind
	// within maxRadiusMeters whose phone is not in exclude, or nil when there is none.
	FindNearestAvailable(ctx context.Context, kind models.ResponderKind, point models.GeoPoint, maxRadiusMeters float64, exclude []string) (*models.Candidate, error)
	UpdateAvailability(ctx context.Context, kind models.ResponderKind, phone string, state models.Availability, location *models.GeoPoint) error
	GetByPhone(ctx context.Context, kind models.ResponderKind, phone string) (*models.Responder, error)
	UpsertVerified(ctx context.Context, kind models.ResponderKind, phone string) (*models.Responder, error)
	UpdateProfile(ctx context.Context, r *models.Responder) (*models.Responder, error)
}

// Store persists dispatch requests. ConditionalTransition is the only place
// status changes are serialized.
type Store interface {
	Create(ctx context.Context, r *models.DispatchRequest) error
	// ConditionalTransition moves id from expected to t.To and returns the
	// updated record. ErrConflict when the stored status differs, ErrNotFound
	// when the id is unknown.
	ConditionalTransition(ctx context.Context, id string, expected models.RequestStatus, t models.Transition) (*models.DispatchRequest, error)
	Get(ctx context.Context, id string) (*models.DispatchRequest, error)
	FindActiveForResponder(ctx context.Context, phone string, now time.Time) ([]models.DispatchRequest, error)
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.DispatchRequest, error)
	FindUnresolved(ctx context.Context, before time.Time, limit int) ([]models.DispatchRequest, error)
	SetChainOutcome(ctx context.Context, id string, outcome models.ChainOutcome) error
}

// Citizens reads and maintains citizen profiles
type Citizens interface {
	GetByPhone(ctx context.Context, phone string) (*models.Citizen, error)
	UpsertVerified(ctx context.Context, phone string) (*models.Citizen, error)
	UpdateProfile(ctx context.Context, c *models.Citizen) (*models.Citizen, error)
}

// Notifier alerts the emergency contacts of a citizen
type Notifier interface {
	NotifyEmergencyContacts(ctx context.Context, citizen *models.Citizen, r *models.DispatchRequest) notifications.Result
}

// Metrics records dispatch outcomes
type Metrics interface {
	RequestCreated(service models.ServiceType, hop int)
	RequestTransitioned(service models.ServiceType, to models.RequestStatus)
	ChainResolved(service models.ServiceType, outcome models.ChainOutcome)
	NoResponder(service models.ServiceType)
	Notified(sent, failed int)
}

type nopMetrics struct{}

func (nopMetrics) RequestCreated(models.ServiceType, int)                       {}
func (nopMetrics) RequestTransitioned(models.ServiceType, models.RequestStatus) {}
func (nopMetrics) ChainResolved(models.ServiceType, models.ChainOutcome)        {}
func (nopMetrics) NoResponder(models.ServiceType)                               {}
func (nopMetrics) Notified(int, int)                                            {}
