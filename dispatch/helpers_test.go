package dispatch_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/sos-dispatch-api/databases/memory"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
	"github.com/linesmerrill/sos-dispatch-api/notifications"
)

const (
	citizenPhone = "+15551112222"
	ttl          = 5 * time.Minute
)

var (
	citizenPoint = models.NewPoint(77.5946, 12.9716)
	errInfra     = errors.New("connection reset")
)

// fakeClock only fires timers when Advance is called
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) dispatch.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Jump moves time without firing timers, like a process that missed its deadline
func (c *fakeClock) Jump(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Advance moves time and runs every due timer on the calling goroutine
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// flakyDirectory fails lookups while fail is set
type flakyDirectory struct {
	*memory.Directory
	mu   sync.Mutex
	fail bool
}

func (f *flakyDirectory) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakyDirectory) FindNearestAvailable(ctx context.Context, kind models.ResponderKind, point models.GeoPoint, maxRadiusMeters float64, exclude []string) (*models.Candidate, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errInfra
	}
	return f.Directory.FindNearestAvailable(ctx, kind, point, maxRadiusMeters, exclude)
}

// flakyStore fails Create while failCreate is set
type flakyStore struct {
	*memory.Store
	failCreate bool
}

func (f *flakyStore) Create(ctx context.Context, r *models.DispatchRequest) error {
	if f.failCreate {
		return errInfra
	}
	return f.Store.Create(ctx, r)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyEmergencyContacts(ctx context.Context, citizen *models.Citizen, r *models.DispatchRequest) notifications.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, r.ID)
	return notifications.Result{Sent: len(citizen.EmergencyContacts)}
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fixture struct {
	clock     *fakeClock
	directory *flakyDirectory
	store     *memory.Store
	citizens  *memory.Citizens
	notifier  *recordingNotifier
	engine    *dispatch.Engine
	projector *dispatch.Projector
}

func newFixture(t *testing.T, opts ...func(*dispatch.Options)) *fixture {
	t.Helper()
	f := &fixture{
		clock:     newFakeClock(),
		directory: &flakyDirectory{Directory: memory.NewDirectory()},
		store:     memory.NewStore(),
		citizens:  memory.NewCitizens(),
		notifier:  &recordingNotifier{},
	}
	o := dispatch.Options{
		Directory: f.directory,
		Store:     f.store,
		Citizens:  f.citizens,
		Notifier:  f.notifier,
		Clock:     f.clock,
		TTL:       ttl,
	}
	for _, opt := range opts {
		opt(&o)
	}
	e, err := dispatch.NewEngine(o)
	require.NoError(t, err)
	f.engine = e
	f.projector = dispatch.NewProjector(f.directory, o.Store, f.citizens, f.clock)
	t.Cleanup(e.Close)
	return f
}

// addOfficer places an on duty officer east of the citizen
func (f *fixture) addOfficer(phone string, meters float64) {
	f.addResponder(models.KindOfficer, phone, meters, models.OfficerOnDuty)
}

func (f *fixture) addAmbulance(phone string, meters float64) {
	f.addResponder(models.KindAmbulance, phone, meters, models.AmbulanceAvailable)
}

func (f *fixture) addResponder(kind models.ResponderKind, phone string, meters float64, state models.Availability) {
	// one degree of longitude at this latitude
	degree := citizenPoint.DistanceTo(models.NewPoint(citizenPoint.Lng()+1, citizenPoint.Lat()))
	loc := models.NewPoint(citizenPoint.Lng()+meters/degree, citizenPoint.Lat())
	f.directory.Put(models.Responder{
		Kind:          kind,
		Phone:         phone,
		PhoneVerified: true,
		Location:      &loc,
		Availability:  state,
	})
}

func (f *fixture) create(t *testing.T, service models.ServiceType) *models.DispatchRequest {
	t.Helper()
	r, err := f.engine.Create(context.Background(), dispatch.CreateParams{
		CitizenPhone: citizenPhone,
		ServiceType:  service,
		Point:        citizenPoint,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) get(t *testing.T, id string) *models.DispatchRequest {
	t.Helper()
	r, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r
}
