package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/sos-dispatch-api/databases/memory"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

func TestCitizenView_PendingHidesResponder(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	r := f.create(t, models.ServicePolice)
	f.clock.Advance(time.Minute)

	v, err := f.projector.CitizenView(context.Background(), r.ID, citizenPhone)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, v.Status)
	assert.Equal(t, 240, v.SecondsRemaining)
	assert.Equal(t, r.MapsURL, v.MapsURL)
	assert.Equal(t, models.ServicePolice, v.ServiceType)
	assert.Nil(t, v.Responder)
	assert.Nil(t, v.EstimatedArrivalMinutes)
	assert.False(t, v.Searching)
}

func TestCitizenView_AcceptedShowsResponder(t *testing.T) {
	f := newFixture(t)
	f.addAmbulance("+15550000001", 2000)
	r := f.create(t, models.ServiceAmbulance)
	_, err := f.engine.Accept(context.Background(), r.ID, "+15550000001")
	require.NoError(t, err)

	v, err := f.projector.CitizenView(context.Background(), r.ID, citizenPhone)
	require.NoError(t, err)

	assert.Equal(t, models.StatusAccepted, v.Status)
	require.NotNil(t, v.Responder)
	assert.Equal(t, "+15550000001", v.Responder.Phone)
	require.NotNil(t, v.EstimatedArrivalMinutes)
	assert.Equal(t, 6, *v.EstimatedArrivalMinutes)
}

func TestCitizenView_FollowsChain(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	f.addOfficer("+15550000002", 500)
	ctx := context.Background()
	r := f.create(t, models.ServicePolice)

	res, err := f.engine.Decline(ctx, r.ID, "+15550000001")
	require.NoError(t, err)

	v, err := f.projector.CitizenView(ctx, r.ID, citizenPhone)
	require.NoError(t, err)
	assert.Equal(t, res.Successor.ID, v.RequestID)
	assert.Equal(t, r.ID, v.ChainID)
	assert.Equal(t, models.StatusPending, v.Status)
	assert.Equal(t, 300, v.SecondsRemaining)

	_, err = f.engine.Accept(ctx, res.Successor.ID, "+15550000002")
	require.NoError(t, err)
	v, err = f.projector.CitizenView(ctx, r.ID, citizenPhone)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, v.Status)
	assert.Equal(t, "+15550000002", v.Responder.Phone)
}

func TestCitizenView_NoResponderFound(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	r := f.create(t, models.ServicePolice)
	f.clock.Advance(ttl)

	v, err := f.projector.CitizenView(context.Background(), r.ID, citizenPhone)
	require.NoError(t, err)

	assert.Equal(t, models.StatusExpired, v.Status)
	assert.True(t, v.NoResponderFound)
	assert.True(t, v.CanRetry)
	assert.Equal(t, dispatch.MessageNoResponderFound, v.Message)
	assert.Equal(t, models.StatusExpired, f.get(t, r.ID).Status)
}

func TestCitizenView_SearchingWhileReassignmentPending(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	r := f.create(t, models.ServicePolice)
	f.directory.setFail(true)
	_, err := f.engine.Decline(context.Background(), r.ID, "+15550000001")
	require.NoError(t, err)

	v, err := f.projector.CitizenView(context.Background(), r.ID, citizenPhone)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, v.Status)
	assert.True(t, v.Searching)
	assert.Equal(t, dispatch.MessageSearching, v.Message)
	assert.Nil(t, v.Responder)
	assert.Equal(t, models.StatusDeclined, f.get(t, r.ID).Status)
}

// purgedStore hides one request, as if the retention index had removed it
type purgedStore struct {
	*memory.Store
	gone string
}

func (s purgedStore) Get(ctx context.Context, id string) (*models.DispatchRequest, error) {
	if id == s.gone {
		return nil, nil
	}
	return s.Store.Get(ctx, id)
}

func TestCitizenView_PurgedSuccessorIsClosed(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	f.addOfficer("+15550000002", 500)
	ctx := context.Background()
	r := f.create(t, models.ServicePolice)
	res, err := f.engine.Decline(ctx, r.ID, "+15550000001")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeReassigned, res.Outcome)

	projector := dispatch.NewProjector(f.directory, purgedStore{Store: f.store, gone: res.Successor.ID}, f.citizens, f.clock)
	v, err := projector.CitizenView(ctx, r.ID, citizenPhone)
	require.NoError(t, err)

	assert.Equal(t, r.ID, v.RequestID)
	assert.Equal(t, models.StatusDeclined, v.Status)
	assert.False(t, v.Searching)
	assert.True(t, v.CanRetry)
	assert.Equal(t, dispatch.MessageRequestClosed, v.Message)
}

func TestCitizenView_Errors(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	r := f.create(t, models.ServicePolice)

	_, err := f.projector.CitizenView(context.Background(), "missing", citizenPhone)
	assert.ErrorIs(t, err, dispatch.ErrNotFound)

	_, err = f.projector.CitizenView(context.Background(), r.ID, "+15559999999")
	assert.ErrorIs(t, err, dispatch.ErrNotAuthorized)
}

func TestResponderView(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	f.addOfficer("+15550000002", 500)
	f.citizens.Put(models.Citizen{
		Phone:      citizenPhone,
		Name:       models.CitizenName{First: "Jane", Last: "Doe"},
		BloodGroup: "O+",
		Allergies:  []string{"penicillin"},
	})
	ctx := context.Background()
	r := f.create(t, models.ServicePolice)

	v, err := f.projector.ResponderView(ctx, r.ID, "+15550000001")
	require.NoError(t, err)
	assert.Equal(t, r.ID, v.RequestID)
	assert.Equal(t, 300, v.SecondsRemaining)
	require.NotNil(t, v.Citizen)
	assert.Equal(t, "O+", v.Citizen.BloodGroup)
	assert.Equal(t, []string{"penicillin"}, v.Citizen.Allergies)

	_, err = f.projector.ResponderView(ctx, r.ID, "+15550000002")
	assert.ErrorIs(t, err, dispatch.ErrNotAuthorized)

	_, err = f.engine.Decline(ctx, r.ID, "+15550000001")
	require.NoError(t, err)
	_, err = f.projector.ResponderView(ctx, r.ID, "+15550000001")
	assert.ErrorIs(t, err, dispatch.ErrRequestNotPending)

	v, err = f.projector.ResponderView(ctx, dispatch.SuccessorID(r.ID), "+15550000002")
	require.NoError(t, err)
	assert.Equal(t, "Jane", v.Citizen.Name.First)
	f.engine.Close()
}

func TestResponderRequests(t *testing.T) {
	f := newFixture(t)
	f.addOfficer("+15550000001", 100)
	ctx := context.Background()
	first := f.create(t, models.ServicePolice)
	f.clock.Advance(time.Second)
	second := f.create(t, models.ServicePolice)

	views, err := f.projector.ResponderRequests(ctx, models.KindOfficer, "+15550000001")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].RequestID)
	assert.Equal(t, first.ID, views[1].RequestID)
	require.NotNil(t, views[0].Citizen)
	assert.Equal(t, citizenPhone, views[0].Citizen.Phone)

	views, err = f.projector.ResponderRequests(ctx, models.KindAmbulance, "+15550000001")
	require.NoError(t, err)
	assert.Empty(t, views)

	f.clock.Advance(ttl)
	views, err = f.projector.ResponderRequests(ctx, models.KindOfficer, "+15550000001")
	require.NoError(t, err)
	assert.Empty(t, views)
}
