package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/sos-dispatch-api/api/handlers"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/databases/memory"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/metrics"
	"github.com/linesmerrill/sos-dispatch-api/models"
	"github.com/linesmerrill/sos-dispatch-api/verification"
)

const (
	citizenPhone = "+15551112222"
	officerNear  = "+15550000001"
	officerFar   = "+15550000002"
	ambulanceOne = "+15550000011"
)

// one degree of longitude at 28N is roughly 98.3km
var citizenPoint = models.NewPoint(77.0, 28.0)

type fakeVerifier struct {
	approved bool
	err      error
}

func (f *fakeVerifier) SendCode(_ context.Context, phone string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if !models.ValidPhone(phone) {
		return "", verification.ErrInvalidPhone
	}
	return phone, nil
}

func (f *fakeVerifier) CheckCode(_ context.Context, phone, _ string) (bool, string, error) {
	if f.err != nil {
		return false, "", f.err
	}
	return f.approved, phone, nil
}

type fixture struct {
	app       *handlers.App
	directory *memory.Directory
	store     *memory.Store
	citizens  *memory.Citizens
	verifier  *fakeVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		directory: memory.NewDirectory(),
		store:     memory.NewStore(),
		citizens:  memory.NewCitizens(),
		verifier:  &fakeVerifier{approved: true},
	}
	engine, err := dispatch.NewEngine(dispatch.Options{
		Directory: f.directory,
		Store:     f.store,
		Citizens:  f.citizens,
		TTL:       5 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	f.app = &handlers.App{Config: config.Config{RequestTimeout: 5 * time.Second}}
	f.app.Initialize(handlers.Deps{
		Engine:    engine,
		Projector: dispatch.NewProjector(f.directory, f.store, f.citizens, nil),
		Directory: f.directory,
		Citizens:  f.citizens,
		Verifier:  f.verifier,
		Metrics:   collector,
	})
	return f
}

func (f *fixture) addResponder(kind models.ResponderKind, phone string, eastMeters float64) {
	caps, _ := models.CapabilitiesFor(kind)
	loc := models.NewPoint(77.0+eastMeters/98300.0, 28.0)
	f.directory.Put(models.Responder{
		Kind:          kind,
		Phone:         phone,
		PhoneVerified: true,
		Availability:  caps.Ready,
		Location:      &loc,
	})
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	f.app.Router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) createPolice(t *testing.T) models.CreateDispatchResponse {
	t.Helper()
	rr := f.do(t, "POST", "/api/v1/dispatch", map[string]interface{}{
		"citizenPhone": citizenPhone,
		"serviceType":  "police",
		"lng":          citizenPoint.Lng(),
		"lat":          citizenPoint.Lat(),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp models.CreateDispatchResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}
