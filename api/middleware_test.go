package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/sos-dispatch-api/models"
)

type observed struct {
	method string
	route  string
	code   int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observed
}

func (o *recordingObserver) ObserveHTTP(method, route string, code int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observed{method, route, code})
}

func TestMetricsMiddleware(t *testing.T) {
	obs := &recordingObserver{}
	var gotID string

	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {})
	r.HandleFunc("/api/v1/dispatch/{request_id}", func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusConflict)
	})
	r.Use(MetricsMiddleware(obs))

	req := httptest.NewRequest("POST", "/api/v1/dispatch/abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Len(t, obs.seen, 1)
	assert.Equal(t, observed{"POST", "/api/v1/dispatch/{request_id}", http.StatusConflict}, obs.seen[0])
	assert.NotEmpty(t, gotID)
	assert.Equal(t, gotID, rr.Header().Get(RequestIDHeader))

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "trace-from-client")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Len(t, obs.seen, 1, "health checks are not observed")
	assert.Equal(t, "trace-from-client", rr.Header().Get(RequestIDHeader))
}

func TestMetricsMiddlewareNilObserver(t *testing.T) {
	h := MetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/anything", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestTimeoutMiddlewarePassesThrough(t *testing.T) {
	h := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/", nil))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, rr.Body.String())
}

func TestTimeoutMiddlewareTimesOut(t *testing.T) {
	release := make(chan struct{})
	writeErr := make(chan error, 1)
	h := TimeoutMiddleware(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, err := w.Write([]byte("too late"))
		writeErr <- err
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	close(release)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var body models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "request timed out", body.Response.Message)
	assert.ErrorIs(t, <-writeErr, http.ErrHandlerTimeout)
}

func TestTimeoutMiddlewareRepanics(t *testing.T) {
	h := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	assert.PanicsWithValue(t, "boom", func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	})
}

func TestTimeoutMiddlewareDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		assert.False(t, ok)
	})
	TimeoutMiddleware(0)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestWithQueryTimeout(t *testing.T) {
	ctx, cancel := WithQueryTimeout(nil)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(QueryTimeout), deadline, time.Second)
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, "abc", RequestIDFromContext(WithRequestID(context.Background(), "abc")))
}
