package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/linesmerrill/sos-dispatch-api/api"
	"github.com/linesmerrill/sos-dispatch-api/config"
	"github.com/linesmerrill/sos-dispatch-api/dispatch"
	"github.com/linesmerrill/sos-dispatch-api/metrics"
	"github.com/linesmerrill/sos-dispatch-api/models"
)

// Dispatcher is the part of the dispatch engine the handlers call
type Dispatcher interface {
	Create(ctx context.Context, p dispatch.CreateParams) (*models.DispatchRequest, error)
	Accept(ctx context.Context, id, responderPhone string) (*models.DispatchRequest, error)
	Decline(ctx context.Context, id, responderPhone string) (*dispatch.DeclineResult, error)
	TTL() time.Duration
}

// StatusProjector builds the citizen and responder views of a request
type StatusProjector interface {
	CitizenView(ctx context.Context, id, citizenPhone string) (*models.CitizenView, error)
	ResponderView(ctx context.Context, id, responderPhone string) (*models.ResponderView, error)
	ResponderRequests(ctx context.Context, kind models.ResponderKind, phone string) ([]models.ResponderView, error)
}

// OTPVerifier sends and checks one-time codes
type OTPVerifier interface {
	SendCode(ctx context.Context, phone string) (string, error)
	CheckCode(ctx context.Context, phone, code string) (bool, string, error)
}

// Deps are the collaborators the routes are built on. Verifier and Metrics
// may be nil.
type Deps struct {
	Engine    Dispatcher
	Projector StatusProjector
	Directory dispatch.Directory
	Citizens  dispatch.Citizens
	Verifier  OTPVerifier
	Metrics   *metrics.Collector
}

// App stores the router and its collaborators, so it can be reused
type App struct {
	Router *mux.Router
	Config config.Config
	deps   Deps
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	validate := validator.New()
	d := Dispatch{Engine: a.deps.Engine, Projector: a.deps.Projector, Validate: validate}
	resp := Responder{Directory: a.deps.Directory, Projector: a.deps.Projector, Validate: validate}
	cit := Citizen{DB: a.deps.Citizens, Validate: validate}
	otp := OTP{Verifier: a.deps.Verifier, Directory: a.deps.Directory, Citizens: a.deps.Citizens, Validate: validate}

	r := mux.NewRouter()

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	var observer api.HTTPObserver
	if a.deps.Metrics != nil {
		r.Handle("/metrics", a.deps.Metrics.Handler()).Methods("GET")
		observer = a.deps.Metrics
	}

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/dispatch", http.HandlerFunc(d.CreateDispatchHandler)).Methods("POST")
	apiCreate.Handle("/dispatch/{request_id}/accept", http.HandlerFunc(d.AcceptDispatchHandler)).Methods("POST")
	apiCreate.Handle("/dispatch/{request_id}/decline", http.HandlerFunc(d.DeclineDispatchHandler)).Methods("POST")
	apiCreate.Handle("/dispatch/{request_id}", http.HandlerFunc(d.DispatchStatusHandler)).Methods("GET")

	apiCreate.Handle("/responders/{kind}/{phone}/status", http.HandlerFunc(resp.UpdateStatusHandler)).Methods("PUT")
	apiCreate.Handle("/responders/{kind}/{phone}/requests", http.HandlerFunc(resp.RequestsHandler)).Methods("GET")
	apiCreate.Handle("/responders/{kind}/{phone}", http.HandlerFunc(resp.UpdateProfileHandler)).Methods("PUT")

	apiCreate.Handle("/citizens/{phone}", http.HandlerFunc(cit.UpdateProfileHandler)).Methods("PUT")

	apiCreate.Handle("/otp/send", http.HandlerFunc(otp.SendCodeHandler)).Methods("POST")
	apiCreate.Handle("/otp/verify", http.HandlerFunc(otp.VerifyCodeHandler)).Methods("POST")

	r.Use(api.MetricsMiddleware(observer), api.TimeoutMiddleware(a.Config.RequestTimeout))
	return r
}

// Initialize is invoked by the serve command once the collaborators are built
func (a *App) Initialize(deps Deps) {
	a.deps = deps
	a.initializeRoutes()
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
