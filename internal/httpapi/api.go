package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"oncohub.org/internal/access"
	"oncohub.org/internal/auth"
	"oncohub.org/internal/congress"
	"oncohub.org/internal/obs"
)

const serviceName = "oncohub-api"

// Resolver answers effective-access questions for the routes.
type Resolver interface {
	RoleOf(ctx context.Context, userID string) (access.PlatformRole, error)
	Resolve(ctx context.Context, userID string, space access.Space, scope access.Scope) (access.Decision, error)
	ResolveAll(ctx context.Context, userID string, scope access.Scope) (map[access.Space]access.Decision, error)
	RoleView(ctx context.Context, role access.PlatformRole) (map[access.Space]access.Decision, error)
}

// Admin is the override administration surface.
type Admin interface {
	SetPermissionOverride(ctx context.Context, targetUserID string, space access.Space, level access.AccessLevel, scope access.Scope) (access.AuditEntry, error)
	RemovePermissionOverride(ctx context.Context, targetUserID string, space access.Space, scope access.Scope) (access.AuditEntry, error)
	SetRoleDefaultOverride(ctx context.Context, role access.PlatformRole, space access.Space, level access.AccessLevel) (access.RoleDefaultOverride, error)
	RemoveRoleDefaultOverride(ctx context.Context, role access.PlatformRole, space access.Space) (bool, error)
	ListOverrides(ctx context.Context, targetUserID string) ([]access.PermissionOverride, error)
	ListRoleDefaults(ctx context.Context) ([]access.RoleDefaultOverride, error)
	AuditLog(ctx context.Context, targetUserID string, limit int) ([]access.AuditEntry, error)
	IsPlatformAdmin(ctx context.Context) (bool, error)
}

// Congress is the congress workspace surface.
type Congress interface {
	Workspace(ctx context.Context, userID, congressID string) (congress.Workspace, error)
	Assignments(ctx context.Context, userID, congressID string, day time.Time) ([]congress.Assignment, error)
	Responsibility(ctx context.Context, userID, congressID string, day time.Time) (congress.Summary, error)
	AdvanceStage(ctx context.Context, userID, congressID string, to congress.Stage) (congress.Event, error)
	Assign(ctx context.Context, userID string, a congress.Assignment) (congress.Assignment, error)
}

// Verifier turns a bearer token into claims.
type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Subscriber feeds the admin event stream.
type Subscriber interface {
	Subscribe(ctx context.Context) <-chan access.Change
}

// ReadinessChecker reports whether dependencies are usable.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// ReadyFunc adapts a function to ReadinessChecker.
type ReadyFunc func(ctx context.Context) error

func (f ReadyFunc) Check(ctx context.Context) error {
	if f == nil {
		return nil
	}
	return f(ctx)
}

// Deps wires the API to its collaborators. Previews, Events and Ready are
// optional.
type Deps struct {
	Resolver Resolver
	Admin    Admin
	Congress Congress
	Tokens   Verifier
	Previews access.PreviewStore
	Events   Subscriber
	Ready    ReadinessChecker
}

// Options tunes the middleware chain.
type Options struct {
	Version      string
	ViewAsTTL    time.Duration
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
	CORSOrigins  []string
}

// API is the HTTP layer.
type API struct {
	deps   Deps
	opts   Options
	router *mux.Router
	now    func() time.Time
}

func New(deps Deps, opts Options) (*API, error) {
	switch {
	case deps.Resolver == nil:
		return nil, errors.New("resolver is required")
	case deps.Admin == nil:
		return nil, errors.New("admin service is required")
	case deps.Congress == nil:
		return nil, errors.New("congress service is required")
	case deps.Tokens == nil:
		return nil, errors.New("token verifier is required")
	}
	if deps.Ready == nil {
		deps.Ready = ReadyFunc(nil)
	}
	if opts.ViewAsTTL <= 0 {
		opts.ViewAsTTL = 30 * time.Minute
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	a := &API{
		deps: deps,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
	}
	a.routes()
	return a, nil
}

func (a *API) routes() {
	r := mux.NewRouter()
	r.Use(obs.Instrument)

	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", a.Info).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(a.authenticate)

	v1.HandleFunc("/me/access", a.handleMyAccess).Methods(http.MethodGet)
	v1.HandleFunc("/me/navigation", a.handleMyNavigation).Methods(http.MethodGet)
	v1.HandleFunc("/me/view-as", a.handleSetViewAs).Methods(http.MethodPut)
	v1.HandleFunc("/me/view-as", a.handleClearViewAs).Methods(http.MethodDelete)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/permission-overrides", a.handleSetOverride).Methods(http.MethodPost)
	admin.HandleFunc("/permission-overrides", a.handleRemoveOverride).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{id}/overrides", a.handleListOverrides).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/audit", a.handleAuditLog).Methods(http.MethodGet)
	admin.HandleFunc("/role-defaults", a.handleListRoleDefaults).Methods(http.MethodGet)
	admin.HandleFunc("/role-defaults", a.handleSetRoleDefault).Methods(http.MethodPut)
	admin.HandleFunc("/role-defaults", a.handleRemoveRoleDefault).Methods(http.MethodDelete)
	admin.HandleFunc("/matrix", a.handleMatrix).Methods(http.MethodGet)
	admin.Handle("/events", a.requireAccess(access.SpaceAdmin, access.AccessView, nil, http.HandlerFunc(a.Stream))).Methods(http.MethodGet)

	cg := v1.PathPrefix("/congress/{id}").Subrouter()
	cg.Use(func(next http.Handler) http.Handler {
		return a.requireAccess(access.SpaceCongress, access.AccessView, congressScope, next)
	})
	cg.HandleFunc("/sections", a.handleSections).Methods(http.MethodGet)
	cg.HandleFunc("/assignments", a.handleAssignments).Methods(http.MethodGet)
	cg.HandleFunc("/assignments", a.handleCreateAssignment).Methods(http.MethodPost)
	cg.HandleFunc("/responsibility", a.handleResponsibility).Methods(http.MethodGet)
	cg.HandleFunc("/stage", a.handleAdvanceStage).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	a.router = r
}

// Handler returns the router wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSec)
	h = CORS(h, a.opts.CORSOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.deps.Ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    a.now().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is required")
		case errors.As(err, &maxErr):
			return errors.New("request body too large")
		default:
			return errors.New("invalid JSON body: " + strings.TrimPrefix(err.Error(), "json: "))
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
