// Package httpapi exposes the AcademiHub services over JSON/HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"academihub.org/internal/auth"
	"academihub.org/internal/course"
	"academihub.org/internal/coursework"
	"academihub.org/internal/enrollment"
	"academihub.org/internal/events"
	_ "academihub.org/internal/httpapi/docs"
	"academihub.org/internal/obs"
	"academihub.org/internal/stats"
	"academihub.org/internal/validate"
)

// ReadyProbe checks dependencies for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Services are the domain components behind the routes. Any of them may be
// nil, in which case the matching routes answer 503.
type Services struct {
	Auth        *auth.Service
	Guard       *auth.Guard
	Authz       *auth.Authorizer
	Courses     *course.Service
	Lifecycle   *course.Manager
	Enrollments *enrollment.Service
	Coursework  *coursework.Service
	Stats       *stats.Service
	Events      *events.Bus
}

// Options tunes the HTTP surface.
type Options struct {
	Version      string
	Ready        ReadyProbe
	CORSOrigins  []string
	MaxBodyBytes int64
	// AuthRateLimit requests per AuthRateWindow for each client on the
	// credential endpoints. Zero disables limiting.
	AuthRateLimit  int
	AuthRateWindow time.Duration
	// TrustedProxies may set X-Forwarded-For. Empty means the socket peer
	// is always the client.
	TrustedProxies TrustedProxies
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	svc       Services
	opts      Options
	validator *validate.Validator
	limiter   *RateLimiter
}

const defaultMaxBody = 1 << 20

func New(svc Services, opts Options) *API {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	a := &API{
		mux:       http.NewServeMux(),
		svc:       svc,
		opts:      opts,
		validator: validate.New(),
	}
	if opts.AuthRateLimit > 0 && opts.AuthRateWindow > 0 {
		a.limiter = NewRateLimiter(opts.AuthRateLimit, opts.AuthRateWindow)
	}
	a.routes()
	return a
}

func (a *API) routes() {
	m := a.mux

	m.HandleFunc("GET /healthz", a.Healthz)
	m.HandleFunc("GET /readyz", a.Ready)
	m.HandleFunc("GET /v1/info", a.Info)
	m.Handle("GET /metrics", obs.Handler())
	m.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	m.Handle("POST /v1/auth/signup", a.limited(a.handleSignup))
	m.Handle("POST /v1/auth/login", a.limited(a.handleLogin))
	m.Handle("POST /v1/auth/google", a.limited(a.handleGoogle))
	m.HandleFunc("GET /v1/auth/me", a.handleMe)
	m.HandleFunc("PATCH /v1/auth/me", a.handleUpdateMe)
	m.HandleFunc("POST /v1/auth/password", a.handleChangePassword)
	m.HandleFunc("GET /v1/auth/capabilities", a.handleCapabilities)

	m.HandleFunc("GET /v1/users", a.handleListUsers)
	m.HandleFunc("POST /v1/users", a.handleCreateUser)
	m.HandleFunc("GET /v1/users/{id}", a.handleGetUser)
	m.HandleFunc("PATCH /v1/users/{id}", a.handleUpdateUser)
	m.HandleFunc("GET /v1/users/{id}/stats", a.handleUserStats)
	m.HandleFunc("GET /v1/users/{id}/activity", a.handleUserActivity)

	m.HandleFunc("GET /v1/courses", a.handleListCourses)
	m.HandleFunc("POST /v1/courses", a.handleCreateCourse)
	m.HandleFunc("GET /v1/courses/{id}", a.handleGetCourse)
	m.HandleFunc("PATCH /v1/courses/{id}", a.handleUpdateCourse)
	m.HandleFunc("POST /v1/courses/{id}/transition", a.handleTransitionCourse)

	m.HandleFunc("GET /v1/enrollments", a.handleListEnrollments)
	m.HandleFunc("POST /v1/enrollments", a.handleEnroll)
	m.HandleFunc("GET /v1/enrollments/{id}", a.handleGetEnrollment)
	m.HandleFunc("PATCH /v1/enrollments/{id}", a.handleUpdateEnrollment)
	m.HandleFunc("DELETE /v1/enrollments/{id}", a.handleUnenroll)

	m.HandleFunc("GET /v1/assignments", a.handleListAssignments)
	m.HandleFunc("POST /v1/assignments", a.handleCreateAssignment)
	m.HandleFunc("GET /v1/assignments/upcoming", a.handleUpcomingAssignments)
	m.HandleFunc("GET /v1/assignments/{id}", a.handleGetAssignment)
	m.HandleFunc("PATCH /v1/assignments/{id}", a.handleUpdateAssignment)
	m.HandleFunc("DELETE /v1/assignments/{id}", a.handleDeleteAssignment)
	m.HandleFunc("POST /v1/assignments/{id}/submissions", a.handleSubmit)

	m.HandleFunc("GET /v1/submissions", a.handleListSubmissions)
	m.HandleFunc("GET /v1/submissions/mine", a.handleMySubmissions)
	m.HandleFunc("GET /v1/submissions/{id}", a.handleGetSubmission)
	m.HandleFunc("POST /v1/submissions/{id}/grade", a.handleGrade)

	m.HandleFunc("GET /v1/stats/overview", a.handleAdminOverview)
	m.Handle("GET /v1/events", RequireRole(auth.RoleAdmin)(http.HandlerFunc(a.Events)))
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = CORS(a.opts.CORSOrigins)(h)
	h = SecurityHeaders(h)
	h = Recover(h)
	h = Logging(h)
	h = RealIP(a.opts.TrustedProxies)(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) limited(fn http.HandlerFunc) http.Handler {
	if a.limiter == nil {
		return fn
	}
	return a.limiter.Wrap(fn)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "academihub-api",
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.opts.Ready.Check(ctx); err != nil {
		obs.Logger().WarnContext(ctx, "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  "database unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	version, commit := obs.Build()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "academihub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": version,
		"commit":  commit,
	})
}
