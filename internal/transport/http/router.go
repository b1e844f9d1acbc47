package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "foodbridge/internal/auth/handler"
	donationhandler "foodbridge/internal/donation/handler"
	"foodbridge/internal/platform/metrics"
	ratelimitmw "foodbridge/internal/ratelimit/middleware"
	"foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
	authmw "foodbridge/pkg/platform/middleware/auth"
	"foodbridge/pkg/platform/middleware/metadata"
	"foodbridge/pkg/platform/middleware/request"
	"foodbridge/pkg/platform/middleware/requesttime"
	"foodbridge/pkg/requestcontext"
)

// RequestTimeout bounds every request.
const RequestTimeout = 30 * time.Second

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps carries everything the router wires together. Database, Gatherer,
// Revocations, RateLimit and TrustedProxies are optional.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Validator   authmw.JWTValidator
	Revocations authmw.TokenRevocationChecker
	Auth        *authhandler.Handler
	Donations   *donationhandler.Handler
	RateLimit   *ratelimitmw.Middleware
	Database    Pinger
	StaticDir   string
	CORSOrigins []string

	// TrustedProxies may set the client IP through forwarding headers.
	TrustedProxies []netip.Prefix
}

// NewRouter builds the API gateway: global middleware, /api routes, metrics
// and the SPA fallback.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(metadata.TrustedClientMetadata(d.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(request.Latency(d.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(d.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(request.Timeout(RequestTimeout))

	requireAuth := authmw.RequireAuth(d.Validator, d.Revocations, d.Logger)
	requireRole := func(role domain.Role) func(http.Handler) http.Handler {
		return authmw.RequireRole(role, d.Logger)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(d.Database))
		r.Group(func(r chi.Router) {
			if d.RateLimit != nil {
				r.Use(d.RateLimit.RateLimit("auth"))
			}
			d.Auth.Register(r, requireAuth)
		})
		d.Donations.Register(r, requireAuth, requireRole)
		r.NotFound(apiNotFound)
		r.MethodNotAllowed(methodNotAllowed)
	})

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(spaHandler(d.StaticDir))
	r.MethodNotAllowed(methodNotAllowed)
	return r
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type healthResponse struct {
	Status      string    `json:"status"`
	ServerTime  time.Time `json:"serverTime"`
	DBConnected *bool     `json:"dbConnected,omitempty"`
}

// healthHandler always answers 200. dbConnected is reported only when a
// database backs the ledger.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", ServerTime: requestcontext.Now(r.Context())}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			connected := db.PingContext(ctx) == nil
			cancel()
			resp.DBConnected = &connected
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

func apiNotFound(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Route not found"))
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, "Method not allowed"))
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes resolve. Unknown /api paths and a missing dir stay JSON 404s.
func spaHandler(dir string) http.HandlerFunc {
	if dir == "" {
		return apiNotFound
	}
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			apiNotFound(w, r)
			return
		}
		clean := filepath.Clean("/" + r.URL.Path)
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, index)
	}
}
