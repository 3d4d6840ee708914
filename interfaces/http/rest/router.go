package rest

import (
	"net/http"

	"prefill/application/commands/bus"
	querybus "prefill/application/queries/bus"
	"prefill/interfaces/http/rest/handlers"
	"prefill/interfaces/http/rest/middleware"
	"prefill/pkg/auth"
	"prefill/pkg/common"
	pkgerrors "prefill/pkg/errors"
	"prefill/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// SessionCounter reports the number of open sessions
type SessionCounter interface {
	Count() int
}

// RouterConfig holds the HTTP surface settings
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
	// GatewayAuth trusts the caller headers set by the Lambda entrypoint
	GatewayAuth bool
	Debug       bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	sessions   SessionCounter
	collector  *observability.Collector
	tracer     *observability.Tracer
	validator  *auth.JWTValidator
	limiter    auth.RateLimiter
	config     RouterConfig
	logger     *zap.Logger
}

// NewRouter creates a new router instance. A nil validator disables token
// authentication and a nil limiter disables rate limiting.
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	sessions SessionCounter,
	collector *observability.Collector,
	tracer *observability.Tracer,
	validator *auth.JWTValidator,
	limiter auth.RateLimiter,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		sessions:   sessions,
		collector:  collector,
		tracer:     tracer,
		validator:  validator,
		limiter:    limiter,
		config:     config,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.config.Debug)
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.collector != nil {
		router.Use(middleware.Metrics(rt.collector))
	}
	if rt.tracer != nil && rt.tracer.Enabled() {
		router.Use(rt.tracer.Middleware)
	}

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.config.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil {
		router.Handle("/metrics", rt.collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if rt.config.GatewayAuth {
			r.Use(middleware.AuthenticateForLambda(errorHandler))
		} else {
			r.Use(middleware.Authenticate(rt.validator, errorHandler, rt.logger))
		}

		sessionHandler := handlers.NewSessionHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)

		r.Route("/sessions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if rt.limiter != nil {
					r.Use(middleware.RateLimit(rt.limiter, errorHandler, rt.logger))
				}
				r.Post("/", sessionHandler.CreateSession)
			})

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Delete("/", sessionHandler.DeleteSession)
				r.Get("/canvas", sessionHandler.GetCanvas)

				r.Post("/open", sessionHandler.OpenNode)
				r.Post("/close", sessionHandler.CloseNode)
				r.Post("/field", sessionHandler.SelectField)
				r.Post("/target", sessionHandler.SelectTarget)
				r.Delete("/target", sessionHandler.ClearTarget)
				r.Post("/back", sessionHandler.Back)
				r.Post("/commit", sessionHandler.Commit)
				r.Delete("/mappings", sessionHandler.RemoveMapping)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	_ = common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck reports the open session count. The service keeps no
// connections of its own, so it is ready once it serves.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	body := map[string]interface{}{"status": "ready"}
	if rt.sessions != nil {
		body["sessions"] = rt.sessions.Count()
	}
	_ = common.RespondJSON(w, http.StatusOK, body)
}
