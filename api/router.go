// Package api exposes the conversation, recommendation and account services over HTTP.
package api

import (
	"dm-lab/auth"
	"dm-lab/observability"
	"dm-lab/recommendation"
	"dm-lab/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Log                 *slog.Logger
	Conversations       services.IConversationService
	Accounts            services.IAuthService
	Recommender         recommendation.IRecommender
	Tokens              *auth.TokenIssuer
	Metrics             *observability.Metrics
	Gatherer            prometheus.Gatherer
	RecommendationLimit int
	AllowedOrigins      []string
}

type handler struct {
	Dependencies
}

// NewRouter builds the chi router: public auth and ambient routes, everything else behind a bearer token.
func NewRouter(deps Dependencies) http.Handler {
	if deps.RecommendationLimit == 0 {
		deps.RecommendationLimit = recommendation.DefaultLimit
	}
	// Credentials are only shared with origins listed explicitly.
	explicitOrigins := len(deps.AllowedOrigins) > 0
	if !explicitOrigins {
		deps.AllowedOrigins = []string{"http://*", "https://*"}
	}
	h := &handler{Dependencies: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: explicitOrigins,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.healthz)
	r.Get("/debug/stats", h.debugStats)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(deps.Tokens, h.writeError))

			r.Get("/messages/{senderId}/{receiverId}", h.fetchUnread)
			r.Post("/messages", h.send)
			r.Get("/conversations/{userA}/{userB}", h.listConversation)
			r.Get("/recommendations", h.recommendations)
			r.Get("/users", h.users)
		})
	})
	return r
}

// logRequests logs every request once it is served and feeds the HTTP metrics. The route pattern is read
// after the handler ran, when chi has resolved it.
func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if h.Metrics != nil {
			h.Metrics.HTTPRequestsInFlight.Inc()
			defer h.Metrics.HTTPRequestsInFlight.Dec()
		}

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		if h.Metrics != nil {
			h.Metrics.ObserveRequest(r.Method, route, ww.Status(), elapsed)
		}
		h.Log.Debug("Request served",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"route", route,
			"status", ww.Status(),
			"duration", elapsed,
		)
	})
}
