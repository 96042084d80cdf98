package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/KAsare1/socialfeed-server/config"
	"github.com/KAsare1/socialfeed-server/db"
	"github.com/KAsare1/socialfeed-server/service/feed"
	"github.com/KAsare1/socialfeed-server/service/forum"
	"github.com/KAsare1/socialfeed-server/service/media"
	"github.com/KAsare1/socialfeed-server/service/realtime"
	"github.com/KAsare1/socialfeed-server/service/social"
	"github.com/KAsare1/socialfeed-server/service/user"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const limiterCacheSize = 10000

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route template, method and status",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)

type APIServer struct {
	address   string
	cfg       *config.Config
	accessLog io.Writer
	store     db.Store
	blobs     media.Store
	mailer    user.Mailer
	hub       *realtime.Hub
}

func NewApiServer(cfg *config.Config, store db.Store, blobs media.Store, mailer user.Mailer, hub *realtime.Hub) *APIServer {
	return &APIServer{
		address:   ":" + cfg.Port,
		cfg:       cfg,
		accessLog: os.Stdout,
		store:     store,
		blobs:     blobs,
		mailer:    mailer,
		hub:       hub,
	}
}

// Handler assembles the router with every service mounted under /api.
func (s *APIServer) Handler() (http.Handler, error) {
	auth := utils.NewAuthenticator(s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	limiter, err := utils.NewRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, limiterCacheSize)
	if err != nil {
		return nil, err
	}

	var notifier realtime.Notifier = realtime.NopNotifier{}
	if s.hub != nil {
		notifier = s.hub
	}

	router := mux.NewRouter()
	router.Use(instrument)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
	}).Methods("GET")

	if local, ok := s.blobs.(*media.LocalStore); ok {
		fileServer := http.FileServer(http.Dir(local.Root()))
		router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", fileServer))
	}

	subrouter := router.PathPrefix("/api").Subrouter()

	userService := user.NewService(s.store, s.blobs, auth, s.mailer, s.cfg.JWTSecret, s.cfg.RefreshTokenTTL)
	user.NewHandler(userService, auth, limiter).RegisterRoutes(subrouter)

	feedHandler := feed.NewFeedHandler(feed.NewService(s.store), auth)
	feedHandler.RegisterRoutes(subrouter)

	forumHandler := forum.NewPostHandler(forum.NewService(s.store, s.blobs, notifier), auth, limiter)
	forumHandler.RegisterRoutes(subrouter)

	followHandler := social.NewFollowHandler(social.NewService(s.store, notifier), auth, limiter)
	followHandler.RegisterRoutes(subrouter)

	if s.hub != nil {
		realtime.NewHandler(s.hub, auth, s.cfg.CORSOrigins).RegisterRoutes(subrouter)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return handlers.CustomLoggingHandler(s.accessLog, cors(router), combinedLog), nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              s.address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("Server running at", s.address)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m := httpsnoop.CaptureMetrics(next, w, r)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(m.Code)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(m.Duration.Seconds())
	})
}
