// Package httpapi exposes the BOAR runtime's own operations over HTTP:
// scheduler introspection/trigger, OTP link/verify/unlink, webhook test
// delivery, and an agent chat demo endpoint. Per-domain CRUD (contracts,
// employees, tasks) is out of scope — that belongs to the services that
// embed this runtime, not the runtime itself.
//
// Grounded on the teacher's internal/server/server.go for the ada +
// middleware assembly, and internal/server/gateway.go's authenticateRequest
// for the auth-middleware shape (here simplified to a single static
// X-API-Key instead of a token store with per-token scoping).
package httpapi

import (
	"context"
	"net"
	"net/http"

	"github.com/rakunlabs/ada"

	mcors "github.com/rakunlabs/ada/middleware/cors"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"
	mserver "github.com/rakunlabs/ada/middleware/server"
	mtelemetry "github.com/rakunlabs/ada/middleware/telemetry"

	"github.com/boarsvc/boar/internal/metrics"
	"github.com/boarsvc/boar/internal/otp"
	"github.com/boarsvc/boar/internal/scheduler"
)

// Scheduler is the narrow slice of scheduler.Scheduler the introspection
// and trigger endpoints need.
type Scheduler interface {
	List() []scheduler.JobInfo
	Trigger(ctx context.Context, id string) error
	Pause(id string) error
	Resume(id string) error
}

// Authenticator is the narrow slice of otp.Authenticator the /otp/* routes
// drive.
type Authenticator interface {
	State(ctx context.Context, externalID string) (otp.State, error)
	LinkStart(ctx context.Context, externalID, workEmail, username string) (string, error)
	Verify(ctx context.Context, externalID, code string) error
	Unlink(ctx context.Context, externalID string) error
}

// Notifier is the narrow slice of notifier.Notifier the webhook test
// endpoint drives.
type Notifier interface {
	Dispatch(ctx context.Context, eventType string, data any, recipients []string, subject, body string)
}

// Surface is the narrow slice of agent.Surface the chat demo endpoint
// drives.
type Surface interface {
	Handle(ctx context.Context, externalID, message string) (string, error)
}

// Config controls the HTTP surface's bind address and inbound auth.
type Config struct {
	Host           string
	Port           string
	APIKey         string // required; every /api/v1 request must present it via X-API-Key (/health and /metrics are open)
	AllowedOrigins string
}

// Server is the BOAR HTTP surface.
type Server struct {
	cfg    Config
	server *ada.Server

	scheduler Scheduler
	auth      Authenticator
	notifier  Notifier
	surface   Surface
}

// New assembles the ada mux with the teacher's standard middleware chain
// and registers the runtime's own routes under /api/v1.
func New(cfg Config, sched Scheduler, auth Authenticator, notif Notifier, surf Surface) (*Server, error) {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mserver.Middleware("boar"),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
		mtelemetry.Middleware(),
	)

	s := &Server{
		cfg:       cfg,
		server:    mux,
		scheduler: sched,
		auth:      auth,
		notifier:  notif,
		surface:   surf,
	}

	mux.GET("/health", s.healthHandler)
	mux.Handle("/metrics", metrics.Handler())

	api := mux.Group("/api/v1")
	api.Use(s.apiKeyMiddleware())

	api.GET("/jobs", s.listJobsHandler)
	api.POST("/jobs/*/trigger", s.triggerJobHandler)
	api.POST("/jobs/*/pause", s.pauseJobHandler)
	api.POST("/jobs/*/resume", s.resumeJobHandler)

	api.POST("/otp/link", s.otpLinkHandler)
	api.POST("/otp/verify", s.otpVerifyHandler)
	api.POST("/otp/unlink", s.otpUnlinkHandler)
	api.GET("/otp/state", s.otpStateHandler)

	api.POST("/webhooks/test", s.webhookTestHandler)

	api.POST("/agent/chat", s.agentChatHandler)

	return s, nil
}

// Start blocks serving HTTP until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	return s.server.StartWithContext(ctx, net.JoinHostPort(s.cfg.Host, s.cfg.Port))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// apiKeyMiddleware rejects every request without a matching X-API-Key
// header. Unlike the teacher's authenticateRequest, there's no token
// store or per-token scoping here — one shared key gates the whole
// runtime surface, matching spec.md §6's single API_KEY variable.
func (s *Server) apiKeyMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.cfg.APIKey == "" {
				writeDetail(w, "api key not configured", http.StatusForbidden)
				return
			}
			if r.Header.Get("X-API-Key") != s.cfg.APIKey {
				writeDetail(w, "invalid or missing X-API-Key header", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
