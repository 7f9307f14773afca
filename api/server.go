package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"propsignal/config"
	"propsignal/metrics"
	"propsignal/models"
	"propsignal/services"
	"propsignal/session"
	"propsignal/workers"
)

// Store is what the handlers read directly, besides the services
type Store interface {
	services.OpinionStore
	services.InterestStore
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// LogReader exposes the recent activity log
type LogReader interface {
	RecentLogs(limit int) ([]models.ActivityLog, error)
}

// SnapshotReader reads what the scheduled refresh stored
type SnapshotReader interface {
	GetReportSnapshot(listingID string) (*models.ListingReport, error)
	GetLastRun() (*models.ReportRun, error)
}

// Refresher queues a report snapshot refresh
type Refresher interface {
	Trigger()
}

// Deps is everything the HTTP surface drives
type Deps struct {
	Store         Store
	Pricing       services.Pricing
	Accounts      services.AccountCreator
	Reconciler    *session.Reconciler
	Submissions   *services.SubmissionService
	Media         *services.MediaService
	Reports       *services.ReportService
	Views         *workers.ViewRecorder
	Logs          LogReader
	Snapshots     SnapshotReader
	Refresher     Refresher
	RateLimit     config.RateLimitConfig
	MaxUploadSize int64
	SecureCookies bool
}

type Server struct {
	deps     Deps
	limiter  *RateLimiter
	sessions *sessionStates
}

func NewServer(deps Deps) *Server {
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = 256 << 20
	}
	return &Server{
		deps:     deps,
		limiter:  NewRateLimiter(deps.RateLimit.OpinionSavesPerSecond, deps.RateLimit.Burst),
		sessions: newSessionStates(),
	}
}

// Run does the server's background housekeeping until ctx is done
func (s *Server) Run(ctx context.Context) {
	go s.sessions.Run(ctx, time.Minute, 2*time.Hour)
	s.limiter.Run(ctx, time.Minute, 10*time.Minute)
}

// Router builds the chi router with every route mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Route("/listings/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetListing)
			r.Get("/opinion", s.handleGetOpinion)
			r.With(s.limiter.Handler).Put("/opinion", s.handleSaveOpinion)
			r.Post("/interest/start", s.handleInterestStart)
			r.Post("/interest/qualification", s.handleInterestQualification)
			r.Post("/interest/account", s.handleInterestAccount)
			r.Get("/media", s.handleMediaStatus)
			r.Post("/media/resume", s.handleResumeUpload)
		})

		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", s.handleWizardState)
			r.Post("/next", s.handleWizardNext)
			r.Post("/back", s.handleWizardBack)
			r.Post("/submit", s.handleWizardSubmit)
		})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Get("/listings", s.handleAllReports)
		r.Get("/listings/{id}", s.handleListingReport)
		r.Get("/listings/{id}/snapshot", s.handleReportSnapshot)
		r.Get("/runs/last", s.handleLastRun)
		r.Get("/owners", s.handleOwners)
		r.Get("/logs", s.handleRecentLogs)
		r.Post("/refresh", s.handleRefresh)
	})

	return r
}

func listingID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
