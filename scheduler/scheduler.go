package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"propsignal/metrics"
	"propsignal/models"
)

// ReportSource builds the current report of every listing
type ReportSource interface {
	AllListingReports(ctx context.Context) ([]models.ListingReport, int, error)
}

// SnapshotStore records runs, snapshots and activity lines
type SnapshotStore interface {
	CreateRun(run *models.ReportRun) (int64, error)
	UpdateRun(run *models.ReportRun) error
	SaveReportSnapshot(r *models.ListingReport) error
	Log(runID *int64, level models.LogLevel, source, message string) error
}

// Scheduler refreshes report snapshots on a cron expression and on demand
type Scheduler struct {
	cronExpr  string
	reports   ReportSource
	store     SnapshotStore
	cron      *cron.Cron
	triggerCh chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	runMu     sync.Mutex
}

func New(cronExpr string, reports ReportSource, store SnapshotStore) *Scheduler {
	return &Scheduler{
		cronExpr:  cronExpr,
		reports:   reports,
		store:     store,
		cron:      cron.New(),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollTrigger(ctx)

	if s.cronExpr == "" {
		log.Println("No report schedule configured, snapshots refresh only on demand")
		return nil
	}

	log.Printf("Starting report scheduler with cron: %s", s.cronExpr)
	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if _, err := s.RefreshNow(ctx); err != nil {
			log.Printf("Scheduled report refresh error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		close(s.stopCh)
	})
}

// Trigger asks for a refresh as soon as possible. Repeated triggers while one
// is pending collapse into one.
func (s *Scheduler) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) pollTrigger(ctx context.Context) {
	for {
		select {
		case <-s.triggerCh:
			if _, err := s.RefreshNow(ctx); err != nil {
				log.Printf("Triggered report refresh error: %v", err)
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RefreshNow rebuilds every listing report and stores the snapshots. Runs
// never overlap.
func (s *Scheduler) RefreshNow(ctx context.Context) (*models.ReportRun, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	run := &models.ReportRun{StartedAt: time.Now(), Status: models.RunStatusRunning}
	runID, err := s.store.CreateRun(run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	reports, failed, err := s.reports.AllListingReports(ctx)
	if err != nil {
		s.finish(run, models.RunStatusFailed)
		s.logRun(&runID, models.LogLevelError, fmt.Sprintf("report refresh failed: %v", err))
		metrics.RecordReportRun(string(models.RunStatusFailed), 0)
		return run, err
	}

	run.Errors = failed
	for i := range reports {
		if err := s.store.SaveReportSnapshot(&reports[i]); err != nil {
			run.Errors++
			log.Printf("Report snapshot %s: %v", reports[i].ListingID, err)
			continue
		}
		run.Listings++
		if len(reports[i].DataErrors) > 0 {
			s.logRun(&runID, models.LogLevelWarn, fmt.Sprintf("listing %s: %v", reports[i].ListingID, reports[i].DataErrors))
		}
	}

	s.finish(run, models.RunStatusCompleted)
	s.logRun(&runID, models.LogLevelInfo, fmt.Sprintf("refreshed %d listing reports, %d errors", run.Listings, run.Errors))
	metrics.RecordReportRun(string(models.RunStatusCompleted), run.Listings)
	return run, nil
}

func (s *Scheduler) finish(run *models.ReportRun, status models.RunStatus) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if err := s.store.UpdateRun(run); err != nil {
		log.Printf("Error updating report run %d: %v", run.ID, err)
	}
}

func (s *Scheduler) logRun(runID *int64, level models.LogLevel, message string) {
	log.Printf("Reports: %s", message)
	if err := s.store.Log(runID, level, "scheduler", message); err != nil {
		log.Printf("Error writing activity log: %v", err)
	}
}
