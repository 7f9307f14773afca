package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propsignal/accounts"
	"propsignal/api"
	"propsignal/config"
	"propsignal/logging"
	"propsignal/models"
	"propsignal/scheduler"
	"propsignal/services"
	"propsignal/session"
	"propsignal/storage"
	"propsignal/wizard"
	"propsignal/workers"
)

var (
	refreshNow = flag.Bool("refresh", false, "Refresh report snapshots once and exit")
)

// domainStore is the document store every component runs against
type domainStore interface {
	api.Store
	services.SubmissionStore
	services.ReportStore
	accounts.Store
	session.SignalStore
	workers.JobStore
	workers.ViewStore
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting propsignal...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := openDomainStore(ctx, cfg)
	defer closeStore()

	// SQLite for operational data: activity log, report runs and snapshots
	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	activityLog := func(level models.LogLevel, source, message string) {
		if err := sqliteStore.Log(nil, level, source, message); err != nil {
			log.Printf("Error writing activity log: %v", err)
		}
	}

	reportService := services.NewReportService(store)
	sched := scheduler.New(cfg.ReportCron, reportService, sqliteStore)

	// Handle one-shot commands
	if *refreshNow {
		log.Println("Refreshing report snapshots...")
		run, err := sched.RefreshNow(ctx)
		if err != nil {
			log.Fatalf("Refresh failed: %v", err)
		}
		log.Printf("Refresh complete: %d listings, %d errors", run.Listings, run.Errors)
		return
	}

	blobs, mediaDir := openBlobStore(ctx, cfg)

	accountService := accounts.NewService(store, 0)
	mediaService := services.NewMediaService(store)
	uploader := workers.NewMediaUploader(store, blobs, cfg.Tuning.Upload.KeyPrefix)
	uploader.SetLogger(activityLog)

	machine := wizard.NewMachine(wizard.RulesFromTuning(cfg.Tuning))
	submissions := services.NewSubmissionService(store, machine, accountService, mediaService, uploader)
	submissions.SetLogger(activityLog)

	views := workers.NewViewRecorder(store, cfg.Tuning.Views.BufferSize)
	views.SetLogger(activityLog)
	go views.Run(ctx)
	log.Println("View recorder started")

	log.Println("Services initialized")

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	server := api.NewServer(api.Deps{
		Store:         store,
		Pricing:       services.PricingFromConfig(cfg.Tuning.Pricing),
		Accounts:      accountService,
		Reconciler:    session.NewReconciler(store),
		Submissions:   submissions,
		Media:         mediaService,
		Reports:       reportService,
		Views:         views,
		Logs:          sqliteStore,
		Snapshots:     sqliteStore,
		Refresher:     sched,
		RateLimit:     cfg.Tuning.RateLimit,
		MaxUploadSize: int64(cfg.Tuning.Upload.MaxFiles) * cfg.Tuning.Upload.MaxFileBytes,
		SecureCookies: cfg.SecureCookies,
	})
	go server.Run(ctx)

	handler := server.Router()
	if mediaDir != "" {
		mux := http.NewServeMux()
		mux.Handle("/media/", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir))))
		mux.Handle("/", handler)
		handler = mux
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	activityLog(models.LogLevelInfo, "daemon", fmt.Sprintf("started on %s", cfg.HTTPAddr))
	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

// openDomainStore connects to Postgres, or keeps everything in memory when no
// DATABASE_URL is set
func openDomainStore(ctx context.Context, cfg *config.Config) (domainStore, func()) {
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, using in-memory store")
		return storage.NewMemoryStore(), func() {}
	}

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	if err := pgStore.Migrate(ctx); err != nil {
		pgStore.Close()
		log.Fatalf("Failed to migrate Postgres: %v", err)
	}
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))
	return pgStore, pgStore.Close
}

// openBlobStore returns the S3 store, or a local directory served under
// /media/ when no bucket is configured. The directory is returned only in the
// second case.
func openBlobStore(ctx context.Context, cfg *config.Config) (workers.BlobStore, string) {
	if cfg.S3.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to create S3 client: %v", err)
		}
		log.Printf("Media bucket: %s", cfg.S3.Bucket)
		return s3Store, ""
	}

	disk, err := storage.NewDiskStore(cfg.MediaDir, "/media")
	if err != nil {
		log.Fatalf("Failed to open media dir: %v", err)
	}
	log.Printf("Warning: S3_BUCKET not set, storing media in %s", disk.Root())
	return disk, disk.Root()
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
